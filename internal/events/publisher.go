// Package events publishes build completion events to NATS so other systems
// (deploy hooks, dashboards) can react to site rebuilds. Publishing is
// optional and entirely config-gated; the builder never depends on it.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

// BuildEvent is the wire payload published after every build.
type BuildEvent struct {
	BuildID     string    `json:"build_id"`
	Incremental bool      `json:"incremental"`
	Success     bool      `json:"success"`
	Processed   int       `json:"processed"`
	Copied      int       `json:"copied"`
	ErrorCount  int       `json:"error_count"`
	DurationMS  int64     `json:"duration_ms"`
	Commit      string    `json:"commit,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher sends build events to one NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewPublisher connects to NATS at url and publishes to subject.
func NewPublisher(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}

	slog.Info("build event publisher connected", slog.String("url", url), slog.String("subject", subject))

	return &Publisher{conn: conn, subject: subject, logger: slog.Default()}, nil
}

// WithLogger sets a custom logger.
func (p *Publisher) WithLogger(l *slog.Logger) *Publisher {
	p.logger = l
	return p
}

// PublishResult publishes one build outcome. Publish failures are logged and
// returned but must never fail the build itself.
func (p *Publisher) PublishResult(res *site.Result) error {
	evt := BuildEvent{
		BuildID:     res.BuildID,
		Incremental: res.Incremental,
		Success:     !res.Failed(),
		Processed:   res.Processed,
		Copied:      res.Copied,
		ErrorCount:  len(res.Errors),
		DurationMS:  res.Duration.Milliseconds(),
		Commit:      res.Commit,
		Timestamp:   time.Now(),
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal build event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Warn("build event publish failed",
			logfields.BuildID(res.BuildID), logfields.Error(err))
		return fmt.Errorf("publish build event: %w", err)
	}

	p.logger.Debug("build event published", logfields.BuildID(res.BuildID))
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
