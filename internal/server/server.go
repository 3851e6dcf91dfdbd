// Package server runs the development HTTP server: it serves the output
// tree, streams live-reload events, exposes build status and history, and
// drives watch-triggered incremental rebuilds.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/events"
	"git.home.luguber.info/inful/sitegen/internal/history"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/server/responses"
	"git.home.luguber.info/inful/sitegen/internal/site"
	"git.home.luguber.info/inful/sitegen/internal/watch"
)

// Server ties the builder, watcher, reload hub, history store, and optional
// event publisher together for `sitegen serve`.
type Server struct {
	cfg       *config.Config
	builder   *site.Builder
	hub       *ReloadHub
	store     *history.Store
	publisher *events.Publisher
	recorder  metrics.Recorder
	gatherer  prometheus.Gatherer
	logger    *slog.Logger

	mu         sync.RWMutex
	lastResult *site.Result
}

// New assembles a Server. The history store is always opened (in-memory when
// no path is configured); the publisher only when an events URL is set. The
// gatherer backs the /metrics endpoint and may be nil.
func New(cfg *config.Config, builder *site.Builder, recorder metrics.Recorder, gatherer prometheus.Gatherer) (*Server, error) {
	historyPath := cfg.History.Path
	if historyPath == "" {
		historyPath = ":memory:"
	}
	store, err := history.NewStore(historyPath)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	var publisher *events.Publisher
	if cfg.Events.URL != "" {
		publisher, err = events.NewPublisher(cfg.Events.URL, cfg.Events.Subject)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connect event publisher: %w", err)
		}
	}

	return &Server{
		cfg:       cfg,
		builder:   builder,
		hub:       NewReloadHub(recorder),
		store:     store,
		publisher: publisher,
		recorder:  recorder,
		gatherer:  gatherer,
		logger:    slog.Default(),
	}, nil
}

// WithLogger sets a custom logger.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	s.logger = l
	return s
}

// Run performs the initial full build, starts the watcher and the scheduled
// rebuild, and serves HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.store.Close()
	if s.publisher != nil {
		defer s.publisher.Close()
	}
	defer s.hub.Shutdown()

	res := s.builder.FullBuild(ctx)
	s.recordResult(ctx, res)
	if res.Failed() {
		s.logger.Warn("initial build completed with errors",
			logfields.BuildID(res.BuildID), logfields.Count(len(res.Errors)))
	}

	watcher, err := watch.NewWatcher(s.cfg.Source.Root, s.cfg.Output.Directory)
	if err != nil {
		return err
	}
	defer watcher.Close()
	go watcher.Run(ctx)

	debouncer, err := watch.NewDebouncer(watch.DebouncerConfig{
		QuietWindow: s.cfg.Server.DebounceQuiet.Std(),
		MaxDelay:    s.cfg.Server.DebounceMax.Std(),
	}, s.onChanges)
	if err != nil {
		return err
	}
	go debouncer.Run(ctx, watcher.Changes())

	if interval := s.cfg.Server.RebuildInterval.Std(); interval > 0 {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		_, err = scheduler.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(s.scheduledRebuild, ctx),
			gocron.WithName("scheduled-rebuild"),
		)
		if err != nil {
			return fmt.Errorf("schedule rebuild: %w", err)
		}
		scheduler.Start()
		defer func() { _ = scheduler.Shutdown() }()
		s.logger.Info("scheduled rebuild enabled", slog.Duration("interval", interval))
	}

	return s.serveHTTP(ctx)
}

// onChanges is the debounced watch callback: it applies each changed path
// incrementally and broadcasts once per batch.
func (s *Server) onChanges(ctx context.Context, paths []string) {
	s.logger.Info("changes detected", logfields.Count(len(paths)))

	var last *site.Result
	for _, path := range paths {
		res := s.builder.Rebuild(ctx, path)
		s.recordResult(ctx, res)
		last = res
		if !res.Incremental {
			// A fallback full build already resynchronized everything;
			// the rest of the batch is covered.
			break
		}
	}
	if last != nil && s.cfg.LiveReloadEnabled() {
		s.hub.Broadcast(last.BuildID)
	}
}

// scheduledRebuild runs the periodic modification-time sweep.
func (s *Server) scheduledRebuild(ctx context.Context) {
	res := s.builder.RebuildModified(ctx)
	s.recordResult(ctx, res)
	if res.Processed > 0 || res.Copied > 0 {
		if s.cfg.LiveReloadEnabled() {
			s.hub.Broadcast(res.BuildID)
		}
	}
}

// recordResult persists and publishes one build outcome. Neither failure
// fails the build.
func (s *Server) recordResult(ctx context.Context, res *site.Result) {
	s.mu.Lock()
	s.lastResult = res
	s.mu.Unlock()
	if err := s.store.Record(ctx, res); err != nil {
		s.logger.Warn("history record failed", logfields.Error(err))
	}
	if s.publisher != nil {
		_ = s.publisher.PublishResult(res)
	}
}

func (s *Server) serveHTTP(ctx context.Context) error {
	mux := http.NewServeMux()

	fileServer := http.FileServer(http.Dir(s.cfg.Output.Directory))
	if s.cfg.LiveReloadEnabled() {
		mux.Handle("/", injectReloadScript(fileServer))
		mux.Handle("/livereload", s.hub)
		mux.HandleFunc("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			_, _ = w.Write([]byte(reloadScript))
		})
	} else {
		mux.Handle("/", fileServer)
	}

	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/builds", s.handleBuilds)

	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// SSE connections are long-lived; no write timeout.
		IdleTimeout: 300 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("development server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.lastResult
	s.mu.RUnlock()

	status := responses.StatusResponse{
		Status:    responses.StatusFor(last),
		Source:    s.cfg.Source.Root,
		Output:    s.cfg.Output.Directory,
		LastBuild: last,
		Timestamp: time.Now(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Warn("status encode failed", logfields.Error(err))
	}
}

func (s *Server) handleBuilds(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.Recent(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		s.logger.Warn("builds encode failed", logfields.Error(err))
	}
}
