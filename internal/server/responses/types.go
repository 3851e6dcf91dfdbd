// Package responses defines the JSON payloads served by the sitegen API
// endpoints.
package responses

import (
	"time"

	"git.home.luguber.info/inful/sitegen/internal/site"
)

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Status    string       `json:"status"`
	Source    string       `json:"source"`
	Output    string       `json:"output"`
	LastBuild *site.Result `json:"last_build,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// StatusFor derives the status string from the most recent build.
func StatusFor(last *site.Result) string {
	switch {
	case last == nil:
		return "starting"
	case last.Failed():
		return "degraded"
	default:
		return "ok"
	}
}
