package types

import "time"

// Request is an inbound organic request as seen by the admission hooks. The
// payload is opaque to the scheduling core; hooks may inspect it.
type Request struct {
	// ID identifies the request for logging; assigned on receipt.
	ID string `json:"id"`
	// Sender identifies the origin of the request (e.g. a hotkey).
	Sender string `json:"sender"`
	// Priority is the ordering hint computed by the priority hook at
	// admission time; zero when no priority hook is installed.
	Priority float64 `json:"priority"`
	// Received is the time the request arrived.
	Received time.Time `json:"received"`
	// Payload is the opaque request body.
	Payload map[string]interface{} `json:"payload"`
}

// Response is returned to the inbound request server by the on-entry hook.
type Response struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// OrganicSample is a request-derived entry awaiting evaluation. Ownership
// moves from the admission path to the queue on insert, and from the queue to
// the sampling callback on removal; entries are never duplicated or retained
// after removal.
type OrganicSample struct {
	ID       string
	Sender   string
	Priority float64
	Received time.Time
	Payload  map[string]interface{}
}

// Sources a forward cycle can draw from.
const (
	SourceOrganic   = "organic"
	SourceSynthetic = "synthetic"
	SourceNone      = "none"
)

// ForwardSummary is the telemetry record returned by a sampling cycle.
type ForwardSummary struct {
	// TotalElapsedTime is the wall time spent inside the cycle, in seconds.
	// The scheduling loop subtracts it from the next wait when the trigger
	// is time based.
	TotalElapsedTime float64
	// Source records where the evaluated sample came from.
	Source string
	// Fields carries any extra telemetry the sampler wants to report.
	Fields map[string]interface{}
}

// RequestIDContextKey is used to pass a request ID through a request context
// for logging.
type RequestIDContextKey struct{}
