package registry

import "time"

// State is the mutable per-operator record the registry owns. It is mutated
// only through Enable/Disable/UpdateHealth and always persisted through the
// state store before the in-memory copy changes.
type State struct {
	Code              string    `json:"code"`
	Enabled           bool      `json:"enabled"`
	DisableReason     string    `json:"disable_reason,omitempty"`
	LastChangedBy     string    `json:"last_changed_by,omitempty"`
	LastChangedAt     time.Time `json:"last_changed_at"`
	HealthScore       float64   `json:"health_score"`
	LastHealthCheckAt time.Time `json:"last_health_check_at,omitzero"`
}

// BulkResult reports the outcome for one code of a bulk enable. Partial
// failure is a first-class outcome: the batch never aborts on one bad code.
type BulkResult struct {
	Code    string `json:"code"`
	Enabled bool   `json:"enabled"`
	Error   string `json:"error,omitempty"`
}
