// Package audit emits operational events for every workflow transition. The
// durable, queryable trail lives in the ban store's history table; these
// events exist for downstream monitoring and are best-effort by design.
package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	BanID     string    `json:"ban_id"`
	PlaceID   string    `json:"place_id,omitempty"`
	PersonID  string    `json:"person_id,omitempty"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}
