package domain

import "time"

// ActivityLog is one append-only audit entry per mutating settlement
// operation: who did what, to which booking, with what parameters.
type ActivityLog struct {
	ID        int64             `json:"id"`
	ActorID   *int64            `json:"actor_id,omitempty"` // nil for system actions
	Action    string            `json:"action"`
	BookingID *int64            `json:"booking_id,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedOn time.Time         `json:"created_on"`
}
