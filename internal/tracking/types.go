package tracking

import "time"

// Hit is one recorded visit to a console route.
type Hit struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    *string   `json:"actor_id"`
	SessionID  string    `json:"session_id"`
	Route      string    `json:"route"`
	Method     string    `json:"method"`
	Device     *string   `json:"device"`
	Browser    *string   `json:"browser"`
	IPAddress  *string   `json:"ip_address"`
	UserAgent  *string   `json:"user_agent"`
}

// QueryFilter controls which hits are returned by Query and counted by
// Count. Empty fields match everything.
type QueryFilter struct {
	ActorID   string
	SessionID string
	Route     string
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}
