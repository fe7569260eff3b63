package models

import "time"

// ViewingSession is a live, heartbeat-tracked viewing instance created after
// successful validation. Liveness is derived at read time from LastSeen; there
// is no background sweep marking sessions inactive.
type ViewingSession struct {
	ID               string    `json:"id"`
	Token            string    `json:"-"` // never exposed past the operator surface
	SubscriberID     string    `json:"subscriber_id"`
	SubscriberName   string    `json:"subscriber_name"`
	SubscriberNumber string    `json:"subscriber_number"`
	DocumentID       string    `json:"document_id"`
	StartedAt        time.Time `json:"started_at"`
	LastSeen         time.Time `json:"last_seen"`
	CurrentPage      int       `json:"current_page"`
	PagesRead        int       `json:"pages_read"`
}

// IsLive reports whether the session had a heartbeat inside the liveness window
func (s *ViewingSession) IsLive(now time.Time, window time.Duration) bool {
	return now.Sub(s.LastSeen) <= window
}
