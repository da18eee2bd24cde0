package models

import "time"

// Notification types emitted by the core.
const (
	NotifyMatchFound        = "match_found"
	NotifyDebateScored      = "debate_scored"
	NotifyChallengeReceived = "challenge_received"
)

// Notification is one in-app message for a registered user. Delivery is
// fire-and-forget, at most once; the core does not retry.
type Notification struct {
	ID        string            `bson:"_id,omitempty" json:"id"`
	UserID    string            `bson:"userId" json:"userId"`
	Type      string            `bson:"type" json:"type"`
	Title     string            `bson:"title" json:"title"`
	Body      string            `bson:"body" json:"body"`
	Data      map[string]string `bson:"data,omitempty" json:"data,omitempty"`
	Read      bool              `bson:"read" json:"read"`
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
}
