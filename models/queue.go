package models

import "time"

// Queue entry lifecycle states.
const (
	QueueWaiting = "waiting"
	QueueMatched = "matched"
	QueueExpired = "expired"
)

// Stance preferences requested at queue time.
const (
	StancePro    = "pro"
	StanceCon    = "con"
	StanceEither = "either"
)

// CategoryQuick is the category for quick matches with no topic preference.
// Quick entries only ever match other quick entries.
const CategoryQuick = "quick"

// ValidTimeLimits are the debate durations offered, in minutes.
var ValidTimeLimits = []int{5, 15, 45}

// QueueEntry is one participant waiting in the matchmaking queue.
// Entries are never mutated after insert except for the status and
// match-link fields.
type QueueEntry struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Owner       Owner     `bson:"owner" json:"owner"`
	Category    string    `bson:"category" json:"category"`
	TopicID     string    `bson:"topicId,omitempty" json:"topicId,omitempty"`
	TimeLimit   int       `bson:"timeLimit" json:"timeLimit"`
	Stance      string    `bson:"stance" json:"stance"`
	Ranked      bool      `bson:"ranked" json:"ranked"`
	Status      string    `bson:"status" json:"status"`
	MatchedWith string    `bson:"matchedWith,omitempty" json:"matchedWith,omitempty"`
	DebateID    string    `bson:"debateId,omitempty" json:"debateId,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt   time.Time `bson:"expiresAt" json:"expiresAt"`
}

// ValidStance reports whether s is a recognized stance value.
func ValidStance(s string) bool {
	return s == StancePro || s == StanceCon || s == StanceEither
}

// ValidTimeLimit reports whether minutes is an offered debate duration.
func ValidTimeLimit(minutes int) bool {
	for _, tl := range ValidTimeLimits {
		if tl == minutes {
			return true
		}
	}
	return false
}
