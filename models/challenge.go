package models

import "time"

// Challenge statuses.
const (
	ChallengePending  = "pending"
	ChallengeAccepted = "accepted"
	ChallengeDeclined = "declined"
)

// Challenge is a direct debate invitation between two registered users.
type Challenge struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	ChallengerID string    `bson:"challengerId" json:"challengerId"`
	TargetID     string    `bson:"targetId" json:"targetId"`
	TopicID      string    `bson:"topicId" json:"topicId"`
	TimeLimit    int       `bson:"timeLimit" json:"timeLimit"`
	Status       string    `bson:"status" json:"status"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}
