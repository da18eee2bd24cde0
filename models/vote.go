package models

import "time"

// Vote is one community member's verdict on a completed debate. One vote
// per voter per debate, unweighted; re-voting replaces the earlier vote.
type Vote struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	DebateID        string    `bson:"debateId" json:"debateId"`
	VoterID         string    `bson:"voterId" json:"voterId"`
	WinnerChoice    string    `bson:"winnerChoice" json:"winnerChoice"`
	BetterArguments string    `bson:"betterArguments,omitempty" json:"betterArguments,omitempty"`
	MoreRespectful  string    `bson:"moreRespectful,omitempty" json:"moreRespectful,omitempty"`
	ChangedMind     *bool     `bson:"changedMind,omitempty" json:"changedMind,omitempty"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
}

// VoteTally is the aggregated vote count for a debate.
type VoteTally struct {
	Pro  int `json:"pro"`
	Con  int `json:"con"`
	Draw int `json:"draw"`
}

// Total returns the number of votes cast.
func (t VoteTally) Total() int {
	return t.Pro + t.Con + t.Draw
}
