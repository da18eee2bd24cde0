package models

// Topic is a debate topic from the curated pool.
type Topic struct {
	ID          string `bson:"_id,omitempty" json:"id"`
	Title       string `bson:"title" json:"title"`
	ShortTitle  string `bson:"shortTitle,omitempty" json:"shortTitle,omitempty"`
	Category    string `bson:"category" json:"category"`
	IsOfficial  bool   `bson:"isOfficial" json:"isOfficial"`
	DebateCount int    `bson:"debateCount" json:"debateCount"`
}
