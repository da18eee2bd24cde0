package models

import "time"

// Rank tiers, derived from the rolling quality score via fixed thresholds.
const (
	TierBronze   = "Bronze"
	TierSilver   = "Silver"
	TierGold     = "Gold"
	TierPlatinum = "Platinum"
	TierDiamond  = "Diamond"
)

// User defines a registered user. Guests have no user record; only their
// guest session tracks a debate count.
type User struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	Email           string    `bson:"email" json:"email"`
	Username        string    `bson:"username" json:"username"`
	QualityScoreAvg int       `bson:"qualityScoreAvg" json:"qualityScoreAvg"`
	TotalDebates    int       `bson:"totalDebates" json:"totalDebates"`
	Wins            int       `bson:"wins" json:"wins"`
	Losses          int       `bson:"losses" json:"losses"`
	Draws           int       `bson:"draws" json:"draws"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
}

// RankTier maps a quality score to its displayed tier.
func RankTier(qualityScore int) string {
	switch {
	case qualityScore >= 95:
		return TierDiamond
	case qualityScore >= 85:
		return TierPlatinum
	case qualityScore >= 70:
		return TierGold
	case qualityScore >= 50:
		return TierSilver
	default:
		return TierBronze
	}
}

// GuestSession is an anonymous browser session. Guests may play a limited
// number of debates before being asked to register.
type GuestSession struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	DebateCount int       `bson:"debateCount" json:"debateCount"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// GuestDebateLimit is the number of debates a guest may play before
// registration is required.
const GuestDebateLimit = 5
