package models

// Owner identifies a debate participant: either a registered user or an
// anonymous guest session. Exactly one of the two ids is set.
type Owner struct {
	UserID    string `bson:"userId,omitempty" json:"userId,omitempty"`
	SessionID string `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
}

// RegisteredOwner returns an Owner backed by a user account.
func RegisteredOwner(userID string) Owner {
	return Owner{UserID: userID}
}

// GuestOwner returns an Owner backed by an anonymous guest session.
func GuestOwner(sessionID string) Owner {
	return Owner{SessionID: sessionID}
}

// Registered reports whether the owner is a registered user.
func (o Owner) Registered() bool {
	return o.UserID != ""
}

// Zero reports whether the owner is unset.
func (o Owner) Zero() bool {
	return o.UserID == "" && o.SessionID == ""
}

// Key returns a stable identity string usable as a map key.
func (o Owner) Key() string {
	if o.UserID != "" {
		return "user:" + o.UserID
	}
	return "session:" + o.SessionID
}

// Same reports whether two owners refer to the same identity.
func (o Owner) Same(other Owner) bool {
	if o.Zero() || other.Zero() {
		return false
	}
	return o.Key() == other.Key()
}
