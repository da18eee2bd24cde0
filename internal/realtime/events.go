package realtime

import (
	"encoding/json"
	"time"
)

// Event types pushed to connected clients.
const (
	EventMatchFound   = "match_found"
	EventPhaseChanged = "phase_changed"
	EventDebateScored = "debate_scored"
)

// Event is one realtime message. Recipients lists the owner keys the event
// is addressed to; an empty list broadcasts to everyone.
type Event struct {
	Type       string          `json:"type"`
	Recipients []string        `json:"recipients,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  int64           `json:"timestamp"`
}

// MatchFoundPayload notifies both matched parties that their debate exists.
type MatchFoundPayload struct {
	DebateID string `json:"debateId"`
	TopicID  string `json:"topicId,omitempty"`
	RoomName string `json:"roomName"`
	RoomURL  string `json:"roomUrl"`
	Side     string `json:"side,omitempty"`
}

// PhaseChangedPayload announces a phase transition.
type PhaseChangedPayload struct {
	DebateID string `json:"debateId"`
	Phase    string `json:"phase"`
	Status   string `json:"status"`
}

// DebateScoredPayload announces that pipeline results are available.
type DebateScoredPayload struct {
	DebateID string `json:"debateId"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(eventType string, recipients []string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		Type:       eventType,
		Recipients: recipients,
		Payload:    payloadBytes,
		Timestamp:  time.Now().Unix(),
	}, nil
}

// MarshalEvent marshals an event to a JSON string for the Redis channel.
func MarshalEvent(event *Event) (string, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalEvent unmarshals a JSON string to an Event.
func UnmarshalEvent(data string) (*Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, err
	}
	return &event, nil
}
