package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Room is a provisioned voice room.
type Room struct {
	Name string
	URL  string
}

// RoomProvider is the voice-room collaborator contract. The production
// implementation is Daily.co; tests use fakes.
type RoomProvider interface {
	CreateRoom(ctx context.Context, debateID string, timeLimitMinutes int) (*Room, error)
	CreateToken(ctx context.Context, roomName, participantLabel string, isRecordingOwner bool) (string, error)
	StartRecording(ctx context.Context, roomName string) error
	// StopRecording returns the recording id, or "" when no recording exists.
	StopRecording(ctx context.Context, roomName string) (string, error)
	// GetRecordingLink returns the audio download URL, or "" while the
	// recording is still processing. Callers poll.
	GetRecordingLink(ctx context.Context, recordingID string) (string, error)
	DeleteRoom(ctx context.Context, roomName string) error
}

const dailyAPIBase = "https://api.daily.co/v1"

// DailyClient talks to the Daily.co REST API.
type DailyClient struct {
	APIKey string
	URL    string
	client *http.Client
}

// NewDailyClient returns a client with a sane request timeout.
func NewDailyClient(apiKey string) *DailyClient {
	return &DailyClient{
		APIKey: apiKey,
		URL:    dailyAPIBase,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *DailyClient) do(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.URL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// CreateRoom provisions a private audio-only room named after the debate.
// The room expires 15 minutes past the debate's time limit.
func (d *DailyClient) CreateRoom(ctx context.Context, debateID string, timeLimitMinutes int) (*Room, error) {
	roomName := "debate-" + debateID
	exp := time.Now().Unix() + int64((timeLimitMinutes+15)*60)

	payload := map[string]interface{}{
		"name":    roomName,
		"privacy": "private",
		"properties": map[string]interface{}{
			"exp":                exp,
			"max_participants":   2,
			"enable_chat":        false,
			"enable_screenshare": false,
			"enable_recording":   "cloud",
			"start_audio_off":    false,
			"start_video_off":    true,
			"eject_at_room_exp":  true,
		},
	}

	status, body, err := d.do(ctx, http.MethodPost, "/rooms", payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("room creation failed: %d %s", status, string(body))
	}

	var room struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.Unmarshal(body, &room); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &Room{Name: room.Name, URL: room.URL}, nil
}

// CreateToken mints a meeting token. The recording owner (always the Pro
// side) is allowed to control cloud recording.
func (d *DailyClient) CreateToken(ctx context.Context, roomName, participantLabel string, isRecordingOwner bool) (string, error) {
	properties := map[string]interface{}{
		"room_name":       roomName,
		"user_name":       participantLabel,
		"exp":             time.Now().Unix() + 7200,
		"is_owner":        isRecordingOwner,
		"start_audio_off": false,
		"start_video_off": true,
	}
	if isRecordingOwner {
		properties["enable_recording"] = "cloud"
	}

	status, body, err := d.do(ctx, http.MethodPost, "/meeting-tokens", map[string]interface{}{
		"properties": properties,
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("token creation failed: %d %s", status, string(body))
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return data.Token, nil
}

// StartRecording begins cloud recording. A 409 means recording already
// started, which is fine.
func (d *DailyClient) StartRecording(ctx context.Context, roomName string) error {
	status, body, err := d.do(ctx, http.MethodPost, "/rooms/"+roomName+"/recordings/start",
		map[string]interface{}{
			"layout": map[string]string{"preset": "audio-only"},
		})
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusConflict {
		return fmt.Errorf("recording start failed: %d %s", status, string(body))
	}
	return nil
}

// StopRecording ends the recording and returns its id.
func (d *DailyClient) StopRecording(ctx context.Context, roomName string) (string, error) {
	status, body, err := d.do(ctx, http.MethodPost, "/rooms/"+roomName+"/recordings/stop", nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("recording stop failed: %d", status)
	}

	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return data.ID, nil
}

// GetRecordingLink fetches the access link for a processed recording.
// Returns "" while Daily is still processing it.
func (d *DailyClient) GetRecordingLink(ctx context.Context, recordingID string) (string, error) {
	status, body, err := d.do(ctx, http.MethodGet, "/recordings/"+recordingID+"/access-link", nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", nil
	}

	var data struct {
		DownloadLink string `json:"download_link"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return data.DownloadLink, nil
}

// DeleteRoom removes the room once the debate is processed.
func (d *DailyClient) DeleteRoom(ctx context.Context, roomName string) error {
	status, body, err := d.do(ctx, http.MethodDelete, "/rooms/"+roomName, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return fmt.Errorf("room deletion failed: %d %s", status, string(body))
	}
	return nil
}
