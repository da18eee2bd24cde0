package services

import (
	"context"
	"errors"
	"sync"

	"podium/models"
)

// fakeRooms is an in-memory RoomProvider that counts calls.
type fakeRooms struct {
	mu sync.Mutex

	createRoomErr  error
	recordingID    string
	recordingLink  string
	linkErr        error
	stopErr        error
	tokenErr       error

	roomsCreated   int
	tokensCreated  int
	recordingStops int
	linkChecks     int
	roomsDeleted   int
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{
		recordingID:   "rec-1",
		recordingLink: "https://cdn.example.com/rec-1.mp3",
	}
}

func (f *fakeRooms) CreateRoom(ctx context.Context, debateID string, timeLimitMinutes int) (*Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createRoomErr != nil {
		return nil, f.createRoomErr
	}
	f.roomsCreated++
	return &Room{Name: "debate-" + debateID, URL: "https://example.daily.co/debate-" + debateID}, nil
}

func (f *fakeRooms) CreateToken(ctx context.Context, roomName, participantLabel string, isRecordingOwner bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	f.tokensCreated++
	return "token-" + participantLabel, nil
}

func (f *fakeRooms) StartRecording(ctx context.Context, roomName string) error {
	return nil
}

func (f *fakeRooms) StopRecording(ctx context.Context, roomName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordingStops++
	if f.stopErr != nil {
		return "", f.stopErr
	}
	return f.recordingID, nil
}

func (f *fakeRooms) GetRecordingLink(ctx context.Context, recordingID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkChecks++
	if f.linkErr != nil {
		return "", f.linkErr
	}
	return f.recordingLink, nil
}

func (f *fakeRooms) DeleteRoom(ctx context.Context, roomName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomsDeleted++
	return nil
}

// fakeTranscriber returns a canned two-speaker transcript.
type fakeTranscriber struct {
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioURL string) (*RawTranscript, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &RawTranscript{
		Segments: []RawSegment{
			{Speaker: 0, StartSec: 0, EndSec: 30, Text: "Opening argument for the motion."},
			{Speaker: 1, StartSec: 31, EndSec: 60, Text: "Opening argument against the motion."},
			{Speaker: 0, StartSec: 61, EndSec: 90, Text: "Rebuttal for the motion."},
		},
		DurationSec: 90,
	}, nil
}

// fakeAnalyst returns fixed analyses, with independent failure switches for
// the two tiers.
type fakeAnalyst struct {
	proceduralErr  error
	qualitativeErr error

	procedural  *models.ProceduralAnalysis
	qualitative *models.QualitativeAnalysis

	proceduralCalls  int
	qualitativeCalls int
}

func newFakeAnalyst() *fakeAnalyst {
	return &fakeAnalyst{
		procedural: &models.ProceduralAnalysis{Notes: "No violations detected"},
		qualitative: &models.QualitativeAnalysis{
			Pro: models.SideScores{Coherence: 80, Engagement: 70, Evidence: 90, Overall: 80},
			Con: models.SideScores{Coherence: 60, Engagement: 60, Evidence: 60, Overall: 60},
		},
	}
}

func (f *fakeAnalyst) AnalyzeProcedural(ctx context.Context, topic, transcript string) (*models.ProceduralAnalysis, error) {
	f.proceduralCalls++
	if f.proceduralErr != nil {
		return nil, f.proceduralErr
	}
	return f.procedural, nil
}

func (f *fakeAnalyst) AnalyzeQualitative(ctx context.Context, topic, transcript string, timeLimitMinutes int) (*models.QualitativeAnalysis, error) {
	f.qualitativeCalls++
	if f.qualitativeErr != nil {
		return nil, f.qualitativeErr
	}
	return f.qualitative, nil
}

var errProvider = errors.New("provider unavailable")
