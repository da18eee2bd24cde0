package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podium/models"
)

// RawSegment is one diarized utterance as returned by the transcription
// provider. Speaker ids are opaque small integers with no semantic meaning.
type RawSegment struct {
	Speaker  int
	StartSec float64
	EndSec   float64
	Text     string
}

// RawTranscript is the provider's transcription output before role labeling.
type RawTranscript struct {
	Segments    []RawSegment
	DurationSec float64
}

// Transcriber is the speech-to-text collaborator contract.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (*RawTranscript, error)
}

const deepgramAPIBase = "https://api.deepgram.com/v1"

// DeepgramClient transcribes recordings with Deepgram's Nova-2 model and
// speaker diarization.
type DeepgramClient struct {
	APIKey string
	URL    string
	client *http.Client
}

func NewDeepgramClient(apiKey string) *DeepgramClient {
	return &DeepgramClient{
		APIKey: apiKey,
		URL:    deepgramAPIBase,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Transcribe submits the audio URL for transcription and extracts the
// diarized utterances.
func (dg *DeepgramClient) Transcribe(ctx context.Context, audioURL string) (*RawTranscript, error) {
	endpoint := dg.URL + "/listen?model=nova-2&smart_format=true&diarize=true&punctuate=true&utterances=true&paragraphs=true"

	payload, err := json.Marshal(map[string]string{"url": audioURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+dg.APIKey)

	resp, err := dg.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription failed: %d %s", resp.StatusCode, string(body))
	}

	var data struct {
		Results struct {
			Utterances []struct {
				Speaker    int     `json:"speaker"`
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Transcript string  `json:"transcript"`
			} `json:"utterances"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	raw := &RawTranscript{}
	for _, u := range data.Results.Utterances {
		raw.Segments = append(raw.Segments, RawSegment{
			Speaker:  u.Speaker,
			StartSec: u.Start,
			EndSec:   u.End,
			Text:     u.Transcript,
		})
	}
	if n := len(raw.Segments); n > 0 {
		raw.DurationSec = raw.Segments[n-1].EndSec
	}
	return raw, nil
}

// LabelSpeakers maps opaque speaker ids to debate roles and partitions the
// transcript into pro/con text. Pro always gives the first opening
// statement, so the first speaker chronologically is Pro.
func LabelSpeakers(raw *RawTranscript) *models.Transcript {
	t := &models.Transcript{}
	if raw == nil || len(raw.Segments) == 0 {
		return t
	}
	t.DurationSec = raw.DurationSec

	firstSpeaker := raw.Segments[0].Speaker

	var full, proParts, conParts []string
	for _, s := range raw.Segments {
		role := "Con"
		if s.Speaker == firstSpeaker {
			role = "Pro"
		}

		t.Segments = append(t.Segments, models.TranscriptSegment{
			Speaker:  s.Speaker,
			Role:     role,
			StartSec: s.StartSec,
			EndSec:   s.EndSec,
			Text:     s.Text,
		})

		full = append(full, fmt.Sprintf("[%s @ %s] %s", role, formatTimestamp(s.StartSec), s.Text))
		if role == "Pro" {
			proParts = append(proParts, s.Text)
		} else {
			conParts = append(conParts, s.Text)
		}
	}

	t.FullText = strings.Join(full, "\n")
	t.ProText = strings.Join(proParts, " ")
	t.ConText = strings.Join(conParts, " ")
	return t
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
