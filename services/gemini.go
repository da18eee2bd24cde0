package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"podium/models"

	"google.golang.org/genai"
)

// Analyst is the AI scoring collaborator contract. Both analyses run over
// the same labeled transcript but are fully independent.
type Analyst interface {
	AnalyzeProcedural(ctx context.Context, topic, transcript string) (*models.ProceduralAnalysis, error)
	AnalyzeQualitative(ctx context.Context, topic, transcript string, timeLimitMinutes int) (*models.QualitativeAnalysis, error)
}

const defaultGeminiModel = "gemini-2.5-flash"

const proceduralSystemPrompt = `You are a debate moderation system. Your job is to detect CLEAR, UNAMBIGUOUS rule violations in a debate transcript. You must be CONSERVATIVE — only flag violations you are highly confident about. False positives are far more damaging than false negatives.

You are detecting:
1. AD HOMINEM ATTACKS: Direct personal insults, name-calling, attacks on character rather than arguments. Saying "your argument is wrong" is NOT ad hominem. Saying "you're an idiot" IS.
2. SLURS AND HATE SPEECH: Racial, ethnic, gender, or sexuality-based slurs. Zero tolerance.
3. EXCESSIVE PROFANITY: Profanity used AGGRESSIVELY TOWARD THE OPPONENT. Casual profanity in argumentation is NOT flagged. Directed hostility IS flagged.
4. NON-PARTICIPATION: Extended silence (>30% of their allotted time), obvious non-engagement, or disruptive behavior.

CRITICAL RULES:
- Only flag what you are >90% confident about.
- Heated disagreement is NOT a violation.
- Passionate language is NOT a violation.
- Sarcasm is NOT a violation unless it crosses into personal attacks.
- If you are unsure, DO NOT FLAG.

Respond with ONLY valid JSON, no other text.`

const qualitativeSystemPrompt = `You are an expert debate analyst. Your job is to evaluate the quality of both debaters' arguments. You are fair, specific, and constructive.

You evaluate three dimensions (each 0-100):
1. ARGUMENT COHERENCE: Were arguments logically structured? Did claims follow from premises? Were conclusions supported by the reasoning?
2. ENGAGEMENT WITH OPPONENT: Did the debater address their opponent's points directly? Did they respond to counterarguments, or talk past them?
3. EVIDENCE & REASONING: Were claims backed by evidence, examples, data, or sound logical reasoning? Or were they purely assertion?

OVERALL QUALITY is the equal-weighted average of the three dimensions.

Be specific in your strengths and areas_for_improvement — reference actual moments from the transcript with approximate timestamps.

Respond with ONLY valid JSON, no other text.`

// GeminiAnalyst runs both analysis tiers against Gemini.
type GeminiAnalyst struct {
	client *genai.Client
	model  string
}

// NewGeminiAnalyst initializes the Gemini client.
func NewGeminiAnalyst(apiKey string) (*GeminiAnalyst, error) {
	config := &genai.ClientConfig{}
	if apiKey != "" {
		config.APIKey = apiKey
	}
	client, err := genai.NewClient(context.Background(), config)
	if err != nil {
		return nil, err
	}
	return &GeminiAnalyst{client: client, model: defaultGeminiModel}, nil
}

func (g *GeminiAnalyst) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return cleanModelOutput(resp.Text()), nil
}

func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// AnalyzeProcedural runs strike detection over the transcript.
func (g *GeminiAnalyst) AnalyzeProcedural(ctx context.Context, topic, transcript string) (*models.ProceduralAnalysis, error) {
	prompt := fmt.Sprintf(`%s

Analyze this debate transcript for rule violations.

TOPIC: %s

TRANSCRIPT:
%s

Respond with this exact JSON structure:
{
  "pro_strikes": {"ad_hominem": false, "slurs": false, "excessive_profanity": false, "non_participation": false},
  "con_strikes": {"ad_hominem": false, "slurs": false, "excessive_profanity": false, "non_participation": false},
  "flagged_moments": [{"timestamp": "MM:SS", "speaker": "Pro or Con", "type": "ad_hominem|slurs|excessive_profanity|non_participation", "confidence": 0.0, "transcript_excerpt": "exact quote"}],
  "notes": "Brief explanation of any flags, or 'No violations detected'"
}`, proceduralSystemPrompt, topic, transcript)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var analysis models.ProceduralAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse procedural analysis: %w", err)
	}
	return &analysis, nil
}

// AnalyzeQualitative runs feedback scoring over the transcript. Overall
// scores are recomputed from the sub-scores rather than trusting the model.
func (g *GeminiAnalyst) AnalyzeQualitative(ctx context.Context, topic, transcript string, timeLimitMinutes int) (*models.QualitativeAnalysis, error) {
	prompt := fmt.Sprintf(`%s

Analyze this %d-minute debate.

TOPIC: %s

TRANSCRIPT:
%s

Respond with this exact JSON structure:
{
  "pro_player": {"coherence": 0, "engagement": 0, "evidence": 0, "overall_quality": 0, "strengths": ["specific strength with timestamp reference"], "areas_for_improvement": ["specific area with timestamp reference"]},
  "con_player": {"coherence": 0, "engagement": 0, "evidence": 0, "overall_quality": 0, "strengths": ["specific strength with timestamp reference"], "areas_for_improvement": ["specific area with timestamp reference"]},
  "debate_summary": "2-3 sentence summary of the debate's key arguments and turning points",
  "notable_moments": [{"timestamp": "MM:SS", "description": "What happened and why it mattered"}]
}`, qualitativeSystemPrompt, timeLimitMinutes, topic, transcript)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var analysis models.QualitativeAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse qualitative analysis: %w", err)
	}
	normalizeSideScores(&analysis.Pro)
	normalizeSideScores(&analysis.Con)
	return &analysis, nil
}

func normalizeSideScores(s *models.SideScores) {
	s.Coherence = ClampScore(orNeutral(s.Coherence))
	s.Engagement = ClampScore(orNeutral(s.Engagement))
	s.Evidence = ClampScore(orNeutral(s.Evidence))
	sum := s.Coherence + s.Engagement + s.Evidence
	s.Overall = int(math.Round(float64(sum) / 3.0))
}

func orNeutral(score int) int {
	if score == 0 {
		return 50
	}
	return score
}

// ClampScore bounds a score to [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// NeutralSideScores is the fallback used when the scoring provider fails:
// both sides get 50s so the pipeline never blocks on the provider.
func NeutralSideScores() models.SideScores {
	return models.SideScores{
		Coherence:    50,
		Engagement:   50,
		Evidence:     50,
		Overall:      50,
		Improvements: []string{"Analysis could not be completed"},
	}
}

// NeutralQualitative returns the provider-failure fallback analysis.
func NeutralQualitative() *models.QualitativeAnalysis {
	return &models.QualitativeAnalysis{
		Pro:     NeutralSideScores(),
		Con:     NeutralSideScores(),
		Summary: "Analysis could not be completed.",
	}
}

// NoStrikes returns the provider-failure fallback procedural analysis:
// conservative bias means no violations are reported on failure.
func NoStrikes() *models.ProceduralAnalysis {
	return &models.ProceduralAnalysis{
		Notes: "Analysis failed — defaulting to no violations",
	}
}
