package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// Marker strings the generation wrapper returns in place of content when the
// model was prevented from answering. Downstream analyses check for these
// prefixes and degrade to structured error stubs.
const (
	BlockedMarker   = "BLOCKED:"
	NoContentMarker = "NO_CONTENT_OR_SAFETY_INFO"
)

// IsRefusalMarker reports whether a generated string is one of the marker
// values rather than real model output.
func IsRefusalMarker(s string) bool {
	return strings.HasPrefix(s, BlockedMarker) || s == NoContentMarker
}

// Generator is the sole contract to the generation capability: an ordered
// list of content parts in, generated text out. Implementations must be
// substitutable; everything above this interface treats the model as opaque.
type Generator interface {
	Generate(ctx context.Context, parts ...genai.Part) (string, error)
}

// VertexClient holds all pre-configured generative models for our app.
type VertexClient struct {
	ReviewModel     *genai.GenerativeModel
	SynthesisModel  *genai.GenerativeModel
	TypoModel       *genai.GenerativeModel
	DisclosureModel *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	// --- Configure the review model (text + multimodal passes) ---
	reviewModel := baseClient.GenerativeModel(GetEnv("REVIEW_MODEL", "gemini-1.5-pro"))
	reviewModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
		TopP:        genai.Ptr[float32](0.95),
		TopK:        genai.Ptr[int32](40),
	}

	// --- Configure the synthesis model ---
	synthesisModel := baseClient.GenerativeModel(GetEnv("SYNTHESIS_MODEL", "gemini-1.5-pro"))
	synthesisModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output. This is a critical setting for this model.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0), // Low temp for deterministic, structured output
	}
	synthesisModel.SafetySettings = permissiveSafetySettings()

	// --- Configure the typo/date analysis model ---
	typoModel := baseClient.GenerativeModel(GetEnv("TYPO_MODEL", "gemini-1.5-flash"))
	typoModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	// --- Configure the disclosure extraction model ---
	disclosureModel := baseClient.GenerativeModel(GetEnv("DISCLOSURE_MODEL", "gemini-1.5-flash"))
	disclosureModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		ReviewModel:     reviewModel,
		SynthesisModel:  synthesisModel,
		TypoModel:       typoModel,
		DisclosureModel: disclosureModel,
		baseClient:      baseClient,
	}, nil
}

func permissiveSafetySettings() []*genai.SafetySetting {
	// Compliance reports quote the reviewed document; without these the
	// safety filter occasionally swallows otherwise valid findings.
	return []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// Reviewer returns the Generator backed by the review model.
func (c *VertexClient) Reviewer() Generator { return modelGenerator{c.ReviewModel} }

// Synthesizer returns the Generator backed by the synthesis model.
func (c *VertexClient) Synthesizer() Generator { return modelGenerator{c.SynthesisModel} }

// TypoAnalyzer returns the Generator backed by the typo/date model.
func (c *VertexClient) TypoAnalyzer() Generator { return modelGenerator{c.TypoModel} }

// DisclosureExtractor returns the Generator backed by the disclosure model.
func (c *VertexClient) DisclosureExtractor() Generator { return modelGenerator{c.DisclosureModel} }

type modelGenerator struct {
	model *genai.GenerativeModel
}

// Generate performs exactly one outbound call. Transport failures come back
// as errors; safety blocks and empty responses come back as marker strings.
func (g modelGenerator) Generate(ctx context.Context, parts ...genai.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return fmt.Sprintf("%s %v", BlockedMarker, resp.PromptFeedback.BlockReason), nil
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return NoContentMarker, nil
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return fmt.Sprintf("%s %v", BlockedMarker, resp.Candidates[0].FinishReason), nil
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(content.String())
	if text == "" {
		return NoContentMarker, nil
	}
	return text, nil
}
