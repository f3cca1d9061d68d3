package replies

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Keiracom/Agency-OS-sub001/platform/config"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"google.golang.org/genai"
)

// Classification is the classifier's verdict on a single reply.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
	// Objection is an optional sub-type (e.g. "pricing", "timing") present
	// mostly on not_interested replies.
	Objection string `json:"objection,omitempty"`
}

// Classifier determines the intent of an inbound reply.
type Classifier interface {
	Classify(ctx context.Context, msg IncomingMessage) (Classification, error)
}

// fallbackClassification is the safe default when classification fails or
// produces output outside the taxonomy. Reply processing never fails on a
// classifier problem.
func fallbackClassification(reason string) Classification {
	return Classification{
		Intent:     IntentQuestion,
		Confidence: 0,
		Reasoning:  reason,
	}
}

const classifierPrompt = `You classify sales outreach replies. Respond with JSON only:
{"intent": "...", "confidence": 0.0-1.0, "reasoning": "...", "objection": "..."}

intent must be exactly one of: meeting_request, interested, question, not_interested, unsubscribe, out_of_office, auto_reply.
objection is optional and names the prospect's objection sub-type (e.g. "pricing", "timing", "competitor") when one is expressed; omit it otherwise.

Channel: %s
Subject: %s
Message:
%s`

// GeminiClassifier classifies replies with a single JSON-mode Gemini call.
type GeminiClassifier struct {
	client *genai.Client
	model  string
	cfg    config.ClassifierConfig
	log    *logger.Logger
}

// NewGeminiClassifier creates the classifier. Returns nil when no API key is
// configured; the state machine treats a nil classifier as a permanent
// fallback to the safe default intent.
func NewGeminiClassifier(ctx context.Context, cfg config.ClassifierConfig, log *logger.Logger) (*GeminiClassifier, error) {
	if !cfg.IsClassifierEnabled() {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GetGeminiAPIKey(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := cfg.GetClassifierModel()
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &GeminiClassifier{
		client: client,
		model:  model,
		cfg:    cfg,
		log:    log,
	}, nil
}

// Classify runs one bounded-timeout classification call. It never returns a
// Classification outside the taxonomy: malformed model output degrades to the
// safe default instead of an error.
func (c *GeminiClassifier) Classify(ctx context.Context, msg IncomingMessage) (Classification, error) {
	if c == nil || c.client == nil {
		return fallbackClassification("classifier disabled"), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.GetClassifierTimeout())
	defer cancel()

	prompt := fmt.Sprintf(classifierPrompt, msg.Channel, msg.Subject, msg.Body)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return Classification{}, fmt.Errorf("classification call failed: %w", err)
	}

	return parseClassification(result.Text()), nil
}

// parseClassification decodes model output, degrading to the safe default on
// anything malformed or outside the taxonomy.
func parseClassification(raw string) Classification {
	raw = strings.TrimSpace(raw)
	// Some models wrap JSON in markdown fences despite JSON mode.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var decoded struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
		Objection  string  `json:"objection"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return fallbackClassification("malformed classifier output")
	}

	intent, ok := ParseIntent(decoded.Intent)
	if !ok {
		return fallbackClassification("unknown intent: " + decoded.Intent)
	}

	confidence := decoded.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Classification{
		Intent:     intent,
		Confidence: confidence,
		Reasoning:  decoded.Reasoning,
		Objection:  strings.TrimSpace(decoded.Objection),
	}
}
