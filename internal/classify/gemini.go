package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"takziv/internal/core"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// GeminiClassifier classifies transaction batches with the Gemini API.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// NewGeminiClassifier creates a classifier backed by the Gemini API. The
// API key is read by the SDK from GEMINI_API_KEY / GOOGLE_API_KEY unless
// given explicitly. An empty model falls back to DefaultModel.
func NewGeminiClassifier(ctx context.Context, apiKey, model string) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiClassifier{client: client, model: model}, nil
}

// ClassifyBatch asks the model for one category per item, in order.
func (g *GeminiClassifier) ClassifyBatch(ctx context.Context, items []Item, vocabulary []string) ([]string, error) {
	prompt, err := buildPrompt(items, vocabulary)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		if IsRateLimit(err) {
			return nil, fmt.Errorf("generate content: %w: %w", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	var labels []string
	clean := cleanModelJSON(rawText)
	if err := json.Unmarshal([]byte(clean), &labels); err != nil {
		return nil, fmt.Errorf("unmarshal model response: %w (raw: %q)", err, rawText)
	}
	return labels, nil
}

func buildPrompt(items []Item, vocabulary []string) (string, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a personal finance assistant. Assign exactly one category to each expense below.\n")
	b.WriteString("Allowed categories: ")
	b.WriteString(strings.Join(vocabulary, ", "))
	b.WriteString("\n\nExpenses (JSON array):\n")
	b.Write(payload)
	b.WriteString("\n\nRespond with ONLY a JSON array of category strings, one per expense, in the same order.\n")
	b.WriteString("Every element must be one of the allowed categories.\n")
	b.WriteString("If no category fits well, use \"" + core.Uncategorized + "\".\n")
	b.WriteString("Do NOT use ```json or any Markdown.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")
	return b.String(), nil
}

// cleanModelJSON strips Markdown fences and surrounding junk so the
// payload parses even when the model ignores the format instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost array if extra text survived.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
