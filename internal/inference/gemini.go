package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"kharcha/internal/core"
	"kharcha/internal/log"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gemini is an Inferrer backed by Google's Gemini API.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
	logger  *log.Logger
}

// NewGemini creates a Gemini client. The API key is required.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *log.Logger) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = log.Discard()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   client.GenerativeModel(cfg.Model),
		timeout: cfg.Timeout,
		logger:  logger.WithComponent(log.ComponentInference).With("model", cfg.Model),
	}, nil
}

// Infer sends prompt and returns the concatenated text parts of the first
// candidate. Errors wrap core.ErrInferenceFailed.
func (g *Gemini) Infer(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini request failed",
			log.FieldError, err,
			log.FieldDuration, time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: %v", core.ErrInferenceFailed, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", core.ErrInferenceFailed)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	g.logger.DebugContext(ctx, "Gemini request completed",
		log.FieldDuration, time.Since(start).Milliseconds(),
		"response_bytes", b.Len())
	return b.String(), nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
