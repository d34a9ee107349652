package stream

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/gencraft/gencraft/internal/conversation"
	"github.com/gencraft/gencraft/internal/log"
)

// GeminiConfig contains required parameters for the Gemini generator.
type GeminiConfig struct {
	Model  string
	Logger log.Logger

	// RateLimiter throttles generation calls proactively.
	// nil = use default (10 req/s sustained, burst of 30).
	RateLimiter *rate.Limiter
}

// Gemini generates answers by streaming from the Gemini API.
// It implements Generator.
type Gemini struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	logger  log.Logger
}

// NewGemini creates a Gemini generator. The API key is read from the
// GEMINI_API_KEY environment variable by the underlying client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Gemini{
		client:  client,
		model:   cfg.Model,
		limiter: limiter,
		logger:  cfg.Logger,
	}, nil
}

// Generate streams text increments for req from the Gemini API.
// Normal end-of-stream ends the sequence; transport failures arrive as a
// single error element.
func (g *Gemini) Generate(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := g.limiter.Wait(ctx); err != nil {
			yield("", fmt.Errorf("rate limit wait: %w", err))
			return
		}

		contents := buildContents(req)
		g.logger.Debug("starting generation stream",
			"model", g.model,
			"history_turns", len(req.History),
			"has_payload", req.Payload != nil)

		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, nil) {
			if err != nil {
				yield("", err)
				return
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

// buildContents maps the prior history plus the new turn onto the wire
// shape: an ordered sequence of {role, parts:[{text}]} with the attachment
// payload, when present, leading the new turn's parts.
func buildContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := genai.Role(genai.RoleUser)
		if turn.Role == conversation.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}

	parts := make([]*genai.Part, 0, 2)
	if req.Payload != nil {
		parts = append(parts, req.Payload)
	}
	if req.Text != "" {
		parts = append(parts, genai.NewPartFromText(req.Text))
	}
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	return contents
}
