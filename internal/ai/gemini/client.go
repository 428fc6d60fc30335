package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	Provider            = "gemini"
	defaultModel        = "gemini-2.5-flash"
	defaultMaxLogLength = 200
)

type modelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Options struct {
	Model string
	// RequestsPerSecond paces outgoing calls. Zero disables pacing.
	RequestsPerSecond float64
	MaxLogLength      int
	Logger            *zap.Logger
}

// Generator implements ai.Completer on top of the Google GenAI client.
type Generator struct {
	models    modelClient
	modelName string
	limiter   *rate.Limiter
	logger    *zap.Logger
	maxLogLen int
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey string, opts Options) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, opts), nil
}

func newGenerator(models modelClient, opts Options) *Generator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Generator{
		models:    models,
		modelName: model,
		limiter:   limiter,
		logger:    logger.WithAIFields(opts.Logger, Provider, model),
		maxLogLen: maxLogLen,
	}
}

// Complete sends the prompt to Gemini and returns the concatenated text of the
// response. A non-zero shape switches the response to JSON mode.
func (g *Generator) Complete(ctx context.Context, prompt string, shape schema.Shape) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", classify(ctxErr)
			}
			return "", ai.NewServiceError(ai.KindRateLimited, err)
		}
	}

	var config *genai.GenerateContentConfig
	if !shape.IsZero() {
		config = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	g.logger.Debug("gemini generate content request",
		zap.String("shape", shape.Name),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", classify(err)
	}

	output := responseText(resp)
	if output == "" {
		return "", ai.NewServiceError(ai.KindModelError, errors.New("gemini api returned empty response"))
	}

	g.logger.Debug("gemini generate content response",
		zap.String("shape", shape.Name),
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// classify maps transport and API failures onto the completion service error kinds.
// Parent cancellation is returned as is.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("generate content: %w", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ai.NewServiceError(ai.KindTimeout, err)
	}

	if apiErr, ok := asAPIError(err); ok {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
			return ai.NewServiceError(ai.KindRateLimited, err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return ai.NewServiceError(ai.KindInvalidCredentials, err)
		case apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "api key"):
			return ai.NewServiceError(ai.KindInvalidCredentials, err)
		case apiErr.Code == http.StatusRequestTimeout || apiErr.Code == http.StatusGatewayTimeout:
			return ai.NewServiceError(ai.KindTimeout, err)
		}
	}

	return ai.NewServiceError(ai.KindModelError, err)
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}
