package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/schema"
)

type fakeModels struct {
	mu      sync.Mutex
	calls   []modelCall
	replies []fakeReply
}

type modelCall struct {
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

type fakeReply struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prompt := ""
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		prompt = contents[0].Parts[0].Text
	}
	f.calls = append(f.calls, modelCall{model: model, prompt: prompt, config: config})

	if len(f.replies) == 0 {
		return nil, errors.New("unexpected call")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply.resp, reply.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestCompleteJoinsTextParts(t *testing.T) {
	models := &fakeModels{replies: []fakeReply{{resp: textResponse(" first ", "", "second")}}}
	g := newGenerator(models, Options{Model: "gemini-test", Logger: zap.NewNop()})

	out, err := g.Complete(context.Background(), "  hello  ", schema.Shape{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "first\nsecond" {
		t.Fatalf("unexpected output %q", out)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}
	call := models.calls[0]
	if call.model != "gemini-test" || call.prompt != "hello" {
		t.Fatalf("unexpected call %+v", call)
	}
	if call.config != nil {
		t.Fatalf("expected no config for free text, got %+v", call.config)
	}
}

func TestCompleteRequestsJSONForShapes(t *testing.T) {
	models := &fakeModels{replies: []fakeReply{{resp: textResponse(`{"suggestions":[]}`)}}}
	g := newGenerator(models, Options{})

	if _, err := g.Complete(context.Background(), "suggest", schema.ShapeSuggestions); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	call := models.calls[0]
	if call.config == nil || call.config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected json response mime type, got %+v", call.config)
	}
	if call.model != defaultModel {
		t.Fatalf("expected default model, got %q", call.model)
	}
}

func TestCompleteEmptyResponseIsModelError(t *testing.T) {
	models := &fakeModels{replies: []fakeReply{{resp: textResponse("  ")}}}
	g := newGenerator(models, Options{})

	_, err := g.Complete(context.Background(), "prompt", schema.Shape{})
	if kind, ok := ai.KindOf(err); !ok || kind != ai.KindModelError {
		t.Fatalf("expected model_error, got %v", err)
	}
}

func TestCompleteRejectsEmptyPrompt(t *testing.T) {
	g := newGenerator(&fakeModels{}, Options{})

	if _, err := g.Complete(context.Background(), "   ", schema.Shape{}); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ai.ErrorKind
	}{
		{"quota", genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}, ai.KindRateLimited},
		{"unauthorized", genai.APIError{Code: http.StatusUnauthorized}, ai.KindInvalidCredentials},
		{"forbidden pointer", &genai.APIError{Code: http.StatusForbidden}, ai.KindInvalidCredentials},
		{"bad key", genai.APIError{Code: http.StatusBadRequest, Message: "API key not valid. Please pass a valid API key."}, ai.KindInvalidCredentials},
		{"gateway timeout", genai.APIError{Code: http.StatusGatewayTimeout}, ai.KindTimeout},
		{"deadline", context.DeadlineExceeded, ai.KindTimeout},
		{"internal", genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}, ai.KindModelError},
		{"unknown", errors.New("boom"), ai.KindModelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := ai.KindOf(classify(tt.err))
			if !ok || kind != tt.kind {
				t.Fatalf("expected %q, got %q (%v)", tt.kind, kind, ok)
			}
		})
	}
}

func TestClassifyKeepsCancellation(t *testing.T) {
	err := classify(context.Canceled)
	if _, ok := ai.KindOf(err); ok {
		t.Fatalf("expected cancellation to carry no service kind, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestCompleteLogsWithModelFields(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	models := &fakeModels{replies: []fakeReply{{resp: textResponse("answer")}}}
	g := newGenerator(models, Options{Model: "gemini-x", MaxLogLength: 3, Logger: zap.New(core)})

	if _, err := g.Complete(context.Background(), "question", schema.Shape{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	entries := observed.FilterMessage("gemini generate content request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["ai_model"] != "gemini-x" || ctx["ai_provider"] != Provider {
		t.Fatalf("unexpected fields %+v", ctx)
	}
	if ctx["prompt_preview"] != "que..." {
		t.Fatalf("expected truncated preview, got %q", ctx["prompt_preview"])
	}
}

func TestCompleteStopsWhenLimiterContextDone(t *testing.T) {
	models := &fakeModels{replies: []fakeReply{{resp: textResponse("one")}, {resp: textResponse("two")}}}
	g := newGenerator(models, Options{RequestsPerSecond: 0.001})

	if _, err := g.Complete(context.Background(), "first", schema.Shape{}); err != nil {
		t.Fatalf("expected first call to pass, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Complete(ctx, "second", schema.Shape{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected a single upstream call, got %d", len(models.calls))
	}
}
