// Package analysis holds the four analysis stages: skills gap,
// experience/education, scoring and suggestions.
package analysis

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/stage"
)

// complete performs one structured completion under the retry policy. The
// response is decoded inside the attempt, so a malformed answer is not retried.
func complete[T any](ctx context.Context, log *zap.Logger, completer ai.Completer, policy stage.Policy, prompt string, shape schema.Shape) (T, error) {
	return stage.Invoke(ctx, log, policy, func(callCtx context.Context) (T, error) {
		var out T
		raw, err := completer.Complete(callCtx, prompt, shape)
		if err != nil {
			return out, err
		}
		if err := schema.DecodeResponse(raw, shape, &out); err != nil {
			return out, err
		}
		return out, nil
	})
}

func fill(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

func invalidInput(name stage.Name, err error) error {
	return stage.Fail(name, stage.CauseInvalidInput, err)
}
