// Package aitest provides a scripted Completer for tests.
package aitest

import (
	"context"
	"fmt"
	"sync"

	"github.com/spigell/resume-matcher/internal/schema"
)

// Reply is one scripted answer. Block makes the call wait for the context to
// end, which lets tests drive per-call timeouts and cancellation.
type Reply struct {
	Text  string
	Err   error
	Block bool
}

type Call struct {
	Prompt string
	Shape  string
}

// Stub answers each shape from its own queue. When a queue has a single
// reply left it is repeated, so fixed canned answers need one entry.
type Stub struct {
	mu      sync.Mutex
	replies map[string][]Reply
	calls   []Call
}

func NewStub() *Stub {
	return &Stub{replies: make(map[string][]Reply)}
}

// On queues replies for a shape name. The empty name covers free-text prompts.
func (s *Stub) On(shape string, replies ...Reply) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[shape] = append(s.replies[shape], replies...)
	return s
}

// Text is shorthand for a successful reply.
func (s *Stub) Text(shape, text string) *Stub {
	return s.On(shape, Reply{Text: text})
}

func (s *Stub) Complete(ctx context.Context, prompt string, shape schema.Shape) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Prompt: prompt, Shape: shape.Name})
	queue := s.replies[shape.Name]
	if len(queue) == 0 {
		s.mu.Unlock()
		return "", fmt.Errorf("aitest: no reply scripted for shape %q", shape.Name)
	}
	reply := queue[0]
	if len(queue) > 1 {
		s.replies[shape.Name] = queue[1:]
	}
	s.mu.Unlock()

	if reply.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return reply.Text, reply.Err
}

// Calls returns a copy of the recorded calls.
func (s *Stub) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsFor counts the calls made for a shape.
func (s *Stub) CallsFor(shape string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Shape == shape {
			n++
		}
	}
	return n
}
