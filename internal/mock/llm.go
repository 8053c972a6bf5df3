package mock

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// LLM is a test double for llms.Model. It records every prompt and the call
// options it was given.
type LLM struct {
	// Responses are returned as candidates, in order. Defaults to a single "ok".
	Responses []string
	// Err is returned instead of a response when set.
	Err error
	// GenerateFunc replaces the default behaviour when set.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
	options []llms.CallOptions
}

func NewLLM(responses ...string) *LLM {
	return &LLM{Responses: responses}
}

func (m *LLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var prompt string
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text
			}
		}
	}
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, opts)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.GenerateFunc != nil {
		text, err := m.GenerateFunc(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
	}

	responses := m.Responses
	if responses == nil {
		responses = []string{"ok"}
	}
	choices := make([]*llms.ContentChoice, 0, len(responses))
	for _, r := range responses {
		choices = append(choices, &llms.ContentChoice{Content: r})
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

func (m *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Prompts returns the prompts received so far.
func (m *LLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Options returns the call options received so far.
func (m *LLM) Options() []llms.CallOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llms.CallOptions(nil), m.options...)
}
