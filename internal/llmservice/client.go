package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"constitution-rag/internal/config"
	"constitution-rag/internal/helper"
	"constitution-rag/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

var ErrNoCandidates = errors.New("language model returned no candidates")

var thinkRe = regexp.MustCompile(models.ThinkTag)

// Generator is the part of llms.Model the query workflow uses.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// NewLLM creates the language model client for the configured provider.
func NewLLM(llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Interface("config", map[string]any{
		"provider":    llmConfig.Provider,
		"base_url":    llmConfig.BaseURL,
		"model":       llmConfig.Model,
		"temperature": llmConfig.Temperature,
	}).Msg("Creating language model")

	switch llmConfig.Provider {
	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama: %w", err)
		}
		return llm, nil
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(helper.APIToken(llmConfig.Key)),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", llmConfig.Provider)
	}
}

// GenerateContent sends prompt as a single non-streaming human message and
// returns the text of the first candidate.
func GenerateContent(ctx context.Context, llm Generator, llmConfig *config.LLMConfig, prompt string) (string, error) {
	msgContent := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	res, err := llm.GenerateContent(ctx, msgContent, llms.WithTemperature(llmConfig.Temperature))
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	if res == nil || len(res.Choices) == 0 || res.Choices[0] == nil {
		return "", ErrNoCandidates
	}

	answer := res.Choices[0].Content
	if llmConfig.StripReasoning {
		answer = StripReasoning(answer)
	}
	return answer, nil
}

// StripReasoning removes <think>...</think> blocks emitted by reasoning models.
func StripReasoning(text string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(text, ""))
}
