package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/approval-letters/internal/domain/entity"
)

// ErrEmptyResponse is returned when the model produced no usable text
var ErrEmptyResponse = errors.New("no response from OpenAI")

// ChatClient is the part of the go-openai client the suggester needs
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds connection settings for the suggester
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Suggester implements port.Suggester using chat completions
type Suggester struct {
	client  ChatClient
	model   string
	timeout time.Duration
	prompts *PromptConfig
	logger  *zap.Logger
}

// NewSuggester creates a suggester backed by the OpenAI API
func NewSuggester(cfg Config, prompts *PromptConfig, logger *zap.Logger) *Suggester {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return NewSuggesterWithClient(openai.NewClientWithConfig(clientCfg), cfg, prompts, logger)
}

// NewSuggesterWithClient creates a suggester over an existing chat client
func NewSuggesterWithClient(client ChatClient, cfg Config, prompts *PromptConfig, logger *zap.Logger) *Suggester {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Suggester{
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
		prompts: prompts,
		logger:  logger,
	}
}

type promptData struct {
	SubmitterName    string
	SubmitterEmail   string
	OrganisationName string
	SubmitterIDNo    string
	Purpose          string
	RequestDate      string
	RequestTime      string
	NumberOfItems    int
	Items            []string
}

func newPromptData(form *entity.SubmissionForm) promptData {
	return promptData{
		SubmitterName:    form.SubmitterName,
		SubmitterEmail:   form.SubmitterEmail,
		OrganisationName: form.OrganisationName,
		SubmitterIDNo:    form.SubmitterIDNo,
		Purpose:          form.Purpose,
		RequestDate:      form.RequestDate,
		RequestTime:      form.RequestTime,
		NumberOfItems:    form.NumberOfItems,
		Items:            form.SelectedItems(),
	}
}

// SuggestContent drafts a letter body from the submission form
func (s *Suggester) SuggestContent(ctx context.Context, form *entity.SubmissionForm) (string, error) {
	p := s.prompts.DocumentSuggestion

	userPrompt, err := renderTemplate(p.UserTemplate, newPromptData(form))
	if err != nil {
		return "", err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		s.logger.Error("OpenAI API call failed", zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}

	s.logger.Info("Document content suggested",
		zap.String("model", s.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)))

	return content, nil
}
