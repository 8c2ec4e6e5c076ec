package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/domain/workflow"
)

// ErrSuggestionsDisabled is returned when no suggestion backend is configured
var ErrSuggestionsDisabled = errors.New("document content suggestions are disabled")

// SuggestionService drafts letter text for a submitter
type SuggestionService interface {
	Suggest(ctx context.Context, form *entity.SubmissionForm) (string, error)
}

type suggestionServiceImpl struct {
	suggester port.Suggester
	logger    Logger
}

// NewSuggestionService creates a SuggestionService. A nil suggester disables it.
func NewSuggestionService(suggester port.Suggester, logger Logger) SuggestionService {
	return &suggestionServiceImpl{
		suggester: suggester,
		logger:    logger,
	}
}

func (s *suggestionServiceImpl) Suggest(ctx context.Context, form *entity.SubmissionForm) (string, error) {
	if s.suggester == nil {
		return "", ErrSuggestionsDisabled
	}
	if form == nil || strings.TrimSpace(form.Purpose) == "" {
		return "", fmt.Errorf("%w: purpose is required for a suggestion", workflow.ErrValidation)
	}

	text, err := s.suggester.SuggestContent(ctx, sanitizeForm(form))
	if err != nil {
		s.logger.Error("Suggestion failed", "error", err)
		return "", fmt.Errorf("failed to suggest document content: %w", err)
	}
	return strings.TrimSpace(text), nil
}
