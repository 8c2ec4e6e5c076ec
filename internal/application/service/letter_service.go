package service

import (
	"context"
	"time"

	"github.com/garyjia/approval-letters/internal/domain/workflow"
	"github.com/garyjia/approval-letters/internal/letter"
)

// LetterRenderer turns a letter into a downloadable document
type LetterRenderer interface {
	Render(l *letter.Letter) ([]byte, error)
}

// LetterService produces the authorisation letter of a fully approved request
type LetterService interface {
	Letter(ctx context.Context, id string) (*letter.Letter, error)
	Workbook(ctx context.Context, id string) ([]byte, *letter.Letter, error)
}

type letterServiceImpl struct {
	requests RequestService
	renderer LetterRenderer
	cfg      letter.Config
	logger   Logger
	now      func() time.Time
}

// NewLetterService creates a LetterService
func NewLetterService(requests RequestService, renderer LetterRenderer, cfg letter.Config, logger Logger) LetterService {
	return &letterServiceImpl{
		requests: requests,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *letterServiceImpl) Letter(ctx context.Context, id string) (*letter.Letter, error) {
	req, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !workflow.CanPrint(req) {
		return nil, workflow.ErrNotFullyApproved
	}
	return letter.Project(req, s.now(), s.cfg), nil
}

func (s *letterServiceImpl) Workbook(ctx context.Context, id string) ([]byte, *letter.Letter, error) {
	l, err := s.Letter(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.renderer.Render(l)
	if err != nil {
		s.logger.Error("Failed to render letter", "error", err, "request_id", l.RequestID)
		return nil, nil, err
	}

	s.logger.Info("Letter rendered", "request_id", l.RequestID, "bytes", len(data))
	return data, l, nil
}
