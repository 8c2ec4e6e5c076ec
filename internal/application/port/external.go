package port

import (
	"context"

	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/domain/event"
)

// Suggester drafts letter body text from a submission form
type Suggester interface {
	SuggestContent(ctx context.Context, form *entity.SubmissionForm) (string, error)
}

// Notifier delivers a lifecycle event to people outside the system
type Notifier interface {
	Notify(ctx context.Context, evt *event.Event, req *entity.ApprovalRequest) error
}
