package lark

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/domain/event"
	"github.com/garyjia/approval-letters/internal/domain/view"
)

// Notifier implements port.Notifier by posting IM text messages.
// Administrators hear about every lifecycle event in the admin chat; the
// submitter, when enabled, only hears the final outcome.
type Notifier struct {
	sender          MessageSender
	adminChatID     string
	notifySubmitter bool
	logger          *zap.Logger
}

// NewNotifier creates a Notifier
func NewNotifier(sender MessageSender, cfg Config, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender:          sender,
		adminChatID:     cfg.AdminChatID,
		notifySubmitter: cfg.NotifySubmitter,
		logger:          logger,
	}
}

// Notify sends the messages for evt. Every receiver is attempted even if one fails.
// req may have moved on since evt was raised, so status and outcome come from evt.
func (n *Notifier) Notify(ctx context.Context, evt *event.Event, req *entity.ApprovalRequest) error {
	var errs []error

	if n.adminChatID != "" {
		if _, err := n.sender.SendText(ctx, ReceiveIDChat, n.adminChatID, AdminMessage(evt, req)); err != nil {
			errs = append(errs, fmt.Errorf("admin chat: %w", err))
		}
	}

	if n.notifySubmitter && req.SubmitterEmail != "" && isOutcome(evt) {
		if _, err := n.sender.SendText(ctx, ReceiveIDEmail, req.SubmitterEmail, SubmitterMessage(evt, req)); err != nil {
			errs = append(errs, fmt.Errorf("submitter %s: %w", req.SubmitterEmail, err))
		}
	}

	if len(errs) == 0 {
		n.logger.Debug("Lifecycle notification delivered",
			zap.String("event_type", string(evt.Type)),
			zap.String("request_id", req.ID))
	}
	return errors.Join(errs...)
}

// AdminMessage renders the admin chat text for a lifecycle event
func AdminMessage(evt *event.Event, req *entity.ApprovalRequest) string {
	var b strings.Builder

	switch evt.Type {
	case event.TypeRequestSubmitted:
		fmt.Fprintf(&b, "New approval request from %s (%s)", req.SubmitterName, req.OrganisationName)
	case event.TypeRequestApproved:
		fmt.Fprintf(&b, "Request from %s approved at level %d by %s", req.SubmitterName, evt.GetPayloadInt(event.KeyLevel), evt.GetPayloadString(event.KeyActorID))
	case event.TypeRequestFullyApproved:
		fmt.Fprintf(&b, "Request from %s is fully approved, the letter can be printed", req.SubmitterName)
	case event.TypeRequestRejected:
		fmt.Fprintf(&b, "Request from %s was rejected by %s: %s", req.SubmitterName, evt.GetPayloadString(event.KeyActorID), evt.GetPayloadString(event.KeyReason))
	default:
		fmt.Fprintf(&b, "Request from %s changed", req.SubmitterName)
	}

	fmt.Fprintf(&b, "\nID: %s\nStatus: %s (%s)", req.ID, evt.Status, eventProgress(evt, req))
	if len(req.SelectedItems) > 0 {
		fmt.Fprintf(&b, "\nItems: %s", strings.Join(req.SelectedItems, ", "))
	}
	return b.String()
}

// SubmitterMessage renders the outcome text sent to the submitter
func SubmitterMessage(evt *event.Event, req *entity.ApprovalRequest) string {
	if evt.Type == event.TypeRequestRejected {
		reason := evt.GetPayloadString(event.KeyReason)
		if reason == "" {
			reason = req.RejectionReason
		}
		return fmt.Sprintf("Your approval request %s was rejected. Reason: %s", req.ID, reason)
	}
	return fmt.Sprintf("Your approval request %s is fully approved. The authorisation letter is ready.", req.ID)
}

func isOutcome(evt *event.Event) bool {
	return evt.Type == event.TypeRequestFullyApproved || evt.Type == event.TypeRequestRejected
}

// eventProgress is the approval progress as of evt. Approval events carry
// their level; a rejection freezes the log, so req is accurate for it.
func eventProgress(evt *event.Event, req *entity.ApprovalRequest) view.Progress {
	switch evt.Type {
	case event.TypeRequestSubmitted:
		return view.Progress{Completed: 0, Total: entity.MaxApprovalLevels}
	case event.TypeRequestApproved, event.TypeRequestFullyApproved:
		if level := int(evt.GetPayloadInt(event.KeyLevel)); level > 0 {
			return view.Progress{Completed: level, Total: entity.MaxApprovalLevels}
		}
	}
	return view.ApprovalProgress(req)
}
