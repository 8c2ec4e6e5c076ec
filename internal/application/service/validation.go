package service

import (
	"strings"
	"time"

	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/domain/workflow"
	"github.com/garyjia/approval-letters/pkg/utils"
)

const dateLayout = "2006-01-02"

// FieldError describes one invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every invalid field of a submission.
// It matches workflow.ErrValidation under errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return workflow.ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return workflow.ErrValidation
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// validateSubmission checks form against the submission rules and returns the
// parsed request date. today is the caller's current local date.
func validateSubmission(form *entity.SubmissionForm, today time.Time) (time.Time, error) {
	verr := &ValidationError{}

	if utils.ValidateLength(form.SubmitterName, 2, 100) != nil {
		verr.add("submitter_name", "Name must be between 2 and 100 characters.")
	}
	if utils.ValidateEmail(form.SubmitterEmail) != nil {
		verr.add("submitter_email", "Invalid email address.")
	}
	if utils.ValidateLength(form.OrganisationName, 2, 100) != nil {
		verr.add("organisation_name", "Organisation name must be between 2 and 100 characters.")
	}
	if utils.ValidateLength(form.SubmitterIDNo, 1, 50) != nil {
		verr.add("submitter_id_no", "ID must be between 1 and 50 characters.")
	}
	if utils.ValidateLength(form.Purpose, 10, 1000) != nil {
		verr.add("purpose", "Purpose must be between 10 and 1000 characters.")
	}

	var requestDate time.Time
	if form.RequestDate == "" {
		verr.add("request_date", "A date for the request is required.")
	} else if d, err := time.ParseInLocation(dateLayout, form.RequestDate, today.Location()); err != nil {
		verr.add("request_date", "Date must be in YYYY-MM-DD format.")
	} else {
		yesterday := startOfDay(today).AddDate(0, 0, -1)
		if d.Before(yesterday) {
			verr.add("request_date", "Date cannot be earlier than yesterday.")
		}
		requestDate = d
	}

	if utils.ValidateClockTime(form.RequestTime) != nil {
		verr.add("request_time", "Invalid time format. Use HH:MM.")
	}
	if form.NumberOfItems < 1 {
		verr.add("number_of_items", "Number of items must be at least 1.")
	}

	if !form.Mobile && !form.Laptop && !form.Pendrive && !form.Others {
		verr.add("gadgets", "You must select at least one gadget type.")
	} else if form.Others && strings.TrimSpace(form.OtherItemName) == "" {
		verr.add("other_item_name", "Please specify the name if 'Others' gadget type is selected.")
	}

	if len(verr.Fields) > 0 {
		return time.Time{}, verr
	}
	return requestDate, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sanitizeForm(form *entity.SubmissionForm) *entity.SubmissionForm {
	f := *form
	f.SubmitterName = utils.SanitizeString(f.SubmitterName)
	f.SubmitterEmail = utils.SanitizeString(f.SubmitterEmail)
	f.OrganisationName = utils.SanitizeString(f.OrganisationName)
	f.SubmitterIDNo = utils.SanitizeString(f.SubmitterIDNo)
	f.Purpose = utils.SanitizeString(f.Purpose)
	f.RequestDate = strings.TrimSpace(f.RequestDate)
	f.RequestTime = strings.TrimSpace(f.RequestTime)
	f.OtherItemName = utils.SanitizeString(f.OtherItemName)
	return &f
}
