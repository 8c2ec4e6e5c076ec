package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/application/service"
	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/domain/view"
	"github.com/garyjia/approval-letters/internal/domain/workflow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	requests    service.RequestService
	letters     service.LetterService
	suggestions service.SuggestionService
	feed        FeedSubscriber
	heartbeat   time.Duration
	logger      Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, heartbeat time.Duration, logger Logger) *Handlers {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &Handlers{
		requests:    deps.Requests,
		letters:     deps.Letters,
		suggestions: deps.Suggestions,
		feed:        deps.Feed,
		heartbeat:   heartbeat,
		logger:      logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool                 `json:"success"`
	Data    interface{}          `json:"data,omitempty"`
	Error   string               `json:"error,omitempty"`
	Reason  string               `json:"reason,omitempty"`
	Fields  []service.FieldError `json:"fields,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// RequestResponse is a request as shown to clients. Approvals are ordered by level.
type RequestResponse struct {
	*entity.ApprovalRequest
	Approvals    []entity.ApprovalLogEntry `json:"approvals"`
	Badge        string                    `json:"badge"`
	Progress     view.Progress             `json:"progress"`
	Capabilities service.Capabilities      `json:"capabilities"`
}

func newRequestResponse(req *entity.ApprovalRequest, actor *entity.Actor) RequestResponse {
	return RequestResponse{
		ApprovalRequest: req,
		Approvals:       view.SortApprovals(req.Approvals),
		Badge:           view.BadgeVariant(req.Status),
		Progress:        view.ApprovalProgress(req),
		Capabilities:    service.CapabilitiesFor(req, actor),
	}
}

func newRequestResponses(reqs []*entity.ApprovalRequest, actor *entity.Actor) []RequestResponse {
	out := make([]RequestResponse, len(reqs))
	for i, r := range reqs {
		out[i] = newRequestResponse(r, actor)
	}
	return out
}

// SubmitResponse is returned after a successful submission
type SubmitResponse struct {
	ID     string        `json:"id"`
	Status entity.Status `json:"status"`
}

// RejectRequest is the body of a rejection
type RejectRequest struct {
	Reason string `json:"reason"`
}

// SuggestionResponse carries the drafted letter text
type SuggestionResponse struct {
	Suggestion string `json:"suggestion"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SubmitRequest handles POST /api/requests
func (h *Handlers) SubmitRequest(c *gin.Context) {
	var form entity.SubmissionForm
	if err := c.ShouldBindJSON(&form); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	req, err := h.requests.Submit(c.Request.Context(), &form)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    SubmitResponse{ID: req.ID, Status: req.Status},
	})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    newRequestResponse(req, ActorFrom(c)),
	})
}

// ListRequests handles GET /api/admin/requests?tab=
func (h *Handlers) ListRequests(c *gin.Context) {
	actor := ActorFrom(c)
	if actor == nil {
		h.writeError(c, workflow.ErrUnauthenticated)
		return
	}

	tab, err := view.ParseTab(c.Query("tab"))
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	reqs, err := h.requests.List(c.Request.Context(), tab)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    newRequestResponses(reqs, actor),
	})
}

// ApproveRequest handles POST /api/admin/requests/:id/approve
func (h *Handlers) ApproveRequest(c *gin.Context) {
	actor := ActorFrom(c)
	req, err := h.requests.Approve(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    newRequestResponse(req, actor),
	})
}

// RejectRequest handles POST /api/admin/requests/:id/reject
func (h *Handlers) RejectRequest(c *gin.Context) {
	var body RejectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	actor := ActorFrom(c)
	req, err := h.requests.Reject(c.Request.Context(), c.Param("id"), actor, body.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    newRequestResponse(req, actor),
	})
}

// GetLetter handles GET /api/requests/:id/letter
func (h *Handlers) GetLetter(c *gin.Context) {
	l, err := h.letters.Letter(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: l})
}

// DownloadLetter handles GET /api/requests/:id/letter.xlsx
func (h *Handlers) DownloadLetter(c *gin.Context) {
	data, l, err := h.letters.Workbook(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="approval-letter-%s.xlsx"`, l.RequestID))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Suggest handles POST /api/suggestions
func (h *Handlers) Suggest(c *gin.Context) {
	var form entity.SubmissionForm
	if err := c.ShouldBindJSON(&form); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	text, err := h.suggestions.Suggest(c.Request.Context(), &form)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    SuggestionResponse{Suggestion: text},
	})
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
		Reason:  "validation_failed",
	})
}

// writeError maps application errors onto status codes
func (h *Handlers) writeError(c *gin.Context, err error) {
	resp := Response{Success: false, Error: err.Error()}
	status := http.StatusInternalServerError

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp.Reason = "validation_failed"
		resp.Fields = verr.Fields
	case errors.Is(err, workflow.ErrValidation):
		status = http.StatusBadRequest
		resp.Reason = "validation_failed"
	case errors.Is(err, workflow.ErrUnauthenticated):
		status = http.StatusUnauthorized
		resp.Reason = "unauthenticated"
	case errors.Is(err, port.ErrNotFound):
		status = http.StatusNotFound
		resp.Reason = "not_found"
	case errors.Is(err, workflow.ErrPreconditionFailed):
		status = http.StatusConflict
		resp.Reason = workflow.PreconditionReason(err)
	case errors.Is(err, port.ErrVersionConflict):
		status = http.StatusConflict
		resp.Reason = "concurrent_update"
	case errors.Is(err, port.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
		resp.Reason = "store_unavailable"
	case errors.Is(err, service.ErrSuggestionsDisabled):
		status = http.StatusServiceUnavailable
		resp.Reason = "suggestions_disabled"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err, "path", c.Request.URL.Path, "request_id", c.GetString(requestIDKey))
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	}

	c.JSON(status, resp)
}
