package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/application/service"
	"github.com/garyjia/approval-letters/internal/domain/workflow"
)

func TestWriteError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(Dependencies{}, 0, nopLogger{})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{"validation fields", &service.ValidationError{Fields: []service.FieldError{{Field: "purpose", Message: "too short"}}}, http.StatusBadRequest, "validation_failed"},
		{"validation", fmt.Errorf("%w: blank id", workflow.ErrValidation), http.StatusBadRequest, "validation_failed"},
		{"unauthenticated", workflow.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"not found", fmt.Errorf("%w: r1", port.ErrNotFound), http.StatusNotFound, "not_found"},
		{"max approvals", workflow.ErrMaxApprovalsReached, http.StatusConflict, "max_approvals_reached"},
		{"version conflict", port.ErrVersionConflict, http.StatusConflict, "concurrent_update"},
		{"store down", fmt.Errorf("failed to get: %w", port.ErrStoreUnavailable), http.StatusServiceUnavailable, "store_unavailable"},
		{"suggestions off", service.ErrSuggestionsDisabled, http.StatusServiceUnavailable, "suggestions_disabled"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			h.writeError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantReason, resp.Reason)
		})
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(Dependencies{}, 0, nopLogger{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	h.writeError(c, errors.New("sql: connection string with password"))

	assert.NotContains(t, w.Body.String(), "password")
}
