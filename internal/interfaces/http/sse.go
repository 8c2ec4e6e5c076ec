package http

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/approval-letters/internal/application/feed"
	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/domain/view"
	"github.com/garyjia/approval-letters/internal/domain/workflow"
)

// FeedSubscriber opens live snapshot feeds
type FeedSubscriber interface {
	Subscribe(ctx context.Context, filter feed.Filter) (<-chan feed.Snapshot, func(), error)
}

// SnapshotResponse is one pushed record set
type SnapshotResponse struct {
	Requests []RequestResponse `json:"requests"`
	At       time.Time         `json:"at"`
}

// StreamRequest handles GET /api/requests/:id/stream
func (h *Handlers) StreamRequest(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.requests.Get(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	h.stream(c, feed.ForRequest(id))
}

// StreamRequests handles GET /api/admin/requests/stream?tab=
func (h *Handlers) StreamRequests(c *gin.Context) {
	if ActorFrom(c) == nil {
		h.writeError(c, workflow.ErrUnauthenticated)
		return
	}

	tab, err := view.ParseTab(c.Query("tab"))
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}
	h.stream(c, feed.ForTab(tab))
}

func (h *Handlers) stream(c *gin.Context, filter feed.Filter) {
	ctx := c.Request.Context()
	snapshots, cancel, err := h.feed.Subscribe(ctx, filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer cancel()

	actor := ActorFrom(c)

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// Heartbeat ticker
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-snapshots:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", newSnapshotResponse(snap, actor))
			return true
		case <-heartbeat.C:
			_, err := io.WriteString(w, ": keepalive\n\n")
			return err == nil
		}
	})
}

func newSnapshotResponse(snap feed.Snapshot, actor *entity.Actor) SnapshotResponse {
	return SnapshotResponse{
		Requests: newRequestResponses(snap.Requests, actor),
		At:       snap.At,
	}
}
