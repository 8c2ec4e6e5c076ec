package dispatcher

import (
	"context"

	"github.com/garyjia/approval-letters/internal/domain/event"
)

// Handler processes request lifecycle events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler. Types is empty for handlers that
// receive every event.
type HandlerInfo struct {
	Name    string
	Types   []event.Type
	Handler Handler
}

func (h HandlerInfo) accepts(t event.Type) bool {
	if len(h.Types) == 0 {
		return true
	}
	for _, want := range h.Types {
		if want == t {
			return true
		}
	}
	return false
}
