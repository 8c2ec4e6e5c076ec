package workflow

import "github.com/garyjia/approval-letters/internal/domain/entity"

// State is a request status as seen by the state machine
type State = entity.Status
