package queue

import (
	"context"

	"github.com/your-org/vsconsole/pkg/dto"
)

// Local delivers events straight to a handler in process. It stands in for
// NATS when a single server instance runs without a broker.
type Local struct {
	handler EventHandler
}

func NewLocal(handler EventHandler) *Local {
	return &Local{handler: handler}
}

func (l *Local) PublishEvent(ctx context.Context, evt dto.Event) error {
	if l.handler == nil {
		return nil
	}
	return l.handler(ctx, evt)
}
