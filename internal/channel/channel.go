// Package channel implements the delivery surfaces (web UI, Telegram)
// through which users talk to the agent.
package channel

import (
	"context"

	"github.com/lakestreetlabs/finquill/internal/agent"
)

// Responder is the agent-facing contract channels depend on.
type Responder interface {
	Respond(ctx context.Context, userInput string) (*agent.Result, error)
	RespondStreaming(ctx context.Context, userInput string, sink agent.EventSink) error
}

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// BaseChannel carries the pieces every channel shares: a name and an
// optional sender allow-list.
type BaseChannel struct {
	name      string
	allowFrom map[string]bool
}

func NewBaseChannel(name string, allowFrom []string) BaseChannel {
	var allowed map[string]bool
	if len(allowFrom) > 0 {
		allowed = make(map[string]bool, len(allowFrom))
		for _, id := range allowFrom {
			allowed[id] = true
		}
	}
	return BaseChannel{name: name, allowFrom: allowed}
}

func (b BaseChannel) Name() string {
	return b.name
}

// IsAllowed reports whether the sender may talk to the agent. An empty
// allow-list admits everyone.
func (b BaseChannel) IsAllowed(senderID string) bool {
	if b.allowFrom == nil {
		return true
	}
	return b.allowFrom[senderID]
}
