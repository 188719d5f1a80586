package channels

import (
	"context"

	"github.com/dotsetgreg/dotchat/pkg/agent"
	"github.com/dotsetgreg/dotchat/pkg/bus"
	"github.com/dotsetgreg/dotchat/pkg/logger"
)

// Bridge drains inbound channel messages, runs each one through the
// orchestrator, and publishes the reply outbound. Channel chats do not
// stream tokens; they get the final text in one message.
type Bridge struct {
	bus  *bus.MessageBus
	orch *agent.Orchestrator
}

func NewBridge(messageBus *bus.MessageBus, orch *agent.Orchestrator) *Bridge {
	return &Bridge{bus: messageBus, orch: orch}
}

// Run blocks until ctx is cancelled or the bus closes.
func (b *Bridge) Run(ctx context.Context) {
	logger.InfoC("channels", "Inbound bridge started")

	for {
		msg, ok := b.bus.ConsumeInbound(ctx)
		if !ok {
			if ctx.Err() != nil {
				logger.InfoC("channels", "Inbound bridge stopped")
				return
			}
			return
		}

		result, err := b.orch.Process(ctx, agent.ChatRequest{
			Message:        msg.Content,
			ConversationID: msg.ConversationID(),
		}, nil)

		reply := ""
		if err != nil {
			logger.ErrorCF("channels", "Exchange failed", map[string]interface{}{
				"channel": msg.Channel,
				"chat_id": msg.ChatID,
				"error":   err.Error(),
			})
			reply = "Sorry, I could not process that message."
		} else {
			reply = result.Content
		}

		b.bus.PublishOutbound(bus.OutboundMessage{
			Channel: msg.Channel,
			ChatID:  msg.ChatID,
			Content: reply,
		})
	}
}
