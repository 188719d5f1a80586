package channels

import (
	"context"
	"strings"

	"github.com/dotsetgreg/dotchat/pkg/bus"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
	IsAllowed(senderID string) bool
}

type BaseChannel struct {
	bus       *bus.MessageBus
	running   bool
	name      string
	allowList []string
}

func NewBaseChannel(name string, bus *bus.MessageBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		bus:       bus,
		name:      name,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running
}

// IsAllowed checks the sender against the channel allowlist. An empty
// allowlist admits everyone. Entries match the full sender ID or
// either half of a compound "id|username" identity.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart := senderID
	userPart := ""
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
		userPart = senderID[idx+1:]
	}

	for _, allowed := range c.allowList {
		candidate := strings.TrimSpace(strings.TrimPrefix(allowed, "@"))
		if candidate == "" {
			continue
		}
		if candidate == senderID || candidate == idPart || (userPart != "" && candidate == userPart) {
			return true
		}
	}

	return false
}

// HandleMessage publishes an allowed inbound message onto the bus.
func (c *BaseChannel) HandleMessage(senderID, senderName, chatID, content string, metadata map[string]string) {
	if !c.IsAllowed(senderID) {
		return
	}

	c.bus.PublishInbound(bus.InboundMessage{
		Channel:    c.name,
		SenderID:   senderID,
		SenderName: senderName,
		ChatID:     chatID,
		Content:    content,
		Metadata:   metadata,
	})
}

func (c *BaseChannel) setRunning(running bool) {
	c.running = running
}
