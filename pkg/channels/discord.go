package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/dotsetgreg/dotchat/pkg/bus"
	"github.com/dotsetgreg/dotchat/pkg/config"
	"github.com/dotsetgreg/dotchat/pkg/logger"
)

const (
	sendTimeout           = 10 * time.Second
	typingRefreshInterval = 8 * time.Second

	// Discord caps messages at 2000 characters; leave headroom so a
	// split can extend to close a code fence.
	discordChunkLimit = 1500
)

type DiscordChannel struct {
	*BaseChannel
	session  *discordgo.Session
	config   config.DiscordConfig
	typing   map[string]*typingSession
	typingMu sync.Mutex
}

type typingSession struct {
	pending int
	cancel  context.CancelFunc
}

func NewDiscordChannel(cfg config.DiscordConfig, messageBus *bus.MessageBus) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", messageBus, cfg.AllowFrom),
		session:     session,
		config:      cfg,
		typing:      make(map[string]*typingSession),
	}, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	logger.InfoC("discord", "Starting Discord bot")

	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	c.setRunning(true)

	botUser, err := c.session.User("@me")
	if err != nil {
		return fmt.Errorf("get bot user: %w", err)
	}
	logger.InfoCF("discord", "Discord bot connected", map[string]interface{}{
		"username": botUser.Username,
		"user_id":  botUser.ID,
	})

	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	logger.InfoC("discord", "Stopping Discord bot")
	c.setRunning(false)
	c.stopAllTyping()

	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}

	return nil
}

func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord bot not running")
	}
	if msg.ChatID == "" {
		return fmt.Errorf("chat ID is empty")
	}
	defer c.endTyping(msg.ChatID)

	if strings.TrimSpace(msg.Content) == "" {
		return nil
	}

	for _, chunk := range splitMessage(msg.Content, discordChunkLimit) {
		if err := c.sendChunk(ctx, msg.ChatID, chunk); err != nil {
			return err
		}
	}

	return nil
}

// splitMessage splits long content into chunks at natural boundaries,
// extending a chunk when needed so a code fence is not cut in half.
func splitMessage(content string, limit int) []string {
	var messages []string

	for len(content) > 0 {
		if len(content) <= limit {
			messages = append(messages, content)
			break
		}

		msgEnd := lastBoundary(content[:limit])

		// Do not end a chunk inside an open code fence.
		if openIdx := unclosedFenceStart(content[:msgEnd]); openIdx >= 0 {
			extended := limit + 500
			if len(content) <= extended {
				msgEnd = len(content)
			} else if closing := fenceCloseAfter(content, msgEnd); closing > 0 && closing <= extended {
				msgEnd = closing
			} else if cut := lastBoundary(content[:openIdx]); cut > 0 {
				msgEnd = cut
			} else {
				msgEnd = openIdx
			}
		}

		if msgEnd <= 0 {
			msgEnd = limit
		}

		messages = append(messages, content[:msgEnd])
		content = strings.TrimSpace(content[msgEnd:])
	}

	return messages
}

// lastBoundary finds a natural split point near the end of s: the last
// newline in the final 200 characters, else the last space in the
// final 100, else len(s).
func lastBoundary(s string) int {
	if idx := lastIndexWithin(s, 200, func(b byte) bool { return b == '\n' }); idx > 0 {
		return idx
	}
	if idx := lastIndexWithin(s, 100, func(b byte) bool { return b == ' ' || b == '\t' }); idx > 0 {
		return idx
	}
	return len(s)
}

func lastIndexWithin(s string, window int, match func(byte) bool) int {
	start := len(s) - window
	if start < 0 {
		start = 0
	}
	for i := len(s) - 1; i >= start; i-- {
		if match(s[i]) {
			return i
		}
	}
	return -1
}

// unclosedFenceStart returns the position of the last ``` with no
// matching close, or -1 when every fence is balanced.
func unclosedFenceStart(text string) int {
	count := 0
	lastOpen := -1
	for i := 0; i+2 < len(text); i++ {
		if text[i] == '`' && text[i+1] == '`' && text[i+2] == '`' {
			if count%2 == 0 {
				lastOpen = i
			}
			count++
			i += 2
		}
	}
	if count%2 == 1 {
		return lastOpen
	}
	return -1
}

// fenceCloseAfter returns the position just past the next ``` at or
// after startIdx, or -1.
func fenceCloseAfter(text string, startIdx int) int {
	for i := startIdx; i+2 < len(text); i++ {
		if text[i] == '`' && text[i+1] == '`' && text[i+2] == '`' {
			return i + 3
		}
	}
	return -1
}

func (c *DiscordChannel) sendChunk(ctx context.Context, channelID, content string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.session.ChannelMessageSend(channelID, content)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("send message timeout: %w", sendCtx.Err())
	}
}

func (c *DiscordChannel) sendTyping(channelID string) {
	if channelID == "" || c.session == nil {
		return
	}
	if err := c.session.ChannelTyping(channelID); err != nil {
		logger.ErrorCF("discord", "Failed to send typing indicator", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (c *DiscordChannel) beginTyping(channelID string) {
	if channelID == "" {
		return
	}

	c.typingMu.Lock()
	if sess, ok := c.typing[channelID]; ok {
		sess.pending++
		c.typingMu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.typing[channelID] = &typingSession{
		pending: 1,
		cancel:  cancel,
	}
	c.typingMu.Unlock()

	c.sendTyping(channelID)

	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.IsRunning() {
					return
				}
				c.sendTyping(channelID)
			}
		}
	}()
}

func (c *DiscordChannel) endTyping(channelID string) {
	if channelID == "" {
		return
	}

	c.typingMu.Lock()
	defer c.typingMu.Unlock()

	sess, ok := c.typing[channelID]
	if !ok {
		return
	}
	sess.pending--
	if sess.pending > 0 {
		return
	}
	delete(c.typing, channelID)
	sess.cancel()
}

func (c *DiscordChannel) stopAllTyping() {
	c.typingMu.Lock()
	defer c.typingMu.Unlock()

	for channelID, sess := range c.typing {
		sess.cancel()
		delete(c.typing, channelID)
	}
}

func (c *DiscordChannel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil {
		return
	}
	if m.Author.ID == s.State.User.ID {
		return
	}
	if !c.IsAllowed(m.Author.ID) {
		logger.DebugCF("discord", "Message rejected by allowlist", map[string]interface{}{
			"user_id": m.Author.ID,
		})
		return
	}

	content := m.Content
	for _, attachment := range m.Attachments {
		if content != "" {
			content += "\n"
		}
		content += fmt.Sprintf("[attachment: %s]", attachment.URL)
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	c.beginTyping(m.ChannelID)

	logger.DebugCF("discord", "Received message", map[string]interface{}{
		"sender_id": m.Author.ID,
		"channel":   m.ChannelID,
	})

	metadata := map[string]string{
		"message_id": m.ID,
		"username":   m.Author.Username,
		"guild_id":   m.GuildID,
		"is_dm":      fmt.Sprintf("%t", m.GuildID == ""),
	}

	c.HandleMessage(m.Author.ID, m.Author.Username, m.ChannelID, content, metadata)
}
