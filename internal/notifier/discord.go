package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

type channelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts a copy of every message to the staff channel.
type DiscordNotifier struct {
	session   channelSender
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	n := &DiscordNotifier{channelID: channelID}
	if session != nil {
		n.session = session
	}
	return n
}

func (n *DiscordNotifier) Notify(_ context.Context, to Recipient, msg Message) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	content := fmt.Sprintf("**%s**\n**To:** %s (%s)\n%s", msg.Title, to.Name, to.Phone, msg.Body)
	if _, err := n.session.ChannelMessageSend(n.channelID, content); err != nil {
		slog.Warn("failed to send discord message", "error", err)
		return err
	}
	return nil
}
