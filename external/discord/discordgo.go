package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/foxseedlab/kikitori/internal/relay"
)

const maxMessageRunes = 2000

var ErrChannelNotFound = errors.New("discord channel not found")

// ChannelSender posts final transcripts to a text channel through the REST API. It never
// opens a gateway connection.
type ChannelSender struct {
	session   *discordgo.Session
	channelID string
}

func NewChannelSender(token, channelID string) (*ChannelSender, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &ChannelSender{session: s, channelID: channelID}, nil
}

func (c *ChannelSender) Name() string {
	return "discord"
}

func (c *ChannelSender) Send(ctx context.Context, event relay.Event) error {
	_, err := c.session.ChannelMessageSend(c.channelID, formatMessage(event), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("post transcript to channel %s: %w", c.channelID, err)
	}
	return nil
}

func (c *ChannelSender) Close() error {
	return nil
}

// ResolveChannelName looks the target channel up in the state cache first and falls
// back to REST.
func (c *ChannelSender) ResolveChannelName() (string, error) {
	if c.session.State != nil {
		channel, err := c.session.State.Channel(c.channelID)
		if err == nil && channel != nil && channel.Name != "" {
			return channel.Name, nil
		}
	}
	channel, err := c.session.Channel(c.channelID)
	if err != nil {
		if isRESTNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrChannelNotFound, c.channelID)
		}
		return "", err
	}
	if channel == nil {
		return "", fmt.Errorf("%w: %s", ErrChannelNotFound, c.channelID)
	}
	return channel.Name, nil
}

func formatMessage(event relay.Event) string {
	msg := fmt.Sprintf("`#%d` %s", event.Index+1, event.Transcript)
	if utf8.RuneCountInString(msg) <= maxMessageRunes {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:maxMessageRunes-1]) + "…"
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}
