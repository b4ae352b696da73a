// Package chat is the small part of the Discord API the cogs need,
// behind an interface so it can be faked in tests.
package chat

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrPermission = errors.New("missing permissions")
)

type Message struct {
	ID        string
	ChannelID string
}

type Member struct {
	ID       string
	Roles    []string
	Boosting bool
}

// Something to post or to replace an existing message with
type Outgoing struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
}

type Client interface {
	FetchMessage(ctx context.Context, channelId string, messageId string) (Message, error)
	SendMessage(ctx context.Context, channelId string, outgoing Outgoing) (Message, error)
	EditMessage(ctx context.Context, channelId string, messageId string, outgoing Outgoing) error
	DeleteMessage(ctx context.Context, channelId string, messageId string) error
	LatestMessageId(ctx context.Context, channelId string) (string, error)
	ChannelName(ctx context.Context, channelId string) (string, error)
	ChannelGuildId(ctx context.Context, channelId string) (string, error)
	EditChannelName(ctx context.Context, channelId string, name string) error
	GuildMembers(ctx context.Context, guildId string) ([]Member, error)
	EditMemberRoles(ctx context.Context, guildId string, memberId string, roles []string, reason string) error
}
