package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Discord members endpoint returns at most this many members per page
const membersPageSize = 1000

// Client backed by a discordgo session
type Discord struct {
	session *discordgo.Session
}

func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func (d *Discord) FetchMessage(ctx context.Context, channelId string, messageId string) (Message, error) {
	message, err := d.session.ChannelMessage(channelId, messageId, discordgo.WithContext(ctx))
	if err != nil {
		return Message{}, wrap(err, "fetch message %s in channel %s", messageId, channelId)
	}
	return Message{ID: message.ID, ChannelID: message.ChannelID}, nil
}

func (d *Discord) SendMessage(ctx context.Context, channelId string, outgoing Outgoing) (Message, error) {
	message, err := d.session.ChannelMessageSendComplex(channelId, &discordgo.MessageSend{
		Content:    outgoing.Content,
		Embeds:     outgoing.Embeds,
		Components: outgoing.Components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return Message{}, wrap(err, "send message to channel %s", channelId)
	}
	return Message{ID: message.ID, ChannelID: message.ChannelID}, nil
}

func (d *Discord) EditMessage(ctx context.Context, channelId string, messageId string, outgoing Outgoing) error {
	edit := discordgo.NewMessageEdit(channelId, messageId)
	if outgoing.Content != "" {
		edit.SetContent(outgoing.Content)
	}
	if outgoing.Embeds != nil {
		edit.SetEmbeds(outgoing.Embeds)
	}
	if outgoing.Components != nil {
		edit.Components = &outgoing.Components
	}
	if _, err := d.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return wrap(err, "edit message %s in channel %s", messageId, channelId)
	}
	return nil
}

func (d *Discord) DeleteMessage(ctx context.Context, channelId string, messageId string) error {
	if err := d.session.ChannelMessageDelete(channelId, messageId, discordgo.WithContext(ctx)); err != nil {
		return wrap(err, "delete message %s in channel %s", messageId, channelId)
	}
	return nil
}

// The last message id cached in the state is only set when the guild is
// received, so the newest message is always asked to the API
func (d *Discord) LatestMessageId(ctx context.Context, channelId string) (string, error) {
	messages, err := d.session.ChannelMessages(channelId, 1, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return "", wrap(err, "fetch latest message in channel %s", channelId)
	}
	if len(messages) == 0 {
		return "", nil
	}
	return messages[0].ID, nil
}

func (d *Discord) ChannelName(ctx context.Context, channelId string) (string, error) {
	channel, err := d.channel(ctx, channelId)
	if err != nil {
		return "", err
	}
	return channel.Name, nil
}

func (d *Discord) ChannelGuildId(ctx context.Context, channelId string) (string, error) {
	channel, err := d.channel(ctx, channelId)
	if err != nil {
		return "", err
	}
	return channel.GuildID, nil
}

func (d *Discord) EditChannelName(ctx context.Context, channelId string, name string) error {
	if _, err := d.session.ChannelEdit(channelId, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx)); err != nil {
		return wrap(err, "rename channel %s to %s", channelId, name)
	}
	return nil
}

func (d *Discord) GuildMembers(ctx context.Context, guildId string) ([]Member, error) {

	members := []Member{}
	after := ""
	for {
		page, err := d.session.GuildMembers(guildId, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, wrap(err, "list members of guild %s", guildId)
		}
		// Members without a user cannot be paged from
		last := ""
		for _, member := range page {
			if member.User == nil {
				continue
			}
			last = member.User.ID
			members = append(members, Member{
				ID:       member.User.ID,
				Roles:    member.Roles,
				Boosting: member.PremiumSince != nil,
			})
		}
		if len(page) < membersPageSize || last == "" {
			break
		}
		after = last
	}
	log.Debug().Str("guild", guildId).Int("members", len(members)).Msg("Listed guild members")
	return members, nil
}

func (d *Discord) EditMemberRoles(ctx context.Context, guildId string, memberId string, roles []string, reason string) error {
	_, err := d.session.GuildMemberEdit(guildId, memberId, &discordgo.GuildMemberParams{Roles: &roles},
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return wrap(err, "edit roles of member %s in guild %s", memberId, guildId)
	}
	return nil
}

func (d *Discord) channel(ctx context.Context, channelId string) (*discordgo.Channel, error) {
	if channel, err := d.session.State.Channel(channelId); err == nil {
		return channel, nil
	}
	channel, err := d.session.Channel(channelId, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap(err, "fetch channel %s", channelId)
	}
	return channel, nil
}

// Translate the REST errors the cogs care about into the package errors
func wrap(err error, format string, args ...any) error {
	action := fmt.Sprintf(format, args...)
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("could not %s: %w: %w", action, ErrNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("could not %s: %w: %w", action, ErrPermission, err)
		}
	}
	return fmt.Errorf("could not %s: %w", action, err)
}
