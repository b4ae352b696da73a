// Package tiering renames leaderboard room channels and posts the tiering guides.
package tiering

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tierbot/internal/chat"
	"tierbot/internal/common"
	"tierbot/internal/config"
	"tierbot/internal/format"
	"tierbot/internal/metrics"
	"tierbot/internal/room"
)

var spotsRegex = regexp.MustCompile(`^[0-9fF]$`)

const (
	ENTRYPOINT_TEXT  = "text"
	ENTRYPOINT_SLASH = "slash"
)

type Client interface {
	ChannelName(ctx context.Context, channelId string) (string, error)
	EditChannelName(ctx context.Context, channelId string, name string) error
	SendMessage(ctx context.Context, channelId string, outgoing chat.Outgoing) (chat.Message, error)
}

type Cog struct {
	client Client
	// Only the text command is limited
	roomLimiter *common.RateLimiter
}

func New(cfg config.Tiering, client Client) *Cog {
	return &Cog{
		client:      client,
		roomLimiter: common.NewRateLimiter([]common.Restriction{{Requests: cfg.RoomRequests, Duration: cfg.RoomWindow.Duration}}),
	}
}

// RoomText renames the room from the words after the text command.
// Every channel can only do this a few times per window, and invocations
// with wrong arguments count too
func (c *Cog) RoomText(ctx context.Context, channelId string, words []string) (*discordgo.MessageEmbed, error) {
	if err := c.roomLimiter.Allow(channelId); err != nil {
		return nil, err
	}
	update, err := ParseRoomArguments(words)
	if err != nil {
		log.Info().Err(err).Str("channel", channelId).Msg("Room arguments rejected")
		return nil, err
	}
	return c.rename(ctx, channelId, update, ENTRYPOINT_TEXT)
}

// ParseRoomArguments reads [room_code] [open_spots]. The room code comes
// first when given, whatever is not a code is tried as the open spots,
// and the range of the spots is checked when the update is applied
func ParseRoomArguments(words []string) (room.Update, error) {

	var update room.Update
	if len(words) > 2 {
		return update, &room.ValidationError{Field: "room", Value: strings.Join(words, " "), Reason: "expected at most a room code and the open spots"}
	}
	for i, word := range words {
		switch {
		case i == 0 && room.IsCode(word):
			update.Code = word
		case update.Spots == "" && spotsRegex.MatchString(word):
			update.Spots = word
		default:
			return room.Update{}, &room.ValidationError{Field: "room", Value: word, Reason: "expected a room code or the open spots"}
		}
	}
	return update, nil
}

// RoomSlash renames the room from the slash command. Spots are nil
// when the option was left out
func (c *Cog) RoomSlash(ctx context.Context, channelId string, code string, spots *int64) (*discordgo.MessageEmbed, error) {
	update := room.Update{Code: code}
	if spots != nil {
		update.Spots = fmt.Sprint(*spots)
	}
	return c.rename(ctx, channelId, update, ENTRYPOINT_SLASH)
}

func (c *Cog) rename(ctx context.Context, channelId string, update room.Update, entrypoint string) (*discordgo.MessageEmbed, error) {

	currentName, err := c.client.ChannelName(ctx, channelId)
	if err != nil {
		return nil, err
	}
	newName, outcome, err := room.ApplyUpdate(currentName, update)
	if err != nil {
		log.Warn().Err(err).Str("channel", channelId).Msg("Room not changed")
		return nil, err
	}
	if err := c.client.EditChannelName(ctx, channelId, newName); err != nil {
		return nil, err
	}
	metrics.IncRoomRename(entrypoint)
	log.Info().Str("channel", channelId).Str("from", currentName).Str("to", newName).Str("entrypoint", entrypoint).Msg("Room renamed")

	var content string
	switch outcome {
	case room.OUTCOME_CODE_CHANGED:
		content = fmt.Sprintf("Changed name to %s", newName)
	case room.OUTCOME_SPOTS_CHANGED:
		content = fmt.Sprintf("Changed open spots to %s", update.Spots)
	default:
		content = "Closed room"
	}
	return format.Embed("Just this once", content), nil
}
