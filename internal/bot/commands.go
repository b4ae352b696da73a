package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tierbot/internal/room"
	"tierbot/internal/tiering"
)

const (
	SLASH_ROOM     = "room"
	optionRoomCode = "roomcode"
	optionSpots    = "spots"
	optionChannel  = "channel"
)

// The part of the session used to register slash commands
type commandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Commands lists the slash commands of the tiering cog
func Commands() []*discordgo.ApplicationCommand {

	minSpots := 0.0
	commands := []*discordgo.ApplicationCommand{{
		Name:        SLASH_ROOM,
		Description: "Changes the room code and the open spots of this room channel",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optionRoomCode,
				Description: "5 digit room code, anything else closes the room",
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        optionSpots,
				Description: "Open spots, 0 when the room is full",
				MinValue:    &minSpots,
				MaxValue:    float64(room.MaxSlots),
			},
		},
	}}

	for _, guide := range tiering.Guides() {
		commands = append(commands, &discordgo.ApplicationCommand{
			Name:        guide.Name,
			Description: guide.Description,
			Options: []*discordgo.ApplicationCommandOption{{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         optionChannel,
				Description:  "Where to post the guide, this channel by default",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			}},
		})
	}
	return commands
}

// RegisterCommands replaces the slash commands of every guild given, or
// the global ones when there are none
func RegisterCommands(registrar commandRegistrar, appId string, guildIds []string) error {

	if len(guildIds) == 0 {
		guildIds = []string{""}
	}
	for _, guildId := range guildIds {
		registered, err := registrar.ApplicationCommandBulkOverwrite(appId, guildId, Commands())
		if err != nil {
			return err
		}
		log.Info().Str("guild", guildId).Int("commands", len(registered)).Msg("Slash commands registered")
	}
	return nil
}
