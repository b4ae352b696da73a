package tiering

import (
	"context"
	"sort"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tierbot/internal/chat"
	"tierbot/internal/format"
)

// A static guide posted by a slash command of the same name
type Guide struct {
	Name        string
	Description string
	Embeds      func() []*discordgo.MessageEmbed
}

var guides = map[string]Guide{
	"tierguide": {
		Name:        "tierguide",
		Description: "Posts the guide on how tiering rooms work",
		Embeds:      tieringGuide,
	},
	"roomguide": {
		Name:        "roomguide",
		Description: "Posts the guide on keeping room channel names up to date",
		Embeds:      roomGuide,
	},
}

// Guides lists every guide, sorted by name
func Guides() []Guide {
	all := make([]Guide, 0, len(guides))
	for _, guide := range guides {
		all = append(all, guide)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

func LookupGuide(name string) (Guide, bool) {
	guide, ok := guides[name]
	return guide, ok
}

// PostGuide sends a guide to a channel
func (c *Cog) PostGuide(ctx context.Context, guide Guide, channelId string) error {
	if _, err := c.client.SendMessage(ctx, channelId, chat.Outgoing{Embeds: guide.Embeds()}); err != nil {
		return err
	}
	log.Info().Str("guide", guide.Name).Str("channel", channelId).Msg("Guide posted")
	return nil
}

func tieringGuide() []*discordgo.MessageEmbed {
	intro := format.Embed("Tiering Rooms",
		"Tiering rooms are shared multi-live rooms used to push event points together. "+
			"Every room channel is named after the room it tracks, so anyone can see at a glance "+
			"which rooms are open and how many spots they have left.")
	format.Field(intro, "Reading a room channel",
		"`g1-12345-2`\n"+
			"> `g1-` is the room channel, it never changes\n"+
			"> `12345` is the room code to join in game\n"+
			"> `-2` is the number of open spots, `-f` means the room is full\n"+
			"`g1-xxxxx` means the room is closed.")
	format.Field(intro, "Joining",
		"Check the channel name, join with the room code and say hi in the channel. "+
			"Follow the pins of the room for the song and the skill order.")

	rules := format.Embed("Room Etiquette",
		"※ Do not leave mid song.\n"+
			"※ Tell the room before you leave so someone can fill your spot.\n"+
			"※ Keep the channel for the room, use the general channels for chatting.")
	return []*discordgo.MessageEmbed{intro, rules}
}

func roomGuide() []*discordgo.MessageEmbed {
	embed := format.Embed("Updating the Room Name",
		"Room managers keep the channel name current so the server list stays accurate.")
	format.Field(embed, "/room roomcode spots",
		"Sets the room code and the open spots. Both are optional:\n"+
			"> `/room roomcode:12345 spots:2` new room with two spots\n"+
			"> `/room spots:0` the room is full\n"+
			"> `/room` closes the room")
	format.Field(embed, "%room [room code] [open spots]",
		"Same as above from a text message, e.g. `%room 12345 1`, `%room 3` or `%room f`. "+
			"It can only be used twice every ten minutes per channel.")
	format.Field(embed, "Channel names",
		"Discord only allows two channel renames every ten minutes. If the name does not change, wait a bit before trying again.")
	return []*discordgo.MessageEmbed{embed}
}
