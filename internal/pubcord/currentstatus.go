package pubcord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tierbot/internal/chat"
	"tierbot/internal/common"
	"tierbot/internal/format"
)

func purposeEmbed() *discordgo.MessageEmbed {
	return format.Embed("Purpose of #announcements-en",
		"This channel will feature important announcements like events and maintenance for the EN Bandori Server.")
}

func questionsEmbed() *discordgo.MessageEmbed {
	return format.Embed("Common Q&A We Have Been Seeing",
		"**Q:** Are we skipping events?\n"+
			"**A:** No, we are not skipping any events. This is confirmed by our community manager.\n\n"+
			"**Q:** Are we not getting the collab anymore? What is the next event?\n"+
			"**A:** We will still get the collab, but it is postponed. We don't know what the next event is as the schedule is being shuffled.\n\n"+
			"**Q:** Will we get compensated for this delay?\n"+
			"**A:** Yes, this is confirmed, but the amount is currently unknown.")
}

// CanManageStatus decides who may use the status commands: anyone who can
// manage messages, anyone with the guild's modrole, or anyone in the
// primary guild
func CanManageStatus(primaryGuildId string, guildId string, manageMessages bool, modRole string, memberRoles []string) bool {
	return manageMessages || common.HasRole(modRole, memberRoles) || (primaryGuildId != "" && guildId == primaryGuildId)
}

// CurrentStatus posts the channel purpose embed. Given a message id, it
// rewrites that message and the Q&A message instead, then removes the
// command message
func (c *Cog) CurrentStatus(ctx context.Context, channelId string, messageId string, commandMessageId string) error {

	if messageId == "" {
		_, err := c.client.SendMessage(ctx, channelId, chat.Outgoing{Embeds: []*discordgo.MessageEmbed{purposeEmbed()}})
		return err
	}

	if _, err := c.client.FetchMessage(ctx, channelId, messageId); err != nil {
		return err
	}
	if err := c.client.EditMessage(ctx, channelId, messageId, chat.Outgoing{Embeds: []*discordgo.MessageEmbed{purposeEmbed()}}); err != nil {
		return err
	}
	if c.cfg.QaMessageId != "" {
		if err := c.client.EditMessage(ctx, channelId, c.cfg.QaMessageId, chat.Outgoing{Embeds: []*discordgo.MessageEmbed{questionsEmbed()}}); err != nil {
			return err
		}
	}
	log.Info().Str("message", messageId).Msg("Status messages updated")
	return c.client.DeleteMessage(ctx, channelId, commandMessageId)
}
