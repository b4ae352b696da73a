// Package format builds the embeds every command replies with, so all of
// them share the same look.
package format

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Use "teal" color for the bot
const Color int = 0x008080

// Thumbnail shown on every embed
const Thumbnail = "https://files.s-neon.xyz/share/kanon_thumb.png"

// Embed creates an embed with the bot colour and thumbnail
func Embed(title string, content string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: content,
		Color:       Color,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: Thumbnail},
	}
}

// Field appends a field to the embed and returns it
func Field(embed *discordgo.MessageEmbed, name string, value string) *discordgo.MessageEmbed {
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: name, Value: value, Inline: false})
	return embed
}

func Image(embed *discordgo.MessageEmbed, url string) *discordgo.MessageEmbed {
	embed.Image = &discordgo.MessageEmbedImage{URL: url}
	return embed
}

func Footer(embed *discordgo.MessageEmbed, text string) *discordgo.MessageEmbed {
	embed.Footer = &discordgo.MessageEmbedFooter{Text: text}
	return embed
}

// Timestamp renders unix seconds so every reader sees their own timezone
func Timestamp(unix int64) string {
	return fmt.Sprintf("<t:%d>", unix)
}
