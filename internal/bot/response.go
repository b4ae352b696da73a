package bot

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"

	"tierbot/internal/chat"
)

type ResponseString struct {
	string
}
type ResponseEmbed struct {
	*discordgo.MessageEmbed
}

type Response interface {
	Outgoing() chat.Outgoing
}

func (response ResponseString) Outgoing() chat.Outgoing {
	return chat.Outgoing{Content: response.string}
}

func (response ResponseEmbed) Outgoing() chat.Outgoing {
	return chat.Outgoing{Embeds: []*discordgo.MessageEmbed{response.MessageEmbed}}
}

// The part of the session used to answer interactions
type interactionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Text commands are answered with one message per response
func sendResponses(ctx context.Context, client chat.Client, channelId string, responses []Response) error {
	for _, response := range responses {
		if _, err := client.SendMessage(ctx, channelId, response.Outgoing()); err != nil {
			return err
		}
	}
	return nil
}

// Every response goes in the same message
func mergeResponses(responses []Response) (string, []*discordgo.MessageEmbed) {
	contents := []string{}
	embeds := []*discordgo.MessageEmbed{}
	for _, response := range responses {
		outgoing := response.Outgoing()
		if outgoing.Content != "" {
			contents = append(contents, outgoing.Content)
		}
		embeds = append(embeds, outgoing.Embeds...)
	}
	return strings.Join(contents, "\n"), embeds
}

// An interaction is answered once, so every response goes in the same
// message
func respondInteraction(ctx context.Context, responder interactionResponder, interaction *discordgo.Interaction, responses []Response, ephemeral bool) error {

	data := &discordgo.InteractionResponseData{}
	data.Content, data.Embeds = mergeResponses(responses)
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	return responder.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
}

// Acknowledge the interaction so its token outlives the three seconds
// Discord gives for the first answer. The user sees "thinking" until
// the answer is filled in with editInteraction
func deferInteraction(ctx context.Context, responder interactionResponder, interaction *discordgo.Interaction, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return responder.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
}

func editInteraction(ctx context.Context, responder interactionResponder, interaction *discordgo.Interaction, responses []Response) error {
	content, embeds := mergeResponses(responses)
	_, err := responder.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
		Content: &content,
		Embeds:  &embeds,
	}, discordgo.WithContext(ctx))
	return err
}
