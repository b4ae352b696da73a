package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"tierbot/internal/chat"
	"tierbot/internal/common"
	"tierbot/internal/format"
	"tierbot/internal/pubcord"
	"tierbot/internal/room"
)

func InputNotValid(errorMessage string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Input not valid: \n> %s", errorMessage)}}
}

func HelpMessage(prefix string) []Response {

	embed := discordgo.MessageEmbed{Title: "Commands available", Color: format.Color}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%sroom [room_code] [open_spots]`", prefix),
		Value:  "Change the room code and open spots in the channel name. Without arguments, close the room. Also `rm`",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%scurrentstatus [message_id]`", prefix),
		Value:  "Post the purpose of the channel, or rewrite the given message and the Q&A with it",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%smaintenance <version> <start_unix> <end_unix>`", prefix),
		Value:  "Post a maintenance notice when the maintenance starts and delete it when it ends",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%sdelmaintenance <channel> <message_id> <end_unix>`", prefix),
		Value:  "Delete an existing maintenance notice when the maintenance ends",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%smaintenance list`", prefix),
		Value:  "List the maintenance notices still to be posted or deleted in this server",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%smodrole <role>`", prefix),
		Value:  "Set the role allowed to manage the status messages of this server",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%shelp`", prefix),
		Value:  "Print the usage of the different commands",
		Inline: false,
	})
	return []Response{ResponseEmbed{&embed}}
}

func NotAllowed() []Response {
	return []Response{ResponseEmbed{format.Embed("Not Allowed", "You do not have permission to use this command.")}}
}

func NotAvailable(command string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Command `%s` is not enabled in this bot", command)}}
}

func ModRoleChanged(roleId string) []Response {
	return []Response{ResponseEmbed{format.Embed("Mod Role Updated", fmt.Sprintf("<@&%s> can now manage the status messages of this server.", roleId))}}
}

func DeletionScheduled(channelId string, messageId string, end int64) []Response {
	return []Response{ResponseEmbed{format.Embed("Deletion Scheduled",
		fmt.Sprintf("Message %s in <#%s> will be deleted at %s.", messageId, channelId, format.Timestamp(end)))}}
}

func MaintenanceList(pending []pubcord.Pending) []Response {
	if len(pending) == 0 {
		return []Response{ResponseEmbed{format.Embed("Scheduled Maintenance", "Nothing is scheduled in this server.")}}
	}
	embed := format.Embed("Scheduled Maintenance", "")
	for _, task := range pending {
		action := "Notice posted until"
		if task.Kind == "delete" {
			action = "Message deleted at"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   task.Id.String(),
			Value:  fmt.Sprintf("%s %s in <#%s>", action, format.Timestamp(task.Until.Unix()), task.ChannelId),
			Inline: false,
		})
	}
	return []Response{ResponseEmbed{embed}}
}

func GuidePosted(guide string, channelId string) []Response {
	return []Response{ResponseEmbed{format.Embed("Guide Posted", fmt.Sprintf("Posted the %s in <#%s>.", guide, channelId))}}
}

// ErrorResponses turns the errors users can do something about into
// replies. Anything else is not for the user to see
func ErrorResponses(err error) ([]Response, bool) {

	var formatErr *room.FormatError
	var validationErr *room.ValidationError
	var limitedErr *common.RateLimitedError
	var windowErr *pubcord.WindowError

	switch {
	case errors.As(err, &formatErr):
		return []Response{ResponseEmbed{format.Embed("Invalid Channel",
			fmt.Sprintf("This is not a valid tiering channel. Please match the format g#-%s to use this command.", room.Placeholder))}}, true
	case errors.As(err, &validationErr):
		return []Response{ResponseEmbed{format.Embed("Input Error",
			fmt.Sprintf("`%s` is not a valid option for %s: %s.", validationErr.Value, validationErr.Field, validationErr.Reason))}}, true
	case errors.As(err, &limitedErr):
		return []Response{ResponseEmbed{format.Embed("Slow Down",
			fmt.Sprintf("Channel names can only be changed twice every ten minutes. Try again in %s.", limitedErr.RetryAfter.Round(time.Second)))}}, true
	case errors.As(err, &windowErr):
		return []Response{ResponseEmbed{format.Embed("Invalid Maintenance",
			fmt.Sprintf("The maintenance has to end after it starts (%s to %s).", format.Timestamp(windowErr.Start.Unix()), format.Timestamp(windowErr.End.Unix())))}}, true
	case errors.Is(err, chat.ErrNotFound):
		return []Response{ResponseEmbed{format.Embed("Not Found", "Could not find that message or channel.")}}, true
	case errors.Is(err, chat.ErrPermission):
		return []Response{ResponseEmbed{format.Embed("Missing Permissions", "I am not allowed to do that here.")}}, true
	}
	return nil, false
}

func SomethingWentWrong() []Response {
	return []Response{ResponseString{"Something went wrong, the error has been logged"}}
}
