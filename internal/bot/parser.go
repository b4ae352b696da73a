package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	COMMAND_ROOM             = iota
	COMMAND_CURRENTSTATUS    = iota
	COMMAND_MAINTENANCE      = iota
	COMMAND_DELMAINTENANCE   = iota
	COMMAND_MODROLE          = iota
	COMMAND_HELP             = iota
	COMMAND_MAINTENANCE_LIST = iota
)

const (
	PARSEID_OK                     = iota
	PARSEID_NO_BOT_PREFIX          = iota
	PARSEID_NO_COMMAND             = iota
	PARSEID_COMMAND_NOT_RECOGNISED = iota
	PARSEID_NO_INPUT               = iota
	PARSEID_TOO_MANY_ARGUMENTS     = iota
	PARSEID_NOT_A_NUMBER           = iota
	PARSEID_NOT_A_CHANNEL          = iota
	PARSEID_NOT_A_ROLE             = iota
)

var errorMessages map[int]string = map[int]string{
	PARSEID_NO_COMMAND:             "No command provided",
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_NO_INPUT:               "Command `%s` is missing arguments",
	PARSEID_TOO_MANY_ARGUMENTS:     "Command `%s` takes fewer arguments",
	PARSEID_NOT_A_NUMBER:           "Input `%s` is not a number",
	PARSEID_NOT_A_CHANNEL:          "Input `%s` is not a channel",
	PARSEID_NOT_A_ROLE:             "Input `%s` is not a role",
}

// Names under which every command can be invoked
var commandNames map[string]int = map[string]int{
	"room":           COMMAND_ROOM,
	"rm":             COMMAND_ROOM,
	"currentstatus":  COMMAND_CURRENTSTATUS,
	"maintenance":    COMMAND_MAINTENANCE,
	"delmaintenance": COMMAND_DELMAINTENANCE,
	"modrole":        COMMAND_MODROLE,
	"help":           COMMAND_HELP,
}

var (
	snowflakeRegex      = regexp.MustCompile(`^\d+$`)
	channelMentionRegex = regexp.MustCompile(`^<#(\d+)>$`)
	roleMentionRegex    = regexp.MustCompile(`^<@&(\d+)>$`)
)

type MaintenanceArguments struct {
	Version string
	Start   int64
	End     int64
}

type DelMaintenanceArguments struct {
	ChannelId string
	MessageId string
	End       int64
}

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
	arguments    interface{}
}

type Parser struct {
	prefix string
}

func NewParser(prefix string) Parser {
	return Parser{prefix: prefix}
}

func (p Parser) Parse(message string) ParseResult {

	// The message has to start with the bot prefix
	if !strings.HasPrefix(message, p.prefix) {
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}

	// Get the command if valid
	words := strings.Fields(message[len(p.prefix):])
	if len(words) == 0 {
		parseid := PARSEID_NO_COMMAND
		return ParseResult{parseid: parseid, errorMessage: errorMessages[parseid]}
	}
	commandString := strings.ToLower(words[0])
	words = words[1:]

	command, ok := commandNames[commandString]
	if !ok {
		log.Debug().Str("command", commandString).Msg("Command not recognised")
		parseid := PARSEID_COMMAND_NOT_RECOGNISED
		return ParseResult{parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}

	switch command {
	case COMMAND_ROOM:
		// room [room_code] [open_spots]
		// The words are checked by the tiering cog, after the rate limit
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: words}
	case COMMAND_CURRENTSTATUS:
		// currentstatus [message_id]
		if len(words) > 1 {
			return failure(command, PARSEID_TOO_MANY_ARGUMENTS, commandString)
		}
		if len(words) == 0 {
			return ParseResult{command: command, parseid: PARSEID_OK, arguments: ""}
		}
		if !snowflakeRegex.MatchString(words[0]) {
			return failure(command, PARSEID_NOT_A_NUMBER, words[0])
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: words[0]}
	case COMMAND_MAINTENANCE:
		// maintenance list
		if len(words) == 1 && strings.ToLower(words[0]) == "list" {
			return ParseResult{command: COMMAND_MAINTENANCE_LIST, parseid: PARSEID_OK}
		}
		// maintenance <version> <start_unix> <end_unix>
		if len(words) < 3 {
			return failure(command, PARSEID_NO_INPUT, commandString)
		}
		if len(words) > 3 {
			return failure(command, PARSEID_TOO_MANY_ARGUMENTS, commandString)
		}
		start, err := strconv.ParseInt(words[1], 10, 64)
		if err != nil {
			return failure(command, PARSEID_NOT_A_NUMBER, words[1])
		}
		end, err := strconv.ParseInt(words[2], 10, 64)
		if err != nil {
			return failure(command, PARSEID_NOT_A_NUMBER, words[2])
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: MaintenanceArguments{Version: words[0], Start: start, End: end}}
	case COMMAND_DELMAINTENANCE:
		// delmaintenance <channel> <message_id> <end_unix>
		if len(words) < 3 {
			return failure(command, PARSEID_NO_INPUT, commandString)
		}
		if len(words) > 3 {
			return failure(command, PARSEID_TOO_MANY_ARGUMENTS, commandString)
		}
		channelId, ok := parseMention(channelMentionRegex, words[0])
		if !ok {
			return failure(command, PARSEID_NOT_A_CHANNEL, words[0])
		}
		if !snowflakeRegex.MatchString(words[1]) {
			return failure(command, PARSEID_NOT_A_NUMBER, words[1])
		}
		end, err := strconv.ParseInt(words[2], 10, 64)
		if err != nil {
			return failure(command, PARSEID_NOT_A_NUMBER, words[2])
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: DelMaintenanceArguments{ChannelId: channelId, MessageId: words[1], End: end}}
	case COMMAND_MODROLE:
		// modrole <role>
		if len(words) == 0 {
			return failure(command, PARSEID_NO_INPUT, commandString)
		}
		if len(words) > 1 {
			return failure(command, PARSEID_TOO_MANY_ARGUMENTS, commandString)
		}
		roleId, ok := parseMention(roleMentionRegex, words[0])
		if !ok {
			return failure(command, PARSEID_NOT_A_ROLE, words[0])
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: roleId}
	default:
		// help
		return ParseResult{command: COMMAND_HELP, parseid: PARSEID_OK}
	}
}

func failure(command int, parseid int, input string) ParseResult {
	return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], input)}
}

// Accepts either a mention or a bare id
func parseMention(mention *regexp.Regexp, word string) (string, bool) {
	if snowflakeRegex.MatchString(word) {
		return word, true
	}
	if match := mention.FindStringSubmatch(word); match != nil {
		return match[1], true
	}
	return "", false
}
