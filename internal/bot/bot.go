package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"tierbot/internal/chat"
	"tierbot/internal/config"
	"tierbot/internal/metrics"
	"tierbot/internal/pubcord"
	"tierbot/internal/store"
	"tierbot/internal/tiering"
)

// Names under which the commands are counted
var commandLabels map[int]string = map[int]string{
	COMMAND_ROOM:             "room",
	COMMAND_CURRENTSTATUS:    "currentstatus",
	COMMAND_MAINTENANCE:      "maintenance",
	COMMAND_DELMAINTENANCE:   "delmaintenance",
	COMMAND_MODROLE:          "modrole",
	COMMAND_HELP:             "help",
	COMMAND_MAINTENANCE_LIST: "maintenancelist",
}

// What the bot needs to know about a text message
type Incoming struct {
	GuildId     string
	ChannelId   string
	MessageId   string
	AuthorId    string
	Roles       []string
	Permissions int64
	Content     string
}

func (in Incoming) administrator() bool {
	return in.Permissions&discordgo.PermissionAdministrator != 0
}

func (in Incoming) manageMessages() bool {
	return in.administrator() || in.Permissions&discordgo.PermissionManageMessages != 0
}

type Bot struct {
	cfg       *config.Config
	session   *discordgo.Session
	client    chat.Client
	database  DatabaseBot
	parser    Parser
	tiering   *tiering.Cog
	pubcord   *pubcord.Cog
	responder interactionResponder
	ctx       context.Context
	ready     chan struct{}
	readyOnce sync.Once
}

func New(cfg *config.Config, session *discordgo.Session, servers *store.Servers) *Bot {
	bot := newBot(cfg, chat.NewDiscord(session), servers, session)
	bot.session = session
	return bot
}

func newBot(cfg *config.Config, client chat.Client, servers *store.Servers, responder interactionResponder) *Bot {

	bot := &Bot{
		cfg:       cfg,
		client:    client,
		database:  servers,
		parser:    NewParser(cfg.Discord.Prefix),
		responder: responder,
		ctx:       context.Background(),
		ready:     make(chan struct{}),
	}
	if cfg.Tiering.Enabled {
		bot.tiering = tiering.New(cfg.Tiering, client)
	}
	if cfg.Pubcord.Enabled {
		bot.pubcord = pubcord.New(cfg.Pubcord, client, servers)
	}
	return bot
}

// Run connects to discord and serves events until the context is done
func (bot *Bot) Run(ctx context.Context) error {

	bot.ctx = ctx
	bot.session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	// Event handlers
	bot.session.AddHandler(bot.onReady)
	bot.session.AddHandler(bot.onMessage)
	bot.session.AddHandler(bot.onInteraction)

	// Open session
	if err := bot.session.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	defer bot.session.Close()

	if bot.pubcord != nil {
		bot.pubcord.Start(ctx, bot.WaitReady)
		defer bot.pubcord.Close()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	return nil
}

// Ready tells if the gateway session is up
func (bot *Bot) Ready() bool {
	select {
	case <-bot.ready:
		return true
	default:
		return false
	}
}

func (bot *Bot) WaitReady(ctx context.Context) error {
	select {
	case <-bot.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (bot *Bot) onReady(discord *discordgo.Session, ready *discordgo.Ready) {
	log.Info().Str("user", ready.User.Username).Int("guilds", len(ready.Guilds)).Msg("Connected to discord")
	bot.readyOnce.Do(func() { close(bot.ready) })
}

func (bot *Bot) onMessage(discord *discordgo.Session, message *discordgo.MessageCreate) {

	// Reject messages from bots, myself included
	if message.Author == nil || message.Author.Bot {
		return
	}
	// Ignore messages from private channels
	if message.GuildID == "" {
		return
	}
	if !strings.HasPrefix(message.Content, bot.cfg.Discord.Prefix) {
		return
	}

	incoming := Incoming{
		GuildId:   message.GuildID,
		ChannelId: message.ChannelID,
		MessageId: message.ID,
		AuthorId:  message.Author.ID,
		Content:   message.Content,
	}
	if message.Member != nil {
		incoming.Roles = message.Member.Roles
	}
	permissions, err := discord.UserChannelPermissions(message.Author.ID, message.ChannelID)
	if err != nil {
		log.Warn().Err(err).Str("user", message.Author.ID).Msg("Could not compute permissions")
	} else {
		incoming.Permissions = permissions
	}

	responses := bot.HandleMessage(bot.ctx, incoming)
	if err := sendResponses(bot.ctx, bot.client, message.ChannelID, responses); err != nil {
		log.Error().Err(err).Str("channel", message.ChannelID).Msg("Could not send responses")
	}
}

func (bot *Bot) onInteraction(discord *discordgo.Session, interaction *discordgo.InteractionCreate) {

	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		bot.answerCommand(bot.ctx, interaction.Interaction, interaction.ApplicationCommandData())
	case discordgo.InteractionMessageComponent:
		if interaction.Message == nil {
			return
		}
		responses := bot.HandleComponent(interaction.Message.ID, interaction.MessageComponentData().CustomID)
		if len(responses) == 0 {
			return
		}
		if err := respondInteraction(bot.ctx, bot.responder, interaction.Interaction, responses, true); err != nil {
			log.Error().Err(err).Str("interaction", interaction.ID).Msg("Could not respond to interaction")
		}
	}
}

// Slash commands may wait on rate limited renames for minutes, so they
// are deferred before running and answered by editing the reply
func (bot *Bot) answerCommand(ctx context.Context, interaction *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) {

	if err := deferInteraction(ctx, bot.responder, interaction, true); err != nil {
		log.Error().Err(err).Str("interaction", interaction.ID).Str("command", data.Name).Msg("Could not defer interaction")
		return
	}
	responses := bot.HandleCommand(ctx, interaction.GuildID, interaction.ChannelID, data)
	if len(responses) == 0 {
		responses = NotAvailable("/" + data.Name)
	}
	if err := editInteraction(ctx, bot.responder, interaction, responses); err != nil {
		log.Error().Err(err).Str("interaction", interaction.ID).Str("command", data.Name).Msg("Could not answer interaction")
	}
}

// HandleMessage runs a text command and returns what to answer with
func (bot *Bot) HandleMessage(ctx context.Context, incoming Incoming) []Response {

	parseResult := bot.parser.Parse(incoming.Content)
	switch parseResult.parseid {
	case PARSEID_NO_BOT_PREFIX:
		return nil
	case PARSEID_OK:
		command := commandLabels[parseResult.command]
		log.Debug().Str("command", command).Str("guild", incoming.GuildId).Str("user", incoming.AuthorId).Msg("Command understood")
		responses, err := bot.runCommand(ctx, incoming, parseResult)
		return bot.finish(command, responses, err)
	default:
		// The command is invalid input, so it contains an error message
		log.Info().Str("content", incoming.Content).Str("reason", parseResult.errorMessage).Msg("Wrong input")
		metrics.IncCommand("invalid", "rejected")
		return InputNotValid(parseResult.errorMessage)
	}
}

func (bot *Bot) runCommand(ctx context.Context, incoming Incoming, parseResult ParseResult) ([]Response, error) {

	switch parseResult.command {
	case COMMAND_ROOM:
		if bot.tiering == nil {
			return NotAvailable("room"), nil
		}
		switch words := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of room arguments %T", words))
		case []string:
			embed, err := bot.tiering.RoomText(ctx, incoming.ChannelId, words)
			if err != nil {
				return nil, err
			}
			return []Response{ResponseEmbed{embed}}, nil
		}
	case COMMAND_CURRENTSTATUS:
		if bot.pubcord == nil {
			return NotAvailable("currentstatus"), nil
		}
		if allowed, err := bot.canManageStatus(ctx, incoming); err != nil || !allowed {
			return NotAllowed(), err
		}
		switch messageId := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of message id %T", messageId))
		case string:
			return nil, bot.pubcord.CurrentStatus(ctx, incoming.ChannelId, messageId, incoming.MessageId)
		}
	case COMMAND_MAINTENANCE:
		if bot.pubcord == nil {
			return NotAvailable("maintenance"), nil
		}
		if allowed, err := bot.canManageStatus(ctx, incoming); err != nil || !allowed {
			return NotAllowed(), err
		}
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of maintenance arguments %T", args))
		case MaintenanceArguments:
			id, err := bot.pubcord.Maintenance(ctx, incoming.GuildId, incoming.ChannelId, incoming.MessageId, args.Version, args.Start, args.End)
			if err != nil {
				return nil, err
			}
			log.Info().Str("task", id.String()).Str("version", args.Version).Msg("Maintenance scheduled")
			return nil, nil
		}
	case COMMAND_DELMAINTENANCE:
		if bot.pubcord == nil {
			return NotAvailable("delmaintenance"), nil
		}
		if allowed, err := bot.canManageStatus(ctx, incoming); err != nil || !allowed {
			return NotAllowed(), err
		}
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of delmaintenance arguments %T", args))
		case DelMaintenanceArguments:
			if _, err := bot.pubcord.DelMaintenance(ctx, incoming.GuildId, args.ChannelId, args.MessageId, args.End); err != nil {
				return nil, err
			}
			return DeletionScheduled(args.ChannelId, args.MessageId, args.End), nil
		}
	case COMMAND_MAINTENANCE_LIST:
		if bot.pubcord == nil {
			return NotAvailable("maintenance"), nil
		}
		if allowed, err := bot.canManageStatus(ctx, incoming); err != nil || !allowed {
			return NotAllowed(), err
		}
		return MaintenanceList(bot.pubcord.PendingMaintenance(incoming.GuildId)), nil
	case COMMAND_MODROLE:
		if !incoming.administrator() {
			return NotAllowed(), nil
		}
		switch roleId := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of role id %T", roleId))
		case string:
			if err := bot.setModRole(ctx, incoming.GuildId, roleId); err != nil {
				return nil, err
			}
			return ModRoleChanged(roleId), nil
		}
	case COMMAND_HELP:
		return HelpMessage(bot.cfg.Discord.Prefix), nil
	default:
		panic(fmt.Sprintf("Command %d is not one of the possible ones", parseResult.command))
	}
}

func (bot *Bot) canManageStatus(ctx context.Context, incoming Incoming) (bool, error) {
	modRole, err := bot.modRole(ctx, incoming.GuildId)
	if err != nil {
		return false, err
	}
	return pubcord.CanManageStatus(bot.cfg.Pubcord.GuildId, incoming.GuildId, incoming.manageMessages(), modRole, incoming.Roles), nil
}

// HandleCommand runs a slash command
func (bot *Bot) HandleCommand(ctx context.Context, guildId string, channelId string, data discordgo.ApplicationCommandInteractionData) []Response {

	options := map[string]*discordgo.ApplicationCommandInteractionDataOption{}
	for _, option := range data.Options {
		options[option.Name] = option
	}

	if data.Name == SLASH_ROOM {
		if bot.tiering == nil {
			return NotAvailable("/room")
		}
		code := ""
		if option, ok := options[optionRoomCode]; ok {
			code = option.StringValue()
		}
		var spots *int64
		if option, ok := options[optionSpots]; ok {
			value := option.IntValue()
			spots = &value
		}
		embed, err := bot.tiering.RoomSlash(ctx, channelId, code, spots)
		if err != nil {
			return bot.finish("/room", nil, err)
		}
		return bot.finish("/room", []Response{ResponseEmbed{embed}}, nil)
	}

	guide, ok := tiering.LookupGuide(data.Name)
	if !ok {
		log.Warn().Str("command", data.Name).Str("guild", guildId).Msg("Unknown slash command")
		return nil
	}
	if bot.tiering == nil {
		return NotAvailable("/" + guide.Name)
	}
	target := channelId
	if option, ok := options[optionChannel]; ok {
		target = option.ChannelValue(nil).ID
	}
	if err := bot.tiering.PostGuide(ctx, guide, target); err != nil {
		return bot.finish("/"+guide.Name, nil, err)
	}
	return bot.finish("/"+guide.Name, GuidePosted(guide.Name, target), nil)
}

// HandleComponent answers a button press
func (bot *Bot) HandleComponent(messageId string, customId string) []Response {
	if bot.pubcord == nil || !pubcord.IsQuickLink(customId) {
		return nil
	}
	embed := bot.pubcord.Views.Click(messageId, customId)
	if embed == nil {
		return nil
	}
	return []Response{ResponseEmbed{embed}}
}

// Errors the user can fix are answered, the rest are logged
func (bot *Bot) finish(command string, responses []Response, err error) []Response {
	if err == nil {
		metrics.IncCommand(command, "ok")
		return responses
	}
	if userResponses, ok := ErrorResponses(err); ok {
		log.Warn().Err(err).Str("command", command).Msg("Command rejected")
		metrics.IncCommand(command, "rejected")
		return userResponses
	}
	log.Error().Err(err).Str("command", command).Msg("Command failed")
	metrics.IncCommand(command, "error")
	return SomethingWentWrong()
}
