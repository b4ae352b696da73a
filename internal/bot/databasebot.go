package bot

import (
	"context"

	"github.com/rs/zerolog/log"

	"tierbot/internal/store"
)

// The guild settings the commands need
type DatabaseBot interface {
	Get(ctx context.Context, serverId string) (store.Server, error)
	SetModRole(ctx context.Context, serverId string, roleId string) error
}

func (bot *Bot) modRole(ctx context.Context, guildId string) (string, error) {
	server, err := bot.database.Get(ctx, guildId)
	if err != nil {
		return "", err
	}
	return server.ModRole, nil
}

func (bot *Bot) setModRole(ctx context.Context, guildId string, roleId string) error {
	if err := bot.database.SetModRole(ctx, guildId, roleId); err != nil {
		return err
	}
	log.Info().Str("guild", guildId).Str("role", roleId).Msg("Mod role changed")
	return nil
}
