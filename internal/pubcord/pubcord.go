// Package pubcord runs the public server features: the quick links message
// kept at the bottom of its channel, the booster role shared between the
// main and the emote server, and the maintenance notices.
package pubcord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tierbot/internal/chat"
	"tierbot/internal/common"
	"tierbot/internal/config"
	"tierbot/internal/metrics"
)

type Cog struct {
	cfg       config.Pubcord
	client    chat.Client
	Views     *Views
	Refresher *Refresher
	Boosters  *BoosterSync
	Announcer *Announcer
	wg        sync.WaitGroup
}

func New(cfg config.Pubcord, client chat.Client, tracking TrackingStore) *Cog {
	views := NewViews()
	return &Cog{
		cfg:    cfg,
		client: client,
		Views:  views,
		Refresher: NewRefresher(client, tracking, views, cfg.GuildId, cfg.QuickLinksChannelId, QuickLinksMessage).
			RepostOnMissing(cfg.RepostOnMissing),
		Boosters:  NewBoosterSync(client, cfg.GuildId, cfg.SecondaryGuildId, cfg.BoosterRoleId),
		Announcer: NewAnnouncer(client),
	}
}

// Start launches the background tasks. They wait for waitReady before
// their first run, and the quick links poll waits some more so it does
// not race the initial post
func (c *Cog) Start(ctx context.Context, waitReady func(ctx context.Context) error) {

	bootstrap := common.NewTimedExecutor("quicklinks-bootstrap", time.Second, c.Refresher.Bootstrap).
		Count(1).
		Before(waitReady).
		Observe(metrics.ObserveTask)

	poll := common.NewTimedExecutor("quicklinks", c.cfg.PollInterval.Duration, c.Refresher.Tick).
		Before(func(ctx context.Context) error {
			if err := waitReady(ctx); err != nil {
				return err
			}
			return common.Sleep(ctx, c.cfg.ReadyGrace.Duration)
		}).
		Observe(metrics.ObserveTask)

	executors := []*common.TimedExecutor{bootstrap, poll}
	if c.cfg.BoosterRoleId != "" {
		executors = append(executors, common.NewTimedExecutor("boosters", c.cfg.BoosterInterval.Duration, c.Boosters.Sync).
			Before(waitReady).
			Observe(metrics.ObserveTask))
	}

	for _, executor := range executors {
		c.wg.Add(1)
		go func(executor *common.TimedExecutor) {
			defer c.wg.Done()
			executor.Run(ctx)
		}(executor)
	}
	log.Info().Int("tasks", len(executors)).Msg("Pubcord started")
}

// Close waits for the tasks (whose context has to be cancelled by the
// caller) and cancels the pending maintenance notices
func (c *Cog) Close() {
	c.wg.Wait()
	c.Announcer.Close()
	log.Info().Msg("Pubcord stopped")
}

// Maintenance deletes the command message and schedules the notice
func (c *Cog) Maintenance(ctx context.Context, guildId string, channelId string, commandMessageId string, version string, startUnix int64, endUnix int64) (uuid.UUID, error) {
	window, err := NewWindow(version, startUnix, endUnix)
	if err != nil {
		return uuid.Nil, err
	}
	if err := c.client.DeleteMessage(ctx, channelId, commandMessageId); err != nil {
		log.Warn().Err(err).Msg("Could not delete maintenance command")
	}
	return c.Announcer.Schedule(guildId, channelId, window), nil
}

// DelMaintenance checks the message exists in a channel of the guild the
// command came from and schedules its deletion
func (c *Cog) DelMaintenance(ctx context.Context, guildId string, channelId string, messageId string, endUnix int64) (uuid.UUID, error) {
	channelGuildId, err := c.client.ChannelGuildId(ctx, channelId)
	if err != nil {
		return uuid.Nil, err
	}
	if channelGuildId != guildId {
		log.Warn().Str("guild", guildId).Str("channel", channelId).Str("channel_guild", channelGuildId).
			Msg("Refusing to delete a message from another guild")
		return uuid.Nil, fmt.Errorf("channel %s in guild %s: %w", channelId, guildId, chat.ErrNotFound)
	}
	if _, err := c.client.FetchMessage(ctx, channelId, messageId); err != nil {
		return uuid.Nil, err
	}
	return c.Announcer.ScheduleDelete(guildId, channelId, messageId, time.Unix(endUnix, 0)), nil
}

// PendingMaintenance lists the notices still scheduled for a guild
func (c *Cog) PendingMaintenance(guildId string) []Pending {
	return c.Announcer.Pending(guildId)
}
