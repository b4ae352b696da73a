package pubcord

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tierbot/internal/chat"
	"tierbot/internal/common"
	"tierbot/internal/format"
	"tierbot/internal/metrics"
)

const maintenanceImage = "https://files.s-neon.xyz/share/EwwL0hoUYAADTHm.png"

// A game maintenance, announced while it lasts
type Window struct {
	Version string
	Start   time.Time
	End     time.Time
}

// The window ends before it starts
type WindowError struct {
	Start time.Time
	End   time.Time
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("maintenance must end after it starts (start %d, end %d)", e.Start.Unix(), e.End.Unix())
}

// NewWindow builds a window from unix timestamps
func NewWindow(version string, startUnix int64, endUnix int64) (Window, error) {
	window := Window{Version: version, Start: time.Unix(startUnix, 0).UTC(), End: time.Unix(endUnix, 0).UTC()}
	if !window.Start.Before(window.End) {
		return Window{}, &WindowError{Start: window.Start, End: window.End}
	}
	return window, nil
}

func MaintenanceNotice(window Window) *discordgo.MessageEmbed {
	embed := format.Embed("Maintenance Notice", fmt.Sprintf(
		"Maintenance for the version %s update has begun.\n\n"+
			"**Maintenance Period**:\n%s to %s\n\n"+
			"※If maintenance begins during a Live Show, the results may not be recorded.\n"+
			"※The maintenance period above is automatically converted to the timezone set on your system.",
		window.Version, format.Timestamp(window.Start.Unix()), format.Timestamp(window.End.Unix())))
	return format.Image(embed, maintenanceImage)
}

type NoticePoster interface {
	SendMessage(ctx context.Context, channelId string, outgoing chat.Outgoing) (chat.Message, error)
	DeleteMessage(ctx context.Context, channelId string, messageId string) error
}

// A scheduled announcement or deletion that has not finished yet
type Pending struct {
	Id        uuid.UUID
	GuildId   string
	ChannelId string
	Kind      string
	Until     time.Time
	cancel    context.CancelFunc
}

// Announcer posts maintenance notices when the maintenance starts and
// deletes them when it ends. Every scheduled notice runs on its own
// and can be cancelled with Close
type Announcer struct {
	client  NoticePoster
	now     func() time.Time
	sleep   func(ctx context.Context, duration time.Duration) error
	mu      sync.Mutex
	pending map[uuid.UUID]*Pending
	wg      sync.WaitGroup
}

func NewAnnouncer(client NoticePoster) *Announcer {
	return &Announcer{client: client, now: time.Now, sleep: common.Sleep, pending: map[uuid.UUID]*Pending{}}
}

// Announce blocks until the notice has been posted and deleted.
// A start in the past posts right away. The notice stays up for as
// long as the window lasts
func (a *Announcer) Announce(ctx context.Context, channelId string, window Window) error {

	if !window.Start.Before(window.End) {
		return &WindowError{Start: window.Start, End: window.End}
	}
	startDifference := window.Start.Sub(a.now())
	endDifference := window.End.Sub(window.Start)

	if err := a.sleep(ctx, startDifference); err != nil {
		return err
	}
	message, err := a.client.SendMessage(ctx, channelId, chat.Outgoing{Embeds: []*discordgo.MessageEmbed{MaintenanceNotice(window)}})
	if err != nil {
		return err
	}
	metrics.IncMaintenance("posted")
	log.Info().Str("version", window.Version).Str("message", message.ID).Msg("Maintenance notice posted")

	if err := a.sleep(ctx, endDifference); err != nil {
		return err
	}
	if err := a.client.DeleteMessage(ctx, channelId, message.ID); err != nil {
		return err
	}
	metrics.IncMaintenance("deleted")
	log.Info().Str("version", window.Version).Str("message", message.ID).Msg("Maintenance notice deleted")
	return nil
}

// DeleteAt waits until end and deletes a notice posted some other way
func (a *Announcer) DeleteAt(ctx context.Context, channelId string, messageId string, end time.Time) error {
	if err := a.sleep(ctx, end.Sub(a.now())); err != nil {
		return err
	}
	if err := a.client.DeleteMessage(ctx, channelId, messageId); err != nil {
		return err
	}
	metrics.IncMaintenance("deleted")
	log.Info().Str("message", messageId).Msg("Maintenance notice deleted")
	return nil
}

// Schedule runs Announce in the background
func (a *Announcer) Schedule(guildId string, channelId string, window Window) uuid.UUID {
	return a.spawn(guildId, channelId, "announce", window.End, func(ctx context.Context) error {
		return a.Announce(ctx, channelId, window)
	})
}

// ScheduleDelete runs DeleteAt in the background
func (a *Announcer) ScheduleDelete(guildId string, channelId string, messageId string, end time.Time) uuid.UUID {
	return a.spawn(guildId, channelId, "delete", end, func(ctx context.Context) error {
		return a.DeleteAt(ctx, channelId, messageId, end)
	})
}

// Pending lists what is still scheduled in a guild, soonest first.
// An empty guild id lists every guild
func (a *Announcer) Pending(guildId string) []Pending {
	a.mu.Lock()
	defer a.mu.Unlock()
	pending := make([]Pending, 0, len(a.pending))
	for _, p := range a.pending {
		if guildId == "" || p.GuildId == guildId {
			pending = append(pending, *p)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Until.Before(pending[j].Until) })
	return pending
}

// Close cancels everything scheduled and waits for it to stop
func (a *Announcer) Close() {
	a.mu.Lock()
	for _, p := range a.pending {
		p.cancel()
	}
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *Announcer) spawn(guildId string, channelId string, kind string, until time.Time, run func(ctx context.Context) error) uuid.UUID {

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	a.mu.Lock()
	a.pending[id] = &Pending{Id: id, GuildId: guildId, ChannelId: channelId, Kind: kind, Until: until, cancel: cancel}
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			a.mu.Lock()
			delete(a.pending, id)
			a.mu.Unlock()
			cancel()
		}()
		if err := run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("task", id.String()).Str("kind", kind).Msg("Maintenance task failed")
		}
	}()
	log.Debug().Str("task", id.String()).Str("kind", kind).Time("until", until).Msg("Maintenance task scheduled")
	return id
}
