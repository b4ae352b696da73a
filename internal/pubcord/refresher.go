package pubcord

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"tierbot/internal/chat"
	"tierbot/internal/metrics"
	"tierbot/internal/store"
)

// The part of the chat client the refresher uses
type Poster interface {
	FetchMessage(ctx context.Context, channelId string, messageId string) (chat.Message, error)
	SendMessage(ctx context.Context, channelId string, outgoing chat.Outgoing) (chat.Message, error)
	DeleteMessage(ctx context.Context, channelId string, messageId string) error
	LatestMessageId(ctx context.Context, channelId string) (string, error)
}

// Where the tracked message id is kept between runs
type TrackingStore interface {
	Get(ctx context.Context, serverId string) (store.Server, error)
	SwapPrevMessage(ctx context.Context, serverId string, oldId string, newId string) (bool, error)
}

// Another process changed the tracked message while this one was replacing it
var ErrTrackingLost = errors.New("tracked message changed concurrently")

// Refresher keeps a single message at the bottom of a channel. Whenever
// someone else posts after it, the message is deleted and posted again.
// The tracked message id lives in the guild document, and is only
// replaced with a compare and swap, so two refreshers on the same channel
// cannot both keep a message
type Refresher struct {
	mu              sync.Mutex
	client          Poster
	store           TrackingStore
	views           *Views
	guildId         string
	channelId       string
	content         func() chat.Outgoing
	repostOnMissing bool
}

func NewRefresher(client Poster, store TrackingStore, views *Views, guildId string, channelId string, content func() chat.Outgoing) *Refresher {
	return &Refresher{client: client, store: store, views: views, guildId: guildId, channelId: channelId, content: content}
}

// When the tracked message was deleted by hand, post a new one instead of failing
func (r *Refresher) RepostOnMissing(repost bool) *Refresher {
	r.repostOnMissing = repost
	return r
}

// Bootstrap replaces whatever message was tracked before with a fresh one
func (r *Refresher) Bootstrap(ctx context.Context) error {

	r.mu.Lock()
	defer r.mu.Unlock()

	server, err := r.store.Get(ctx, r.guildId)
	if err != nil {
		return err
	}
	prevId := server.PrevMessage
	if prevId != "" {
		if err := r.retire(ctx, prevId); err != nil {
			return err
		}
		log.Info().Str("message", prevId).Msg("initial deleted")
	}
	if err := r.post(ctx, prevId); err != nil {
		return err
	}
	log.Info().Str("channel", r.channelId).Msg("initial posted")
	return nil
}

// Tick reposts the tracked message if it is no longer the latest one
// in the channel
func (r *Refresher) Tick(ctx context.Context) error {

	r.mu.Lock()
	defer r.mu.Unlock()

	server, err := r.store.Get(ctx, r.guildId)
	if err != nil {
		return err
	}
	prevId := server.PrevMessage
	if prevId == "" {
		log.Debug().Str("guild", r.guildId).Msg("Nothing tracked yet")
		return nil
	}

	prevMessage, err := r.client.FetchMessage(ctx, r.channelId, prevId)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) && r.repostOnMissing {
			log.Warn().Str("message", prevId).Msg("Tracked message is gone, posting a new one")
			r.views.Stop(prevId)
			return r.post(ctx, prevId)
		}
		return fmt.Errorf("tracked message %s: %w", prevId, err)
	}

	latestId, err := r.client.LatestMessageId(ctx, r.channelId)
	if err != nil {
		return err
	}
	if latestId == prevMessage.ID {
		return nil
	}

	log.Info().Str("prev_message", prevMessage.ID).Str("latest", latestId).Msg("Quick links are no longer the latest message")
	if err := r.retire(ctx, prevMessage.ID); err != nil {
		return err
	}
	log.Info().Msg("deleted")
	if err := r.post(ctx, prevMessage.ID); err != nil {
		return err
	}
	metrics.IncReplacements()
	log.Info().Msg("posted")
	return nil
}

// Stop the view of a message, then delete it. A message that is
// already gone counts as deleted
func (r *Refresher) retire(ctx context.Context, messageId string) error {
	r.views.Stop(messageId)
	err := r.client.DeleteMessage(ctx, r.channelId, messageId)
	if err != nil && !errors.Is(err, chat.ErrNotFound) {
		return err
	}
	return nil
}

// Post the content and make it the tracked message, as long as the
// tracked message is still prevId
func (r *Refresher) post(ctx context.Context, prevId string) error {

	message, err := r.client.SendMessage(ctx, r.channelId, r.content())
	if err != nil {
		return err
	}

	swapped, err := r.store.SwapPrevMessage(ctx, r.guildId, prevId, message.ID)
	if err == nil && !swapped {
		err = ErrTrackingLost
	}
	if err != nil {
		// Do not leave an untracked copy behind
		if deleteErr := r.client.DeleteMessage(ctx, r.channelId, message.ID); deleteErr != nil {
			log.Error().Err(deleteErr).Str("message", message.ID).Msg("Could not delete untracked message")
		}
		return err
	}

	r.views.Start(message.ID)
	log.Debug().Str("message", message.ID).Int("views", r.views.Len()).Msg("Quick links posted")
	return nil
}
