package pubcord

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"tierbot/internal/chat"
	"tierbot/internal/store"
)

const (
	testGuild   = "432379300684103699"
	testChannel = "913958768105103390"
)

func newTestRefresher(t *testing.T) (*Refresher, *fakeClient, *store.Servers) {
	t.Helper()
	client := newFakeClient()
	servers := setupServers(t)
	refresher := NewRefresher(client, servers, NewViews(), testGuild, testChannel, QuickLinksMessage)
	return refresher, client, servers
}

func trackedId(t *testing.T, servers *store.Servers) string {
	t.Helper()
	server, err := servers.Get(context.Background(), testGuild)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return server.PrevMessage
}

func TestRefresher_BootstrapFirstRun(t *testing.T) {
	refresher, client, servers := newTestRefresher(t)

	if err := refresher.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	alive := client.alive(testChannel)
	if len(alive) != 1 {
		t.Fatalf("expected one posted message, got %v", alive)
	}
	if tracked := trackedId(t, servers); tracked != alive[0] {
		t.Errorf("tracked %q, posted %q", tracked, alive[0])
	}
	if !refresher.views.Active(alive[0]) {
		t.Error("view of the new message should be active")
	}
	if client.sent[0].outgoing.Content != quickLinksContent || len(client.sent[0].outgoing.Components) != 1 {
		t.Errorf("unexpected content %+v", client.sent[0].outgoing)
	}
}

func TestRefresher_BootstrapReplacesPrevious(t *testing.T) {
	refresher, client, servers := newTestRefresher(t)
	ctx := context.Background()

	// Left over from a previous run
	old, _ := client.SendMessage(ctx, testChannel, QuickLinksMessage())
	if _, err := servers.SwapPrevMessage(ctx, testGuild, "", old.ID); err != nil {
		t.Fatalf("SwapPrevMessage failed: %v", err)
	}

	if err := refresher.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	alive := client.alive(testChannel)
	if len(alive) != 1 || alive[0] == old.ID {
		t.Fatalf("old message should be replaced, alive %v", alive)
	}
	if trackedId(t, servers) != alive[0] {
		t.Error("new message should be tracked")
	}
}

func TestRefresher_BootstrapWithPreviousAlreadyGone(t *testing.T) {
	refresher, client, servers := newTestRefresher(t)
	ctx := context.Background()
	if _, err := servers.SwapPrevMessage(ctx, testGuild, "", "404"); err != nil {
		t.Fatalf("SwapPrevMessage failed: %v", err)
	}

	if err := refresher.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if len(client.alive(testChannel)) != 1 {
		t.Error("a new message should be posted")
	}
}

func TestRefresher_TickIsIdempotentWhenLatest(t *testing.T) {
	refresher, client, servers := newTestRefresher(t)
	ctx := context.Background()
	if err := refresher.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	tracked := trackedId(t, servers)
	sent, deleted := client.counts()

	for i := 0; i < 5; i++ {
		if err := refresher.Tick(ctx); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}

	sentAfter, deletedAfter := client.counts()
	if sentAfter != sent || deletedAfter != deleted {
		t.Errorf("no-op ticks sent %d and deleted %d messages", sentAfter-sent, deletedAfter-deleted)
	}
	if trackedId(t, servers) != tracked {
		t.Error("tracked message should not change")
	}
}

func TestRefresher_TickReplacesWhenChannelMovedOn(t *testing.T) {
	refresher, client, servers := newTestRefresher(t)
	ctx := context.Background()
	if err := refresher.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	old := trackedId(t, servers)
	client.userPosts(testChannel)

	if err := refresher.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	alive := client.alive(testChannel)
	if len(alive) != 1 || alive[0] == old {
		t.Fatalf("expected a single new message, alive %v", alive)
	}
	latest, _ := client.LatestMessageId(ctx, testChannel)
	if latest != alive[0] {
		t.Error("the new message should be the latest in the channel")
	}
	if trackedId(t, servers) != alive[0] {
		t.Error("the new message should be tracked")
	}
	if refresher.views.Active(old) {
		t.Error("the old view should be stopped")
	}
	if !refresher.views.Active(alive[0]) || refresher.views.Len() != 1 {
		t.Error("only the new view should be active")
	}
}

func TestRefresher_TickNothingTracked(t *testing.T) {
	refresher, client, _ := newTestRefresher(t)

	if err := refresher.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if sent, _ := client.counts(); sent != 0 {
		t.Errorf("tick without tracked message should not post, sent %d", sent)
	}
}

func TestRefresher_TickMissingMessageFails(t *testing.T) {
	refresher, client, servers := newTestRefresher(t)
	ctx := context.Background()
	if err := refresher.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	// Deleted by a moderator
	client.DeleteMessage(ctx, testChannel, trackedId(t, servers))
	sent, _ := client.counts()

	err := refresher.Tick(ctx)
	if !errors.Is(err, chat.ErrNotFound) {
		t.Fatalf("Tick error = %v, want ErrNotFound", err)
	}
	if sentAfter, _ := client.counts(); sentAfter != sent {
		t.Error("nothing should be posted")
	}
}

func TestRefresher_TickMissingMessageReposts(t *testing.T) {
	refresher, client, servers := newTestRefresher(t)
	refresher.RepostOnMissing(true)
	ctx := context.Background()
	if err := refresher.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	client.DeleteMessage(ctx, testChannel, trackedId(t, servers))

	if err := refresher.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	alive := client.alive(testChannel)
	if len(alive) != 1 || trackedId(t, servers) != alive[0] {
		t.Errorf("a new message should be tracked, alive %v", alive)
	}
}

// Simulates another process that took over the tracked message
type stolenTracking struct {
	*store.Servers
}

func (s stolenTracking) SwapPrevMessage(ctx context.Context, serverId string, oldId string, newId string) (bool, error) {
	return false, nil
}

func TestRefresher_LostSwapDeletesNewMessage(t *testing.T) {
	client := newFakeClient()
	servers := setupServers(t)
	refresher := NewRefresher(client, stolenTracking{servers}, NewViews(), testGuild, testChannel, QuickLinksMessage)

	err := refresher.Bootstrap(context.Background())
	if !errors.Is(err, ErrTrackingLost) {
		t.Fatalf("Bootstrap error = %v, want ErrTrackingLost", err)
	}
	if alive := client.alive(testChannel); len(alive) != 0 {
		t.Errorf("untracked message left behind: %v", alive)
	}
	if refresher.views.Len() != 0 {
		t.Error("no view should be active")
	}
}

func TestRefresher_AtMostOneTrackedMessage(t *testing.T) {
	refresher, client, servers := newTestRefresher(t)
	ctx := context.Background()
	random := rand.New(rand.NewSource(7))

	if err := refresher.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	for step := 0; step < 200; step++ {
		if random.Intn(3) == 0 {
			client.userPosts(testChannel)
		} else if err := refresher.Tick(ctx); err != nil {
			t.Fatalf("step %d: Tick failed: %v", step, err)
		}

		alive := client.alive(testChannel)
		if len(alive) > 1 {
			t.Fatalf("step %d: %d bot messages alive", step, len(alive))
		}
		if len(alive) == 1 && trackedId(t, servers) != alive[0] {
			t.Fatalf("step %d: alive message is not the tracked one", step)
		}
	}
}
