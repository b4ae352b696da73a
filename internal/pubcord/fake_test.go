package pubcord

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"testing"

	"tierbot/internal/chat"
	"tierbot/internal/store"
)

type sentMessage struct {
	channelId string
	outgoing  chat.Outgoing
}

type roleEdit struct {
	guildId  string
	memberId string
	roles    []string
	reason   string
}

// In-memory stand-in for Discord. Channel histories keep message ids in
// posting order
type fakeClient struct {
	mu        sync.Mutex
	nextId    int
	channels  map[string][]string
	ours      map[string]bool
	sent      []sentMessage
	deleted   []string
	edited    []string
	names     map[string]string
	guilds    map[string]string
	members   map[string][]chat.Member
	roleEdits []roleEdit
	failEdit  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		nextId:   1000,
		channels: map[string][]string{},
		ours:     map[string]bool{},
		names:    map[string]string{},
		guilds:   map[string]string{},
		members:  map[string][]chat.Member{},
	}
}

func (f *fakeClient) newId() string {
	f.nextId++
	return fmt.Sprint(f.nextId)
}

// Somebody else writes in the channel
func (f *fakeClient) userPosts(channelId string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newId()
	f.channels[channelId] = append(f.channels[channelId], id)
	return id
}

// Messages posted by the bot that still exist
func (f *fakeClient) alive(channelId string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	alive := []string{}
	for _, id := range f.channels[channelId] {
		if f.ours[id] {
			alive = append(alive, id)
		}
	}
	return alive
}

func (f *fakeClient) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent), len(f.deleted)
}

func (f *fakeClient) FetchMessage(ctx context.Context, channelId string, messageId string) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.channels[channelId], messageId) {
		return chat.Message{}, fmt.Errorf("fetch %s: %w", messageId, chat.ErrNotFound)
	}
	return chat.Message{ID: messageId, ChannelID: channelId}, nil
}

func (f *fakeClient) SendMessage(ctx context.Context, channelId string, outgoing chat.Outgoing) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.newId()
	f.channels[channelId] = append(f.channels[channelId], id)
	f.ours[id] = true
	f.sent = append(f.sent, sentMessage{channelId: channelId, outgoing: outgoing})
	return chat.Message{ID: id, ChannelID: channelId}, nil
}

func (f *fakeClient) EditMessage(ctx context.Context, channelId string, messageId string, outgoing chat.Outgoing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, messageId)
	return nil
}

func (f *fakeClient) DeleteMessage(ctx context.Context, channelId string, messageId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	index := slices.Index(f.channels[channelId], messageId)
	if index == -1 {
		return fmt.Errorf("delete %s: %w", messageId, chat.ErrNotFound)
	}
	f.channels[channelId] = slices.Delete(f.channels[channelId], index, index+1)
	f.deleted = append(f.deleted, messageId)
	return nil
}

func (f *fakeClient) LatestMessageId(ctx context.Context, channelId string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	history := f.channels[channelId]
	if len(history) == 0 {
		return "", nil
	}
	return history[len(history)-1], nil
}

func (f *fakeClient) ChannelName(ctx context.Context, channelId string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names[channelId], nil
}

// Channels are in the test guild unless moved elsewhere
func (f *fakeClient) ChannelGuildId(ctx context.Context, channelId string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if guildId, ok := f.guilds[channelId]; ok {
		return guildId, nil
	}
	return testGuild, nil
}

func (f *fakeClient) EditChannelName(ctx context.Context, channelId string, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[channelId] = name
	return nil
}

func (f *fakeClient) GuildMembers(ctx context.Context, guildId string) ([]chat.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[guildId], nil
}

func (f *fakeClient) EditMemberRoles(ctx context.Context, guildId string, memberId string, roles []string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEdit != nil {
		return f.failEdit
	}
	f.roleEdits = append(f.roleEdits, roleEdit{guildId: guildId, memberId: memberId, roles: roles, reason: reason})
	return nil
}

func setupServers(t *testing.T) *store.Servers {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	documents, err := store.New(db)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store.NewServers(documents)
}
