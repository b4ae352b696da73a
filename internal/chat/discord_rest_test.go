package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// A session whose REST calls are answered by handler, with a guild
// holding one text channel in its state
func setupTestSession(t *testing.T, handler func(req *http.Request) *http.Response) *discordgo.Session {
	t.Helper()

	session, err := discordgo.New("Bot token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	session.Client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return handler(req), nil
	})}
	session.State.MaxMessageCount = 50
	err = session.State.GuildAdd(&discordgo.Guild{
		ID:       "10",
		Channels: []*discordgo.Channel{{ID: "20", GuildID: "10", Name: "g1-xxxxx", LastMessageID: "100"}},
	})
	if err != nil {
		t.Fatalf("failed to add guild: %v", err)
	}
	return session
}

func TestDiscord_LatestMessageIdFollowsNewMessages(t *testing.T) {
	newest := "100"
	requests := 0
	session := setupTestSession(t, func(req *http.Request) *http.Response {
		requests++
		if req.URL.Path != "/api/v"+discordgo.APIVersion+"/channels/20/messages" || req.URL.Query().Get("limit") != "1" {
			t.Errorf("unexpected request %s", req.URL)
		}
		return jsonResponse(http.StatusOK, fmt.Sprintf(`[{"id":%q,"channel_id":"20"}]`, newest))
	})

	// Messages arriving through the gateway leave the cached last id untouched
	for _, id := range []string{"200", "300"} {
		newest = id
		create := &discordgo.MessageCreate{Message: &discordgo.Message{ID: id, ChannelID: "20", GuildID: "10"}}
		if err := session.State.OnInterface(session, create); err != nil {
			t.Fatalf("OnInterface failed: %v", err)
		}
	}

	latest, err := NewDiscord(session).LatestMessageId(context.Background(), "20")
	if err != nil {
		t.Fatalf("LatestMessageId failed: %v", err)
	}
	if latest != "300" {
		t.Errorf("LatestMessageId = %q, want 300", latest)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

func TestDiscord_LatestMessageIdEmptyAndMissing(t *testing.T) {
	session := setupTestSession(t, func(req *http.Request) *http.Response {
		if strings.Contains(req.URL.Path, "/channels/20/") {
			return jsonResponse(http.StatusOK, `[]`)
		}
		return jsonResponse(http.StatusNotFound, `{"code":10003,"message":"Unknown Channel"}`)
	})
	discord := NewDiscord(session)

	if latest, err := discord.LatestMessageId(context.Background(), "20"); err != nil || latest != "" {
		t.Errorf("empty channel: latest %q, err %v", latest, err)
	}
	if _, err := discord.LatestMessageId(context.Background(), "404"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing channel error = %v, want ErrNotFound", err)
	}
}

func TestDiscord_ChannelGuildId(t *testing.T) {
	session := setupTestSession(t, func(req *http.Request) *http.Response {
		return jsonResponse(http.StatusOK, `{"id":"30","guild_id":"11","name":"elsewhere"}`)
	})
	discord := NewDiscord(session)

	// From the state
	if guildId, err := discord.ChannelGuildId(context.Background(), "20"); err != nil || guildId != "10" {
		t.Errorf("cached channel: guild %q, err %v", guildId, err)
	}
	// From the API
	if guildId, err := discord.ChannelGuildId(context.Background(), "30"); err != nil || guildId != "11" {
		t.Errorf("uncached channel: guild %q, err %v", guildId, err)
	}
}

func TestDiscord_GuildMembersPagesPastMembersWithoutUser(t *testing.T) {
	afters := []string{}
	session := setupTestSession(t, func(req *http.Request) *http.Response {
		after := req.URL.Query().Get("after")
		afters = append(afters, after)
		if after != "" {
			return jsonResponse(http.StatusOK, `[{"user":{"id":"5000"},"premium_since":"2024-01-01T00:00:00Z"}]`)
		}
		// A full page whose last member has no user
		members := []string{}
		for i := 1; i < membersPageSize; i++ {
			members = append(members, fmt.Sprintf(`{"user":{"id":"%d"},"roles":[]}`, i))
		}
		members = append(members, `{"roles":[]}`)
		return jsonResponse(http.StatusOK, "["+strings.Join(members, ",")+"]")
	})

	members, err := NewDiscord(session).GuildMembers(context.Background(), "10")
	if err != nil {
		t.Fatalf("GuildMembers failed: %v", err)
	}
	if len(afters) != 2 || afters[1] != fmt.Sprint(membersPageSize-1) {
		t.Errorf("pages requested after %q", afters)
	}
	if len(members) != membersPageSize || !members[len(members)-1].Boosting {
		t.Errorf("got %d members, last %+v", len(members), members[len(members)-1])
	}
}
