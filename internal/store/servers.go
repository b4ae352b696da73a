package store

import (
	"context"
	"fmt"
)

const serversCollection = "servers"

// Settings of one guild, as kept in the servers collection
type Server struct {
	ServerId    string
	ModRole     string
	PrevMessage string
}

// Typed access to the servers collection
type Servers struct {
	store *Store
}

func NewServers(store *Store) *Servers {
	return &Servers{store: store}
}

// Get returns the settings of a guild. A guild without a document
// gets empty settings
func (s *Servers) Get(ctx context.Context, serverId string) (Server, error) {
	document, err := s.store.FindOne(ctx, serversCollection, serverId)
	if err != nil {
		return Server{}, err
	}
	return Server{
		ServerId:    serverId,
		ModRole:     stringField(document, "modrole"),
		PrevMessage: stringField(document, "prev_message"),
	}, nil
}

func (s *Servers) SetModRole(ctx context.Context, serverId string, roleId string) error {
	_, err := s.store.UpdateOne(ctx, serversCollection, serverId, map[string]any{"modrole": roleId}, true)
	return err
}

// SwapPrevMessage replaces the tracked message only if it is still the
// one the caller knows about. An empty id means no tracked message
func (s *Servers) SwapPrevMessage(ctx context.Context, serverId string, oldId string, newId string) (bool, error) {
	return s.store.CompareAndSwap(ctx, serversCollection, serverId, "prev_message", nullable(oldId), nullable(newId))
}

func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// Ids written by older versions may be numbers
func stringField(document Document, key string) string {
	switch value := document[key].(type) {
	case string:
		return value
	case float64:
		return fmt.Sprintf("%.0f", value)
	default:
		return ""
	}
}
