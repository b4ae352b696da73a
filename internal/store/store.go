// Package store keeps one JSON document per (collection, server id) in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// A document as stored, decoded from JSON. Numbers come back as float64
// unless they were stored as strings, which is why ids are kept as strings
type Document map[string]any

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	server_id TEXT NOT NULL,
	body TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, server_id)
)`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file and makes sure the schema exists
func Open(path string) (*Store, error) {

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite handles one writer at a time
	db.SetMaxOpenConns(1)

	store, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("path", path).Msg("Document store ready")
	return store, nil
}

// New wraps an already open database, creating the schema if needed
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// FindOne returns the document of a server, or nil if there is none
func (s *Store) FindOne(ctx context.Context, collection string, serverId string) (Document, error) {
	return findOne(ctx, s.db, collection, serverId)
}

// UpdateOne sets the provided fields in the document of a server.
// Without upsert, updating a missing document does nothing and
// reports false
func (s *Store) UpdateOne(ctx context.Context, collection string, serverId string, set map[string]any, upsert bool) (bool, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	document, err := findOne(ctx, tx, collection, serverId)
	if err != nil {
		return false, err
	}
	if document == nil {
		if !upsert {
			log.Debug().Str("collection", collection).Str("server_id", serverId).Msg("No document to update")
			return false, nil
		}
		document = Document{"server_id": serverId}
	}
	for key, value := range set {
		document[key] = value
	}

	if err := write(ctx, tx, collection, serverId, document); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit update: %w", err)
	}
	log.Debug().Str("collection", collection).Str("server_id", serverId).Interface("set", set).Msg("Document updated")
	return true, nil
}

// CompareAndSwap sets a field only if it currently holds the expected value.
// A missing document or field matches an expected nil. The document is
// created if needed
func (s *Store) CompareAndSwap(ctx context.Context, collection string, serverId string, field string, expected any, value any) (bool, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	document, err := findOne(ctx, tx, collection, serverId)
	if err != nil {
		return false, err
	}
	if document == nil {
		document = Document{"server_id": serverId}
	}
	if !sameValue(document[field], expected) {
		log.Debug().Str("collection", collection).Str("server_id", serverId).Str("field", field).
			Interface("expected", expected).Interface("found", document[field]).Msg("Compare and swap lost")
		return false, nil
	}
	document[field] = value

	if err := write(ctx, tx, collection, serverId, document); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit swap: %w", err)
	}
	return true, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findOne(ctx context.Context, q querier, collection string, serverId string) (Document, error) {

	var body string
	err := q.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = ? AND server_id = ?",
		collection, serverId,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, serverId, err)
	}

	var document Document
	if err := json.Unmarshal([]byte(body), &document); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, serverId, err)
	}
	return document, nil
}

func write(ctx context.Context, tx *sql.Tx, collection string, serverId string, document Document) error {

	body, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, serverId, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (collection, server_id, body) VALUES (?, ?, ?)
		ON CONFLICT (collection, server_id) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
		collection, serverId, string(body),
	)
	if err != nil {
		return fmt.Errorf("failed to write document %s/%s: %w", collection, serverId, err)
	}
	return nil
}

// Values read back from JSON are compared to the expected ones
// after going through JSON themselves
func sameValue(found any, expected any) bool {
	if found == nil || expected == nil {
		return found == nil && expected == nil
	}
	data, err := json.Marshal(expected)
	if err != nil {
		return false
	}
	var normalised any
	if err := json.Unmarshal(data, &normalised); err != nil {
		return false
	}
	return reflect.DeepEqual(found, normalised)
}
