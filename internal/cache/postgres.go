package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgx "github.com/jackc/pgx/v5"

	apperrors "github.com/rajasatyajit/apikey-authorizer/internal/errors"
	"github.com/rajasatyajit/apikey-authorizer/internal/keys"
)

// Database is the subset of database.DB used by PostgresStore
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Health(ctx context.Context) error
}

// PostgresStore stores entries in a single table keyed by value
type PostgresStore struct {
	db    Database
	table string // sanitized identifier
}

// NewPostgresStore creates a store on table
func NewPostgresStore(db Database, table string) *PostgresStore {
	return &PostgresStore{db: db, table: pgx.Identifier{table}.Sanitize()}
}

// EnsureSchema creates the cache table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	err := s.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			value      TEXT PRIMARY KEY,
			id         TEXT NOT NULL,
			timestamp  BIGINT NOT NULL,
			tags       JSONB NOT NULL DEFAULT '{}'::jsonb
		)`, s.table))
	if err != nil {
		return apperrors.ServiceError{Service: "postgres", Operation: "create table", Err: err}
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, value string) (Entry, bool, error) {
	var (
		id        string
		timestamp int64
		rawTags   []byte
	)
	row := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT id, timestamp, tags FROM %s WHERE value = $1`, s.table), value)
	if err := row.Scan(&id, &timestamp, &rawTags); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, apperrors.ServiceError{Service: "postgres", Operation: "select", Err: err}
	}

	var tags map[string]string
	if len(rawTags) > 0 {
		if err := json.Unmarshal(rawTags, &tags); err != nil {
			return Entry{}, false, fmt.Errorf("decode cache tags: %w", err)
		}
	}
	return Entry{
		Record:    keys.Record{ID: id, Value: value, Tags: tags},
		Timestamp: timestamp,
	}, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, entry Entry) error {
	tags := entry.Record.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	rawTags, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode cache tags: %w", err)
	}

	err = s.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (value, id, timestamp, tags)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (value)
		DO UPDATE SET id = EXCLUDED.id, timestamp = EXCLUDED.timestamp, tags = EXCLUDED.tags
	`, s.table), entry.Record.Value, entry.Record.ID, entry.Timestamp, string(rawTags))
	if err != nil {
		return apperrors.ServiceError{Service: "postgres", Operation: "upsert", Err: err}
	}
	return nil
}

func (s *PostgresStore) Health(ctx context.Context) error {
	if err := s.db.Health(ctx); err != nil {
		return apperrors.ServiceError{Service: "postgres", Operation: "ping", Err: err}
	}
	return nil
}
