package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/marcelsud/inbound-processor/inbound"
)

/* PostgreSQL implementation of inbound.Store
 * One row per record in inbound_data; headers, payload and exception are jsonb
 */

const schema = `
	CREATE TABLE IF NOT EXISTS inbound_data (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		headers JSONB NOT NULL,
		payload JSONB NOT NULL,
		exception JSONB NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS inbound_data_created_at_idx ON inbound_data (created_at);
	CREATE INDEX IF NOT EXISTS inbound_data_name_idx ON inbound_data (name)
`

type Store struct {
	DB *sql.DB
}

// NewStore opens a store with the default pool (25, 5, 5 min)
func NewStore(connectionString string) (*Store, error) {
	return NewStoreWithPoolConfig(connectionString, 25, 5, 5)
}

// NewStoreWithPoolConfig opens a store with a custom pool.
// Zero values leave the database/sql defaults in place.
func NewStoreWithPoolConfig(connectionString string, maxOpenConns, maxIdleConns, maxLifeMinutes int) (*Store, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if maxLifeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(maxLifeMinutes) * time.Minute)
	}

	return &Store{DB: db}, nil
}

// Migrate creates the inbound_data table and its indexes
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	return nil
}

// Create inserts a record
func (s *Store) Create(ctx context.Context, rec inbound.Record) error {
	headers, err := json.Marshal(rec.Headers)
	if err != nil {
		return fmt.Errorf("marshaling headers: %w", err)
	}
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	exception, err := encodeException(rec.Exception)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO inbound_data (id, name, url, headers, payload, exception, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.DB.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.URL, string(headers), string(payload), exception, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

// Get retrieves a record by id
func (s *Store) Get(ctx context.Context, id string) (inbound.Record, error) {
	query := `
		SELECT id, name, url, headers, payload, exception, created_at, updated_at
		FROM inbound_data WHERE id = $1
	`

	var (
		rec                         inbound.Record
		headers, payload, exception []byte
	)
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Name, &rec.URL, &headers, &payload, &exception, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return inbound.Record{}, fmt.Errorf("%w: %s", inbound.ErrRecordNotFound, id)
	}
	if err != nil {
		return inbound.Record{}, fmt.Errorf("selecting record: %w", err)
	}

	if err := json.Unmarshal(headers, &rec.Headers); err != nil {
		return inbound.Record{}, fmt.Errorf("unmarshaling headers: %w", err)
	}
	if err := json.Unmarshal(payload, &rec.Payload); err != nil {
		return inbound.Record{}, fmt.Errorf("unmarshaling payload: %w", err)
	}
	if len(exception) > 0 {
		rec.Exception = &inbound.Exception{}
		if err := json.Unmarshal(exception, rec.Exception); err != nil {
			return inbound.Record{}, fmt.Errorf("unmarshaling exception: %w", err)
		}
	}

	return rec, nil
}

// SetException overwrites the exception column, nil stores NULL
func (s *Store) SetException(ctx context.Context, id string, exc *inbound.Exception, updatedAt time.Time) error {
	exception, err := encodeException(exc)
	if err != nil {
		return err
	}

	query := "UPDATE inbound_data SET exception = $1, updated_at = $2 WHERE id = $3"
	result, err := s.DB.ExecContext(ctx, query, exception, updatedAt, id)
	if err != nil {
		return fmt.Errorf("updating exception: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", inbound.ErrRecordNotFound, id)
	}
	return nil
}

// CreatedBefore returns the ids of records created strictly before t, oldest first
func (s *Store) CreatedBefore(ctx context.Context, t time.Time) ([]string, error) {
	query := "SELECT id FROM inbound_data WHERE created_at < $1 ORDER BY created_at"

	rows, err := s.DB.QueryContext(ctx, query, t)
	if err != nil {
		return nil, fmt.Errorf("selecting records: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return ids, nil
}

// Delete removes the records in one statement
func (s *Store) Delete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := s.DB.ExecContext(ctx, "DELETE FROM inbound_data WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("deleting records: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return rows, nil
}

// Count returns how many records an endpoint currently holds
func (s *Store) Count(ctx context.Context, endpoint string) (int64, error) {
	var n int64
	err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM inbound_data WHERE name = $1", endpoint).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// encodeException returns nil for a nil exception so the column is NULL
func encodeException(exc *inbound.Exception) (any, error) {
	if exc == nil {
		return nil, nil
	}
	data, err := json.Marshal(exc)
	if err != nil {
		return nil, fmt.Errorf("marshaling exception: %w", err)
	}
	return string(data), nil
}
