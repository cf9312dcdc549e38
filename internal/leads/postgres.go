package leads

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

const createLeadsTable = `
CREATE TABLE IF NOT EXISTS leads (
    id         SERIAL PRIMARY KEY,
    data       JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps leads as JSONB rows. Filtering happens in Go over the
// id-ordered rows so it matches MemoryStore exactly.
type PostgresStore struct {
	DB *sql.DB
}

// OpenPostgres connects to dsn, pings it and makes sure the table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	store := &PostgresStore{DB: db}
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the leads table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, createLeadsTable); err != nil {
		return fmt.Errorf("failed to create leads table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Pull(ctx context.Context, filter string) ([]models.Lead, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT data FROM leads ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	out := []models.Lead{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		var lead models.Lead
		if err := json.Unmarshal(raw, &lead); err != nil {
			return nil, fmt.Errorf("failed to decode lead: %w", err)
		}
		if Matches(lead, filter) {
			out = append(out, lead)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leads: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Push(ctx context.Context, lead models.Lead) error {
	raw, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("failed to encode lead: %w", err)
	}
	if _, err := s.DB.ExecContext(ctx, `INSERT INTO leads (data) VALUES ($1)`, raw); err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.DB.Close()
}
