package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiushlabs/aiush-gateway/internal/normalize"
)

// ddlHistory creates the owners root table and the append-only record
// log. The normalized response is stored as JSONB so degraded-parse
// replies round-trip without a schema change.
const ddlHistory = `
CREATE TABLE IF NOT EXISTS owners (
    id          TEXT         PRIMARY KEY,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS history_records (
    id             BIGSERIAL    PRIMARY KEY,
    owner_id       TEXT         NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
    input_summary  TEXT         NOT NULL,
    response       JSONB        NOT NULL,
    kind           TEXT         NOT NULL,
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now(),
    client_time    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_history_records_owner
    ON history_records (owner_id, created_at DESC);
`

// Compile-time interface check.
var _ Writer = (*Store)(nil)

// Store is the PostgreSQL-backed history adapter. It holds a single
// pgxpool.Pool; all methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn and
// runs the schema migration.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("history store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlHistory); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Ping reports whether the database is reachable. Used as a readiness
// checker.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureOwner implements Writer.
func (s *Store) EnsureOwner(ctx context.Context, ownerID string) error {
	const q = `INSERT INTO owners (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, q, ownerID); err != nil {
		return fmt.Errorf("history store: ensure owner: %w", err)
	}
	return nil
}

// Append implements Writer. The authoritative timestamp is assigned by
// the database, never by the gateway.
func (s *Store) Append(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry.Response)
	if err != nil {
		return fmt.Errorf("history store: encode response: %w", err)
	}

	const q = `
		INSERT INTO history_records (owner_id, input_summary, response, kind, client_time)
		VALUES ($1, $2, $3, $4, $5)`

	var clientTime any
	if !entry.ClientTime.IsZero() {
		clientTime = entry.ClientTime
	}
	if _, err := s.pool.Exec(ctx, q, entry.OwnerID, entry.InputSummary, payload, string(entry.Kind), clientTime); err != nil {
		return fmt.Errorf("history store: append: %w", err)
	}
	return nil
}

// ListByOwner returns all records for ownerID ordered by the
// authoritative timestamp, most-recent-first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	const q = `
		SELECT id, owner_id, input_summary, response, kind, created_at, client_time
		FROM   history_records
		WHERE  owner_id = $1
		ORDER  BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("history store: list: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var (
			r          Record
			payload    []byte
			kind       string
			clientTime *time.Time
		)
		if err := row.Scan(&r.ID, &r.OwnerID, &r.InputSummary, &payload, &kind, &r.CreatedAt, &clientTime); err != nil {
			return Record{}, err
		}
		r.Kind = Kind(kind)
		if clientTime != nil {
			r.ClientTime = *clientTime
		}
		r.Response = &normalize.Response{}
		if err := json.Unmarshal(payload, r.Response); err != nil {
			return Record{}, err
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("history store: scan rows: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// ClearOwner deletes all records for ownerID. Irreversible.
func (s *Store) ClearOwner(ctx context.Context, ownerID string) error {
	const q = `DELETE FROM history_records WHERE owner_id = $1`
	if _, err := s.pool.Exec(ctx, q, ownerID); err != nil {
		return fmt.Errorf("history store: clear owner: %w", err)
	}
	return nil
}
