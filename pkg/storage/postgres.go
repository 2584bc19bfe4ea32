package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cuemby/drbridge/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS data_requests (
	id BIGINT PRIMARY KEY,
	payload BYTEA NOT NULL,
	state TEXT NOT NULL,
	resolution_hash BYTEA,
	observed_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS bridge_meta (
	key TEXT PRIMARY KEY,
	value BIGINT NOT NULL
);
INSERT INTO bridge_meta (key, value) VALUES ('next_id', 0) ON CONFLICT (key) DO NOTHING;
`

// The CASE guards keep a finished row finished, the stored payload and the
// first observed_at.
const postgresUpsert = `
INSERT INTO data_requests (id, payload, state, resolution_hash, observed_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (id) DO UPDATE SET
	payload = CASE WHEN length(data_requests.payload) > 0 THEN data_requests.payload ELSE EXCLUDED.payload END,
	state = CASE WHEN data_requests.state = 'finished' THEN data_requests.state ELSE EXCLUDED.state END,
	resolution_hash = CASE WHEN data_requests.state = 'finished' THEN data_requests.resolution_hash ELSE EXCLUDED.resolution_hash END,
	observed_at = COALESCE(data_requests.observed_at, EXCLUDED.observed_at),
	updated_at = NOW()
`

// PostgresStore implements Store on a pgx connection pool
type PostgresStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresStore connects, pings and creates the schema
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{pool: pool, timeout: 10 * time.Second}, nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStore) Upsert(req *types.DataRequest) error {
	if req.ID > math.MaxInt64 {
		return fmt.Errorf("request id %d out of range", req.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	payload := req.Payload
	if payload == nil {
		payload = []byte{}
	}
	var hash []byte
	if req.ResolutionHash != nil {
		hash = req.ResolutionHash.Bytes()
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, postgresUpsert,
			int64(req.ID), payload, string(req.State), hash, req.ObservedAt,
		); err != nil {
			return err
		}

		var next int64
		if err := tx.QueryRow(ctx,
			`SELECT value FROM bridge_meta WHERE key = 'next_id' FOR UPDATE`,
		).Scan(&next); err != nil {
			return err
		}
		if int64(req.ID) != next {
			return nil
		}
		for {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM data_requests WHERE id = $1)`, next,
			).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				break
			}
			next++
		}
		_, err := tx.Exec(ctx, `UPDATE bridge_meta SET value = $1 WHERE key = 'next_id'`, next)
		return err
	})
}

func (p *PostgresStore) LastKnownID() (uint64, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	var next int64
	if err := p.pool.QueryRow(ctx,
		`SELECT value FROM bridge_meta WHERE key = 'next_id'`,
	).Scan(&next); err != nil {
		return 0, false, err
	}
	if next == 0 {
		return 0, false, nil
	}
	return uint64(next - 1), true, nil
}

func (p *PostgresStore) GetRequest(id uint64) (*types.DataRequest, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	row := p.pool.QueryRow(ctx,
		`SELECT id, payload, state, resolution_hash, observed_at, updated_at
		 FROM data_requests WHERE id = $1`, int64(id))
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return req, err
}

func (p *PostgresStore) ListRequests(state types.DrState) ([]*types.DataRequest, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	rows, err := p.pool.Query(ctx,
		`SELECT id, payload, state, resolution_hash, observed_at, updated_at
		 FROM data_requests WHERE $1 = '' OR state = $1 ORDER BY id`, string(state))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*types.DataRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (p *PostgresStore) CountByState() (map[types.DrState]int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	rows, err := p.pool.Query(ctx, `SELECT state, COUNT(*) FROM data_requests GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.DrState]int)
	for rows.Next() {
		var (
			state string
			n     int64
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[types.DrState(state)] = int(n)
	}
	return counts, rows.Err()
}

func scanRequest(row pgx.Row) (*types.DataRequest, error) {
	var (
		id    int64
		state string
		hash  []byte
		req   types.DataRequest
	)
	if err := row.Scan(&id, &req.Payload, &state, &hash, &req.ObservedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	req.ID = uint64(id)
	req.State = types.DrState(state)
	if len(hash) > 0 {
		h := common.BytesToHash(hash)
		req.ResolutionHash = &h
	}
	return &req, nil
}
