package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore keeps checkpoints in Postgres for runs that share state
// across machines.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgresStore connects to Postgres and ensures the checkpoint
// table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("checkpoint dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS companies (
			company_id     TEXT PRIMARY KEY,
			company_name   TEXT NOT NULL,
			status         TEXT NOT NULL,
			domain         TEXT NOT NULL DEFAULT '',
			provenance     TEXT NOT NULL DEFAULT '',
			emails         JSONB NOT NULL DEFAULT '[]',
			confidence     TEXT NOT NULL DEFAULT '',
			failure_reason TEXT NOT NULL DEFAULT '',
			finished_at    TIMESTAMPTZ NOT NULL
		)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create checkpoint schema: %w", err)
	}
	return s, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool pgxPool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresStore{pool: pool}, nil
}

// Load reads every checkpoint row.
func (s *PostgresStore) Load(ctx context.Context) (map[string]enrich.CompanyResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT company_id, company_name, status, domain, provenance,
		       emails, confidence, failure_reason, finished_at
		FROM companies`)
	if err != nil {
		return nil, fmt.Errorf("load checkpoints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]enrich.CompanyResult)
	for rows.Next() {
		var (
			res        enrich.CompanyResult
			emailsJSON []byte
		)
		if err := rows.Scan(
			&res.CompanyID, &res.CompanyName, &res.Status, &res.Domain,
			&res.Provenance, &emailsJSON, &res.Confidence,
			&res.FailureReason, &res.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		if err := json.Unmarshal(emailsJSON, &res.Emails); err != nil {
			return nil, fmt.Errorf("decode emails for %s: %w", res.CompanyID, err)
		}
		out[res.CompanyID] = res
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return out, nil
}

// Record upserts a result, never overwriting a done row.
func (s *PostgresStore) Record(ctx context.Context, result enrich.CompanyResult) error {
	emailsJSON, err := json.Marshal(result.Emails)
	if err != nil {
		return fmt.Errorf("encode emails: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO companies (
			company_id, company_name, status, domain, provenance,
			emails, confidence, failure_reason, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (company_id) DO UPDATE SET
			company_name   = EXCLUDED.company_name,
			status         = EXCLUDED.status,
			domain         = EXCLUDED.domain,
			provenance     = EXCLUDED.provenance,
			emails         = EXCLUDED.emails,
			confidence     = EXCLUDED.confidence,
			failure_reason = EXCLUDED.failure_reason,
			finished_at    = EXCLUDED.finished_at
		WHERE companies.status <> 'done'`,
		result.CompanyID, result.CompanyName, string(result.Status),
		result.Domain, string(result.Provenance), emailsJSON,
		result.Confidence, result.FailureReason, result.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record checkpoint for %s: %w", result.CompanyID, err)
	}
	return nil
}

// IsDone reports whether the company already finished successfully.
func (s *PostgresStore) IsDone(ctx context.Context, companyID string) (bool, error) {
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM companies WHERE company_id = $1`, companyID,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query checkpoint status: %w", err)
	}
	return status == string(enrich.StatusDone), nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
