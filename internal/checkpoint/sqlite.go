package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // sqlite driver
	"go.uber.org/zap"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS companies (
	company_id     TEXT PRIMARY KEY,
	company_name   TEXT NOT NULL,
	status         TEXT NOT NULL,
	domain         TEXT NOT NULL DEFAULT '',
	provenance     TEXT NOT NULL DEFAULT '',
	emails         TEXT NOT NULL DEFAULT '[]',
	confidence     TEXT NOT NULL DEFAULT '',
	failure_reason TEXT NOT NULL DEFAULT '',
	finished_at    TIMESTAMP NOT NULL
);
`

// SQLiteStore is the default checkpoint backend: a single local file,
// one writer, safe across process restarts.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) a checkpoint database at path.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite checkpoint: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite typically wants 1 writer
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite checkpoint: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create checkpoint schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Load reads every checkpoint row.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]enrich.CompanyResult, error) {
	rows, err := s.db.QueryContext(ctx, `
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
			emailsJSON string
		)
		if err := rows.Scan(
			&res.CompanyID, &res.CompanyName, &res.Status, &res.Domain,
			&res.Provenance, &emailsJSON, &res.Confidence,
			&res.FailureReason, &res.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		if err := json.Unmarshal([]byte(emailsJSON), &res.Emails); err != nil {
			return nil, fmt.Errorf("decode emails for %s: %w", res.CompanyID, err)
		}
		out[res.CompanyID] = res
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return out, nil
}

// Record upserts a result. A row already marked done is left untouched,
// so a resumed run can never regress finished work.
func (s *SQLiteStore) Record(ctx context.Context, result enrich.CompanyResult) error {
	emailsJSON, err := json.Marshal(result.Emails)
	if err != nil {
		return fmt.Errorf("encode emails: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO companies (
			company_id, company_name, status, domain, provenance,
			emails, confidence, failure_reason, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id) DO UPDATE SET
			company_name   = excluded.company_name,
			status         = excluded.status,
			domain         = excluded.domain,
			provenance     = excluded.provenance,
			emails         = excluded.emails,
			confidence     = excluded.confidence,
			failure_reason = excluded.failure_reason,
			finished_at    = excluded.finished_at
		WHERE companies.status <> 'done'`,
		result.CompanyID, result.CompanyName, string(result.Status),
		result.Domain, string(result.Provenance), string(emailsJSON),
		result.Confidence, result.FailureReason, result.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record checkpoint for %s: %w", result.CompanyID, err)
	}
	return nil
}

// IsDone reports whether the company already finished successfully.
func (s *SQLiteStore) IsDone(ctx context.Context, companyID string) (bool, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM companies WHERE company_id = ?`, companyID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query checkpoint status: %w", err)
	}
	return status == string(enrich.StatusDone), nil
}

// Close closes the database file.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
