// Package checkpoint persists per-company pipeline outcomes so an
// interrupted run can resume without redoing finished work.
package checkpoint

import (
	"context"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

// Store persists one row per company. Status only moves forward: a row
// already marked done is never overwritten, while failed rows may be
// replaced on a retry run.
type Store interface {
	// Load returns every persisted result keyed by company ID.
	Load(ctx context.Context) (map[string]enrich.CompanyResult, error)
	// Record upserts a company's result, subject to the done guard.
	Record(ctx context.Context, result enrich.CompanyResult) error
	// IsDone reports whether the company already finished successfully.
	IsDone(ctx context.Context, companyID string) (bool, error)
	// Close releases the backing resources.
	Close() error
}
