// Package enrich defines the core types shared across the enrichment
// pipeline: company records, resolved domains, fetched pages, email
// candidates, and the per-company email set that gets checkpointed.
package enrich
