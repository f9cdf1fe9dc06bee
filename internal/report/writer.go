// Package report writes run results to CSV and JSON output files.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

var csvHeader = []string{
	"company_id", "company_name", "status", "domain", "provenance",
	"emails", "verified_emails", "confidence", "failure_reason", "finished_at",
}

// WriteCSV writes one row per company, with addresses joined into a
// single semicolon-separated cell.
func WriteCSV(path string, results []enrich.CompanyResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, res := range results {
		var all, verified []string
		for _, rec := range res.Emails {
			all = append(all, rec.Address)
			if rec.Verified {
				verified = append(verified, rec.Address)
			}
		}
		row := []string{
			res.CompanyID,
			res.CompanyName,
			string(res.Status),
			res.Domain,
			string(res.Provenance),
			strings.Join(all, ";"),
			strings.Join(verified, ";"),
			res.Confidence,
			res.FailureReason,
			res.FinishedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", res.CompanyID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv report: %w", err)
	}
	return nil
}

// WriteJSON writes the full structured results, deduplicated by
// (company name, domain) keeping the last occurrence.
func WriteJSON(path string, results []enrich.CompanyResult) error {
	type key struct {
		name   string
		domain string
	}
	index := make(map[key]int)
	var deduped []enrich.CompanyResult
	for _, res := range results {
		k := key{name: res.CompanyName, domain: res.Domain}
		if i, ok := index[k]; ok {
			deduped[i] = res
			continue
		}
		index[k] = len(deduped)
		deduped = append(deduped, res)
	}

	data, err := json.MarshalIndent(deduped, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}
	return nil
}
