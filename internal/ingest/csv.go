// Package ingest reads company input files. Column headers are matched
// loosely so exports from different CRMs load without editing.
package ingest

import (
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

// columnAliases maps each normalized field to the accepted header
// spellings, in preference order.
var columnAliases = map[string][]string{
	"company_name": {"company_name", "company", "name"},
	"website":      {"website", "url", "domain"},
	"linkedin":     {"linkedin", "linkedin_url"},
	"founder_name": {"founder_name", "founder"},
	"country":      {"country", "location"},
}

// ReadCompaniesCSV loads company records from a CSV file. Rows without
// a company name are dropped with a warning.
func ReadCompaniesCSV(path string, logger *zap.Logger) ([]enrich.CompanyRecord, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input csv: %w", err)
	}
	defer f.Close()

	records, err := ReadCompanies(f, logger)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

// ReadCompanies parses CSV company rows from r.
func ReadCompanies(r io.Reader, logger *zap.Logger) ([]enrich.CompanyRecord, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("input csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := mapColumns(header)
	if _, ok := idx["company_name"]; !ok {
		return nil, fmt.Errorf("no company name column found in header %v", header)
	}

	var out []enrich.CompanyRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		field := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		name := field("company_name")
		if name == "" {
			logger.Warn("skipping row without company name", zap.Int("line", line))
			continue
		}
		out = append(out, enrich.CompanyRecord{
			ID:          CompanyID(name),
			Name:        name,
			Website:     field("website"),
			LinkedInURL: field("linkedin"),
			FounderName: field("founder_name"),
			Country:     field("country"),
		})
	}

	logger.Info("loaded companies", zap.Int("count", len(out)))
	return out, nil
}

// mapColumns resolves header spellings to field indexes.
func mapColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := make(map[string]int)
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := cols[alias]; ok {
				idx[field] = i
				break
			}
		}
	}
	return idx
}

// CompanyID derives a stable identifier from the company name, so
// checkpoint rows keep matching their companies across runs.
func CompanyID(name string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	sum := sha1.Sum([]byte(norm))
	return hex.EncodeToString(sum[:])[:12]
}
