package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

func sampleResults() []enrich.CompanyResult {
	finished := time.Unix(1700000000, 0).UTC()
	return []enrich.CompanyResult{
		{
			CompanyID:   "c1",
			CompanyName: "Acme",
			Status:      enrich.StatusDone,
			Domain:      "acme.com",
			Provenance:  enrich.ProvenanceExplicit,
			Emails: []enrich.EmailRecord{
				{Address: "hello@acme.com", Sources: []string{"crawl"}},
				{Address: "jane@acme.com", Sources: []string{"hunter"}, Verified: true},
			},
			Confidence: "high",
			FinishedAt: finished,
		},
		{
			CompanyID:     "c2",
			CompanyName:   "Ghost Co",
			Status:        enrich.StatusFailed,
			FailureReason: "unresolved",
			Emails:        []enrich.EmailRecord{},
			FinishedAt:    finished,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(path, sampleResults()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, csvHeader, rows[0])
	require.Equal(t, "hello@acme.com;jane@acme.com", rows[1][5])
	require.Equal(t, "jane@acme.com", rows[1][6])
	require.Equal(t, "unresolved", rows[2][8])
}

func TestWriteJSONDedupes(t *testing.T) {
	t.Parallel()

	results := sampleResults()
	// A later row for the same (name, domain) replaces the earlier one.
	updated := results[0]
	updated.Confidence = "medium"
	results = append(results, updated)

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSON(path, results))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []enrich.CompanyResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, "medium", decoded[0].Confidence)
}
