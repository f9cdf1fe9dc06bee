package enrich

import (
	"sort"
	"strings"
)

// CompanyEmailSet accumulates deduplicated addresses for one company.
// Identity is case-insensitive on the whole address; the first-seen
// casing is preserved for output. Provenance only ever appends.
//
// The set is owned by a single company worker, so it carries no lock.
type CompanyEmailSet struct {
	companyID string
	records   map[string]*EmailRecord
	order     []string
}

// NewCompanyEmailSet returns an empty set for a company.
func NewCompanyEmailSet(companyID string) *CompanyEmailSet {
	return &CompanyEmailSet{
		companyID: companyID,
		records:   make(map[string]*EmailRecord),
	}
}

// CompanyID returns the owning company id.
func (s *CompanyEmailSet) CompanyID() string { return s.companyID }

// Len returns the number of distinct addresses.
func (s *CompanyEmailSet) Len() int { return len(s.records) }

// Merge adds candidates from one source. Re-merging an address (any
// casing) is a no-op for identity; the source is appended to its
// provenance if not already present. Returns the number of addresses
// that were new to the set.
func (s *CompanyEmailSet) Merge(candidates []EmailCandidate, source string) int {
	added := 0
	for _, c := range candidates {
		addr := strings.TrimSpace(c.Address)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		rec, ok := s.records[key]
		if !ok {
			rec = &EmailRecord{Address: addr}
			s.records[key] = rec
			s.order = append(s.order, key)
			added++
		}
		if !containsString(rec.Sources, source) {
			rec.Sources = append(rec.Sources, source)
		}
	}
	return added
}

// MarkVerified flags an address (case-insensitive) as verified.
func (s *CompanyEmailSet) MarkVerified(address string) {
	if rec, ok := s.records[strings.ToLower(address)]; ok {
		rec.Verified = true
	}
}

// Addresses returns the addresses in first-seen order.
func (s *CompanyEmailSet) Addresses() []string {
	out := make([]string, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.records[key].Address)
	}
	return out
}

// Records returns a copy of all records, on-domain addresses first,
// alphabetical within each group.
func (s *CompanyEmailSet) Records(domain string) []EmailRecord {
	out := make([]EmailRecord, 0, len(s.records))
	for _, key := range s.order {
		rec := s.records[key]
		cp := *rec
		cp.Sources = append([]string(nil), rec.Sources...)
		out = append(out, cp)
	}
	suffix := "@" + strings.ToLower(domain)
	sort.SliceStable(out, func(i, j int) bool {
		a := strings.ToLower(out[i].Address)
		b := strings.ToLower(out[j].Address)
		aOn := domain != "" && strings.HasSuffix(a, suffix)
		bOn := domain != "" && strings.HasSuffix(b, suffix)
		if aOn != bOn {
			return aOn
		}
		return a < b
	})
	return out
}

// SourceOf returns the first source that reported an address.
func (s *CompanyEmailSet) SourceOf(address string) string {
	rec, ok := s.records[strings.ToLower(address)]
	if !ok || len(rec.Sources) == 0 {
		return ""
	}
	return rec.Sources[0]
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
