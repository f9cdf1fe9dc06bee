package enrich

import (
	"time"
)

// CompanyRecord is one immutable input row. The core never mutates it.
type CompanyRecord struct {
	ID          string `json:"id"`
	Name        string `json:"company_name"`
	Website     string `json:"website,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
	FounderName string `json:"founder_name,omitempty"`
	Country     string `json:"country,omitempty"`
}

// Provenance records which resolution source produced a domain.
type Provenance string

// Domain resolution provenance values.
const (
	ProvenanceExplicit Provenance = "explicit"
	ProvenanceLinkedIn Provenance = "linkedin"
	ProvenanceSearch   Provenance = "search"
)

// ResolvedDomain binds a company to its canonical registrable domain.
// Produced once by the resolver and immutable afterwards.
type ResolvedDomain struct {
	CompanyID  string     `json:"company_id"`
	Domain     string     `json:"domain"`
	Provenance Provenance `json:"provenance"`
}

// FetchStatus classifies the outcome of a single logical page fetch.
type FetchStatus string

// Fetch outcomes.
const (
	FetchOK      FetchStatus = "ok"
	FetchBlocked FetchStatus = "blocked"
	FetchError   FetchStatus = "error"
)

// PageResult is the outcome of fetching one URL. It is transient: the
// extractor consumes it immediately and the body is never persisted.
type PageResult struct {
	URL        string
	Status     FetchStatus
	StatusCode int
	Body       []byte
	Depth      int
	Duration   time.Duration
	Reason     string
}

// EmailCandidate is a raw address matched on a page, before filtering
// promotes it into a CompanyEmailSet.
type EmailCandidate struct {
	Address   string
	SourceURL string
	Depth     int
}

// CompanyStatus is the checkpointed lifecycle state of a company.
// It only advances pending -> done/failed, never backwards.
type CompanyStatus string

// Company status values persisted by the checkpoint store.
const (
	StatusPending CompanyStatus = "pending"
	StatusDone    CompanyStatus = "done"
	StatusFailed  CompanyStatus = "failed"
)

// EmailRecord is one deduplicated address with accumulated provenance.
type EmailRecord struct {
	Address  string   `json:"address"`
	Sources  []string `json:"sources"`
	Verified bool     `json:"verified,omitempty"`
}

// CompanyResult is the unit the checkpoint store persists: everything
// the pipeline learned about one company.
type CompanyResult struct {
	CompanyID     string        `json:"company_id"`
	CompanyName   string        `json:"company_name"`
	Status        CompanyStatus `json:"status"`
	Domain        string        `json:"domain,omitempty"`
	Provenance    Provenance    `json:"provenance,omitempty"`
	Emails        []EmailRecord `json:"emails"`
	Confidence    string        `json:"confidence,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	FinishedAt    time.Time     `json:"finished_at"`
}

// HasEmails reports whether at least one address survived filtering.
func (r CompanyResult) HasEmails() bool {
	return len(r.Emails) > 0
}
