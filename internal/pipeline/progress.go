package pipeline

import "sync/atomic"

// Progress exposes live run counters for the status endpoint. All
// fields are updated atomically by worker goroutines.
type Progress struct {
	total      atomic.Int64
	completed  atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
	withEmails atomic.Int64
}

// ProgressSnapshot is a consistent-enough copy for JSON responses.
type ProgressSnapshot struct {
	Total      int64 `json:"total"`
	Completed  int64 `json:"completed"`
	Skipped    int64 `json:"skipped"`
	Failed     int64 `json:"failed"`
	WithEmails int64 `json:"with_emails"`
}

func (p *Progress) start(total int) {
	p.total.Store(int64(total))
	p.completed.Store(0)
	p.skipped.Store(0)
	p.failed.Store(0)
	p.withEmails.Store(0)
}

func (p *Progress) markSkipped() {
	p.skipped.Add(1)
	p.completed.Add(1)
}

func (p *Progress) markFinished(failed, withEmails bool) {
	p.completed.Add(1)
	if failed {
		p.failed.Add(1)
	}
	if withEmails {
		p.withEmails.Add(1)
	}
}

// Snapshot returns the current counters.
func (p *Progress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		Total:      p.total.Load(),
		Completed:  p.completed.Load(),
		Skipped:    p.skipped.Load(),
		Failed:     p.failed.Load(),
		WithEmails: p.withEmails.Load(),
	}
}
