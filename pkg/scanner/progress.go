package scanner

import "context"

// Phase is the stage a scan is in
type Phase string

const (
	PhaseCollectingIDs          Phase = "collecting-ids"
	PhaseScanningUsers          Phase = "scanning-users"
	PhaseComputingRelationships Phase = "computing-relationships"
	PhaseComplete               Phase = "complete"
	PhaseError                  Phase = "error"
)

// Progress is a transient snapshot of a running scan
type Progress struct {
	Phase     Phase  `json:"phase"`
	Collected int    `json:"collected"`
	Total     int    `json:"total"`
	Scanned   int    `json:"scanned"`
	Page      int    `json:"page"`
	Message   string `json:"message,omitempty"`
	Err       error  `json:"-"`
}

// Percent returns Scanned as a share of Total, or 0 when Total is unknown
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Scanned) / float64(p.Total) * 100
}

// ProgressFunc receives progress synchronously from the scanning goroutine
type ProgressFunc func(Progress)

// BatchFunc receives every flushed batch of profiles, in fetch order. A
// returned error aborts the scan.
type BatchFunc func(ctx context.Context, profiles []AccountProfile) error

func (f ProgressFunc) emit(p Progress) {
	if f != nil {
		f(p)
	}
}
