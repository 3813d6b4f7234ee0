package organize

import (
	"errors"
	"path/filepath"
	"time"
)

var (
	ErrNoCatalogItem = errors.New("file is not in the catalog")
	ErrNoMetadata    = errors.New("catalog item has no metadata")
)

// Status is the result of organizing one file.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailed
	// StatusPlanned marks a dry-run file whose plan was resolved.
	StatusPlanned
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	case StatusPlanned:
		return "planned"
	default:
		return "unknown"
	}
}

// Outcome describes what happened to one candidate.
type Outcome struct {
	Source   string
	Target   string
	Num      string
	Status   Status
	Reason   string
	Err      error
	Plan     *Plan
	Moved    []Move
	Skipped  []Move
	Bytes    int64
	Duration time.Duration

	// PrimaryRelocated is set once the video itself reached its destination,
	// even if a sibling failed afterwards.
	PrimaryRelocated bool
}

// Report summarizes a run.
type Report struct {
	RunID            string
	StartedAt        time.Time
	FinishedAt       time.Time
	DryRun           bool
	Found            int
	Outcomes         []Outcome
	ProcessedFolders []string
	LeftoversDeleted int
	FoldersRemoved   int
	Cancelled        bool
}

// Count returns how many outcomes have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Relocated returns how many primaries reached their destination.
func (r *Report) Relocated() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.PrimaryRelocated {
			n++
		}
	}
	return n
}

// BytesRelocated sums the bytes transferred.
func (r *Report) BytesRelocated() int64 {
	var n int64
	for _, o := range r.Outcomes {
		n += o.Bytes
	}
	return n
}

// ProcessedFolderSet is an insertion-ordered set of source directories.
type ProcessedFolderSet struct {
	seen  map[string]bool
	order []string
}

func NewProcessedFolderSet() *ProcessedFolderSet {
	return &ProcessedFolderSet{seen: make(map[string]bool)}
}

// Add records dir and reports whether it was new.
func (s *ProcessedFolderSet) Add(dir string) bool {
	dir = filepath.Clean(dir)
	if s.seen[dir] {
		return false
	}
	s.seen[dir] = true
	s.order = append(s.order, dir)
	return true
}

func (s *ProcessedFolderSet) Contains(dir string) bool {
	return s.seen[filepath.Clean(dir)]
}

func (s *ProcessedFolderSet) Len() int {
	return len(s.order)
}

// List returns the folders in insertion order.
func (s *ProcessedFolderSet) List() []string {
	return append([]string(nil), s.order...)
}

// ProgressFunc receives the run progress as a fraction in [0, 1].
type ProgressFunc func(fraction float64)

// progressTracker never reports a value lower than one already reported.
type progressTracker struct {
	fn   ProgressFunc
	last float64
}

func (p *progressTracker) report(f float64) {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	if f < p.last {
		f = p.last
	}
	p.last = f
	if p.fn != nil {
		p.fn(f)
	}
}
