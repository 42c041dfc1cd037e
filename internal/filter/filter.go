package filter

import (
	"time"

	"github.com/chmdznr/savannah/pkg/models"
)

// MatchDate reports whether t falls inside f's window. now anchors OFFSET
// filters. A zero t passes only an OFF filter.
func MatchDate(f models.DateFilter, t, now time.Time) bool {
	if f.IsOff() {
		return true
	}
	if t.IsZero() {
		return false
	}

	switch f.Mode() {
	case models.DateFilterAfter:
		return t.After(f.Date())
	case models.DateFilterBefore:
		return t.Before(f.Date())
	case models.DateFilterBetween:
		return !t.Before(f.Date()) && !t.After(f.EndDate())
	case models.DateFilterOffset:
		return !t.Before(now.Add(-f.Offset()))
	}
	return true
}

// Filter combines a date window, a pattern list and an optional filetype.
type Filter struct {
	Dates    *DateFilterModel
	Patterns *PatternModel
	Filetype string
	Now      func() time.Time
}

// New returns a filter that accepts everything.
func New() *Filter {
	patterns, _ := NewPatternModel()
	return &Filter{
		Dates:    NewDateFilterModel(),
		Patterns: patterns,
		Now:      time.Now,
	}
}

// Accept decides whether a transfer is shown. The date window applies to the
// transfer's start time, falling back to its end time.
func (f *Filter) Accept(s models.RecordSnapshot) bool {
	if f.Filetype != "" && s.Filetype != f.Filetype {
		return false
	}
	if !f.Patterns.Match(s.Filename) {
		return false
	}

	t := s.StartTime
	if t.IsZero() {
		t = s.EndTime
	}
	return MatchDate(f.Dates.Filter(), t, f.Now())
}

// AcceptRecord is Accept for a live record.
func (f *Filter) AcceptRecord(r *models.TransferRecord) bool {
	return f.Accept(r.Snapshot())
}
