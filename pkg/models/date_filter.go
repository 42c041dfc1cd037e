package models

import (
	"fmt"
	"time"
)

// DateFilterMode selects which of a DateFilter's fields are meaningful.
type DateFilterMode int

const (
	DateFilterOff DateFilterMode = iota
	DateFilterBetween
	DateFilterAfter
	DateFilterBefore
	DateFilterOffset
)

func (m DateFilterMode) String() string {
	switch m {
	case DateFilterOff:
		return "OFF"
	case DateFilterBetween:
		return "BETWEEN"
	case DateFilterAfter:
		return "AFTER"
	case DateFilterBefore:
		return "BEFORE"
	case DateFilterOffset:
		return "OFFSET"
	}
	return fmt.Sprintf("DateFilterMode(%d)", int(m))
}

// DateFilter describes a time window. Only the fields relevant to Mode are
// consulted by consumers, but all of them are kept and compared.
type DateFilter struct {
	mode    DateFilterMode
	date    time.Time
	endDate time.Time
	offset  time.Duration
}

// NewDateFilter returns a filter in OFF mode.
func NewDateFilter() DateFilter {
	return DateFilter{mode: DateFilterOff}
}

// NewDateFilterAt builds an AFTER or BEFORE filter. Any other mode yields an
// OFF filter that still remembers t.
func NewDateFilterAt(mode DateFilterMode, t time.Time) DateFilter {
	if mode != DateFilterAfter && mode != DateFilterBefore {
		mode = DateFilterOff
	}
	return DateFilter{mode: mode, date: t}
}

// NewDateFilterBetween builds an inclusive [start, end] filter.
func NewDateFilterBetween(start, end time.Time) DateFilter {
	return DateFilter{mode: DateFilterBetween, date: start, endDate: end}
}

// NewDateFilterOffset builds a "within the last offset" filter. Non-positive
// offsets yield an OFF filter.
func NewDateFilterOffset(offset time.Duration) DateFilter {
	if offset <= 0 {
		return DateFilter{mode: DateFilterOff, offset: offset}
	}
	return DateFilter{mode: DateFilterOffset, offset: offset}
}

func (f DateFilter) Mode() DateFilterMode  { return f.mode }
func (f DateFilter) Date() time.Time       { return f.date }
func (f DateFilter) EndDate() time.Time    { return f.endDate }
func (f DateFilter) Offset() time.Duration { return f.offset }
func (f DateFilter) IsOff() bool           { return f.mode == DateFilterOff }

// SetDateBounds overwrites both dates whatever the mode.
func (f *DateFilter) SetDateBounds(start, end time.Time) {
	f.date = start
	f.endDate = end
}

// Equal compares every field, including those the active mode ignores.
func (f DateFilter) Equal(other DateFilter) bool {
	return f.mode == other.mode &&
		f.date.Equal(other.date) &&
		f.endDate.Equal(other.endDate) &&
		f.offset == other.offset
}

func (f DateFilter) String() string {
	switch f.mode {
	case DateFilterAfter, DateFilterBefore:
		return fmt.Sprintf("%s %s", f.mode, f.date.Format(time.RFC3339))
	case DateFilterBetween:
		return fmt.Sprintf("%s %s and %s", f.mode, f.date.Format(time.RFC3339), f.endDate.Format(time.RFC3339))
	case DateFilterOffset:
		return fmt.Sprintf("within last %s", f.offset)
	}
	return f.mode.String()
}
