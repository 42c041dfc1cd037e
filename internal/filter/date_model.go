// Package filter holds the filter settings the history views apply: a date
// window and a list of wildcard patterns, each announcing its changes.
package filter

import (
	"sync"

	"github.com/chmdznr/savannah/pkg/models"
	"github.com/chmdznr/savannah/pkg/notify"
)

// DateFilterChange carries the previous and the new filter.
type DateFilterChange struct {
	Old models.DateFilter
	New models.DateFilter
}

// DateFilterModel holds the active date filter. The filter is replaced as a
// whole, never edited in place.
type DateFilterModel struct {
	mu        sync.Mutex
	current   models.DateFilter
	listeners notify.Hub[DateFilterChange]
}

// NewDateFilterModel starts with an OFF filter
func NewDateFilterModel() *DateFilterModel {
	return &DateFilterModel{current: models.NewDateFilter()}
}

func (m *DateFilterModel) Filter() models.DateFilter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetFilter replaces the filter and notifies subscribers unless f equals the
// current one.
func (m *DateFilterModel) SetFilter(f models.DateFilter) {
	m.mu.Lock()
	old := m.current
	if old.Equal(f) {
		m.mu.Unlock()
		return
	}
	m.current = f
	m.mu.Unlock()

	m.listeners.Emit(DateFilterChange{Old: old, New: f})
}

func (m *DateFilterModel) Subscribe(l func(DateFilterChange)) (unsubscribe func()) {
	return m.listeners.Subscribe(l)
}
