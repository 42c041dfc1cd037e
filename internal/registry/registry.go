// Package registry keeps the ordered list of transfer records shown by the
// client and relays their change notifications.
package registry

import (
	"sync"

	"github.com/samber/lo"

	"github.com/chmdznr/savannah/pkg/models"
	"github.com/chmdznr/savannah/pkg/notify"
)

// EventKind distinguishes list-level changes from changes inside one record.
type EventKind int

const (
	// EventListChanged means records were added, removed or cleared.
	EventListChanged EventKind = iota + 1
	// EventRecordChanged means a field of Event.Record changed.
	EventRecordChanged
)

func (k EventKind) String() string {
	switch k {
	case EventListChanged:
		return "list_changed"
	case EventRecordChanged:
		return "record_changed"
	}
	return "unknown"
}

// Event is delivered to registry subscribers. Record is set for every
// EventRecordChanged and for list changes caused by a single add or remove;
// it is nil after ResetAll.
type Event struct {
	Kind   EventKind
	Record *models.TransferRecord
	Field  models.RecordField
}

type entry struct {
	record      *models.TransferRecord
	unsubscribe func()
}

// Registry owns the ordered sequence of tracked transfers.
type Registry struct {
	mu        sync.Mutex
	entries   []entry
	listeners notify.Hub[Event]
}

// New creates an empty registry
func New() *Registry {
	return &Registry{}
}

// Subscribe registers l for registry events and returns its remover.
func (r *Registry) Subscribe(l func(Event)) (unsubscribe func()) {
	return r.listeners.Subscribe(l)
}

// AddRecord appends rec and starts relaying its changes. It returns false for nil.
func (r *Registry) AddRecord(rec *models.TransferRecord) bool {
	if rec == nil {
		return false
	}

	unsubscribe := rec.Subscribe(r.relay)

	r.mu.Lock()
	r.entries = append(r.entries, entry{record: rec, unsubscribe: unsubscribe})
	r.mu.Unlock()

	r.listeners.Emit(Event{Kind: EventListChanged, Record: rec})
	return true
}

// RemoveRecord removes the most recently added entry equal to rec. It returns
// false if rec is nil or nothing matches.
func (r *Registry) RemoveRecord(rec *models.TransferRecord) bool {
	if rec == nil {
		return false
	}

	r.mu.Lock()
	idx := -1
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].record.Equal(rec) {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	removed := r.entries[idx]
	r.entries = append(r.entries[:idx:idx], r.entries[idx+1:]...)
	r.mu.Unlock()

	removed.unsubscribe()
	r.listeners.Emit(Event{Kind: EventListChanged, Record: removed.record})
	return true
}

// ResetAll drops every record. Subscribers hear about it once, and only if
// there was something to drop.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	dropped := r.entries
	r.entries = nil
	r.mu.Unlock()

	if len(dropped) == 0 {
		return
	}
	for _, e := range dropped {
		e.unsubscribe()
	}
	r.listeners.Emit(Event{Kind: EventListChanged})
}

// FindByKey returns the newest record with the given transaction id, filename
// and filetype. An empty filename or filetype matches only an empty one.
func (r *Registry) FindByKey(filename, filetype string, transactionID int64) (*models.TransferRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.entries) - 1; i >= 0; i-- {
		rec := r.entries[i].record
		if rec.TransactionID() != transactionID {
			continue
		}
		if keyPartMatches(filename, rec.Filename()) && keyPartMatches(filetype, rec.Filetype()) {
			return rec, true
		}
	}
	return nil, false
}

// keyPartMatches treats the empty string as an absent value: two absent values
// match each other and nothing else.
func keyPartMatches(want, have string) bool {
	if want == "" || have == "" {
		return want == "" && have == ""
	}
	return want == have
}

// FindAllByFilename returns, in insertion order, every record for filename.
func (r *Registry) FindAllByFilename(filename string) []*models.TransferRecord {
	if filename == "" {
		return nil
	}
	return lo.Filter(r.Snapshot(), func(rec *models.TransferRecord, _ int) bool {
		return rec.Filename() == filename
	})
}

// Snapshot returns a copy of the current sequence.
func (r *Registry) Snapshot() []*models.TransferRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.Map(r.entries, func(e entry, _ int) *models.TransferRecord {
		return e.record
	})
}

// Len returns the number of tracked records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Stats counts the tracked records by state.
func (r *Registry) Stats() models.Stats {
	var stats models.Stats
	for _, rec := range r.Snapshot() {
		snap := rec.Snapshot()
		stats.Add(snap.State, snap.FileSize)
	}
	return stats
}

func (r *Registry) relay(change models.RecordChange) {
	r.listeners.Emit(Event{Kind: EventRecordChanged, Record: change.Record, Field: change.Field})
}
