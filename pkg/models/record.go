package models

import (
	"fmt"
	"sync"
	"time"

	"github.com/chmdznr/savannah/pkg/notify"
)

const (
	// UnsetTransactionID marks a record whose archive transaction id is not known.
	UnsetTransactionID int64 = -1
	// UnspecifiedSize marks a record whose file size is not known.
	UnspecifiedSize int64 = -1
)

// RecordField identifies which attribute of a TransferRecord changed.
type RecordField int

const (
	FieldState RecordField = iota + 1
	FieldStartTime
	FieldEndTime
	FieldFileSize
)

func (f RecordField) String() string {
	switch f {
	case FieldState:
		return "state"
	case FieldStartTime:
		return "start_time"
	case FieldEndTime:
		return "end_time"
	case FieldFileSize:
		return "file_size"
	}
	return fmt.Sprintf("RecordField(%d)", int(f))
}

// RecordChange is delivered to record subscribers after a field changed.
type RecordChange struct {
	Record *TransferRecord
	Field  RecordField
}

// RecordKey is the identity of a transfer: two records with the same key
// describe the same transfer even if their progress has since diverged.
type RecordKey struct {
	TransactionID int64
	Filename      string
	Filetype      string
}

// RecordSnapshot is a point-in-time copy of a record's attributes.
type RecordSnapshot struct {
	Filename        string
	Filetype        string
	TransactionID   int64
	FileSize        int64
	TransactionType TransactionType
	State           TransferState
	StartTime       time.Time
	EndTime         time.Time
}

// TransferRecord tracks one transfer attempt. Filename, filetype, transaction
// id and type are fixed at construction; the remaining fields are updated by
// whoever executes the transfer and every actual change is announced to
// subscribers.
type TransferRecord struct {
	filename      string
	filetype      string
	transactionID int64
	txType        TransactionType

	mu        sync.RWMutex
	fileSize  int64
	state     TransferState
	startTime time.Time
	endTime   time.Time

	listeners notify.Hub[RecordChange]
}

// NewTransferRecord validates its arguments and returns a record in the
// INITIALIZED state with both timestamps unset.
func NewTransferRecord(filename, filetype string, transactionID, fileSize int64, txType TransactionType) (*TransferRecord, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: filename must not be empty", ErrInvalidArgument)
	}
	if filetype == "" {
		return nil, fmt.Errorf("%w: filetype must not be empty", ErrInvalidArgument)
	}
	if fileSize < 0 && fileSize != UnspecifiedSize {
		return nil, fmt.Errorf("%w: file size %d is negative", ErrInvalidArgument, fileSize)
	}
	if !txType.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %d", ErrInvalidArgument, int(txType))
	}

	return &TransferRecord{
		filename:      filename,
		filetype:      filetype,
		transactionID: transactionID,
		txType:        txType,
		fileSize:      fileSize,
		state:         StateInitialized,
	}, nil
}

func (r *TransferRecord) Filename() string                 { return r.filename }
func (r *TransferRecord) Filetype() string                 { return r.filetype }
func (r *TransferRecord) TransactionID() int64             { return r.transactionID }
func (r *TransferRecord) TransactionType() TransactionType { return r.txType }

// Key returns the identity used by Equal.
func (r *TransferRecord) Key() RecordKey {
	return RecordKey{TransactionID: r.transactionID, Filename: r.filename, Filetype: r.filetype}
}

// Equal compares records by transaction id, filename and filetype only.
func (r *TransferRecord) Equal(other *TransferRecord) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Key() == other.Key()
}

func (r *TransferRecord) State() TransferState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *TransferRecord) FileSize() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fileSize
}

// StartTime returns the zero time if the transfer has not started.
func (r *TransferRecord) StartTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.startTime
}

// EndTime returns the zero time if the transfer has not ended.
func (r *TransferRecord) EndTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.endTime
}

// Snapshot copies all attributes under a single lock.
func (r *TransferRecord) Snapshot() RecordSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RecordSnapshot{
		Filename:        r.filename,
		Filetype:        r.filetype,
		TransactionID:   r.transactionID,
		FileSize:        r.fileSize,
		TransactionType: r.txType,
		State:           r.state,
		StartTime:       r.startTime,
		EndTime:         r.endTime,
	}
}

// Subscribe registers l for change notifications and returns its remover.
func (r *TransferRecord) Subscribe(l func(RecordChange)) (unsubscribe func()) {
	return r.listeners.Subscribe(l)
}

// SetState fails for unrecognised states and leaves the record untouched.
func (r *TransferRecord) SetState(s TransferState) error {
	if !s.Valid() {
		return fmt.Errorf("%w: unknown transfer state %d", ErrInvalidArgument, int(s))
	}

	r.mu.Lock()
	if r.state == s {
		r.mu.Unlock()
		return nil
	}
	r.state = s
	r.mu.Unlock()

	r.emit(FieldState)
	return nil
}

// SetStartTime sets the start timestamp; the zero time clears it.
func (r *TransferRecord) SetStartTime(t time.Time) {
	r.mu.Lock()
	if r.startTime.Equal(t) {
		r.mu.Unlock()
		return
	}
	r.startTime = t
	r.mu.Unlock()

	r.emit(FieldStartTime)
}

// SetEndTime sets the end timestamp; the zero time clears it.
func (r *TransferRecord) SetEndTime(t time.Time) {
	r.mu.Lock()
	if r.endTime.Equal(t) {
		r.mu.Unlock()
		return
	}
	r.endTime = t
	r.mu.Unlock()

	r.emit(FieldEndTime)
}

// SetFileSize records the size in bytes. Negative values become UnspecifiedSize.
func (r *TransferRecord) SetFileSize(size int64) {
	if size < 0 {
		size = UnspecifiedSize
	}

	r.mu.Lock()
	if r.fileSize == size {
		r.mu.Unlock()
		return
	}
	r.fileSize = size
	r.mu.Unlock()

	r.emit(FieldFileSize)
}

func (r *TransferRecord) emit(field RecordField) {
	r.listeners.Emit(RecordChange{Record: r, Field: field})
}

// TransferTimeString describes the elapsed transfer time for display.
func (r *TransferRecord) TransferTimeString() string {
	s := r.Snapshot()
	return s.TransferTimeString()
}

// FileSizeString describes the file size for display.
func (r *TransferRecord) FileSizeString() string {
	return FileSizeString(r.FileSize())
}

func (r *TransferRecord) String() string {
	return fmt.Sprintf("%s %s/%s (tx %d) %s", r.txType, r.filetype, r.filename, r.transactionID, r.State())
}

// TransferTimeString is shared by live records and stored history entries.
func (s RecordSnapshot) TransferTimeString() string {
	if s.State.IsCancelled() {
		return "Cancelled"
	}
	if s.StartTime.IsZero() {
		return "Pending"
	}
	if s.EndTime.IsZero() {
		return "In progress"
	}
	if s.EndTime.Before(s.StartTime) {
		return "Error"
	}
	return fmt.Sprintf("%d ms.", s.EndTime.Sub(s.StartTime).Milliseconds())
}

// FileSizeString renders a byte count, or "Unspecified" for the sentinel.
func FileSizeString(size int64) string {
	switch {
	case size == UnspecifiedSize:
		return "Unspecified"
	case size < 0:
		return "Error"
	}
	return fmt.Sprintf("%d bytes", size)
}
