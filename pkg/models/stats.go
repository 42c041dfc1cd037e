package models

// Stats counts transfers per state
type Stats struct {
	TotalFiles      int64
	TotalSize       int64
	CompletedFiles  int64
	CompletedSize   int64
	InProgressFiles int64
	PendingFiles    int64
	AbortedFiles    int64
	FailedFiles     int64
}

// Add accounts for one transfer.
func (s *Stats) Add(state TransferState, size int64) {
	s.TotalFiles++
	if size > 0 {
		s.TotalSize += size
	}
	switch state {
	case StateInitialized:
		s.PendingFiles++
	case StateTransferring:
		s.InProgressFiles++
	case StateComplete:
		s.CompletedFiles++
		if size > 0 {
			s.CompletedSize += size
		}
	case StateAborted:
		s.AbortedFiles++
	case StateError:
		s.FailedFiles++
	}
}
