package models

import "time"

// Profile is a named connection to an FEI archive endpoint.
type Profile struct {
	Name        string
	Destination struct {
		Endpoint  string
		Bucket    string
		Folder    string
		AccessKey string
		SecretKey string
		Secure    bool
	}
}

// HistoryEntry is a transfer record as persisted in the history store.
type HistoryEntry struct {
	RecordSnapshot
	SessionID string
	UpdatedAt time.Time
}
