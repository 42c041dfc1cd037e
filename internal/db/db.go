package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chmdznr/savannah/pkg/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// New opens (and creates if needed) the history database at path
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// journal writes arrive from every transfer worker
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sqlDB}
	if err := db.initialize(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize %s: %w", path, err)
	}

	return db, nil
}

// initialize creates the necessary tables if they don't exist
func (db *DB) initialize() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			name TEXT PRIMARY KEY,
			endpoint TEXT,
			bucket TEXT,
			folder TEXT,
			access_key TEXT,
			secret_key TEXT,
			secure INTEGER
		);
		CREATE TABLE IF NOT EXISTS transfers (
			session_id TEXT,
			transaction_id INTEGER,
			filename TEXT,
			filetype TEXT,
			file_size INTEGER,
			transaction_type TEXT,
			state TEXT,
			start_time INTEGER,
			end_time INTEGER,
			updated_at INTEGER,
			PRIMARY KEY (session_id, transaction_id, filename, filetype)
		);
		CREATE INDEX IF NOT EXISTS idx_transfers_state ON transfers(state);
		CREATE INDEX IF NOT EXISTS idx_transfers_updated ON transfers(updated_at);
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA temp_store=MEMORY;
	`)
	return err
}

// GetProfile retrieves a profile by name
func (db *DB) GetProfile(name string) (*models.Profile, error) {
	var profile models.Profile
	err := db.QueryRow(`
		SELECT name, endpoint, bucket, folder, access_key, secret_key, secure
		FROM profiles WHERE name = ?
	`, name).Scan(
		&profile.Name,
		&profile.Destination.Endpoint,
		&profile.Destination.Bucket,
		&profile.Destination.Folder,
		&profile.Destination.AccessKey,
		&profile.Destination.SecretKey,
		&profile.Destination.Secure,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrProfileNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", name, err)
	}
	return &profile, nil
}

// CreateProfile creates a new profile
func (db *DB) CreateProfile(profile *models.Profile) error {
	_, err := db.Exec(`
		INSERT INTO profiles (name, endpoint, bucket, folder, access_key, secret_key, secure)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		profile.Name,
		profile.Destination.Endpoint,
		profile.Destination.Bucket,
		profile.Destination.Folder,
		profile.Destination.AccessKey,
		profile.Destination.SecretKey,
		profile.Destination.Secure,
	)
	return err
}

// ListProfiles returns every profile ordered by name
func (db *DB) ListProfiles() ([]models.Profile, error) {
	rows, err := db.Query(`
		SELECT name, endpoint, bucket, folder, access_key, secret_key, secure
		FROM profiles ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		err = rows.Scan(
			&p.Name,
			&p.Destination.Endpoint,
			&p.Destination.Bucket,
			&p.Destination.Folder,
			&p.Destination.AccessKey,
			&p.Destination.SecretKey,
			&p.Destination.Secure,
		)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

const upsertTransfer = `
	INSERT OR REPLACE INTO transfers (session_id, transaction_id, filename, filetype, file_size,
		transaction_type, state, start_time, end_time, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// SaveTransfer stores the latest state of a transfer
func (db *DB) SaveTransfer(entry models.HistoryEntry) error {
	_, err := db.Exec(upsertTransfer, transferArgs(entry)...)
	return err
}

// SaveTransfersBatch stores multiple transfers in a single transaction
func (db *DB) SaveTransfersBatch(entries []models.HistoryEntry) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertTransfer)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err = stmt.Exec(transferArgs(entry)...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func transferArgs(e models.HistoryEntry) []any {
	return []any{
		e.SessionID,
		e.TransactionID,
		e.Filename,
		e.Filetype,
		e.FileSize,
		e.TransactionType.String(),
		e.State.String(),
		toMillis(e.StartTime),
		toMillis(e.EndTime),
		toMillis(e.UpdatedAt),
	}
}

// ListTransfers returns the stored history, oldest first
func (db *DB) ListTransfers() ([]models.HistoryEntry, error) {
	rows, err := db.Query(`
		SELECT session_id, transaction_id, filename, filetype, file_size,
			transaction_type, state, start_time, end_time, updated_at
		FROM transfers
		ORDER BY updated_at, rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var (
			e                        models.HistoryEntry
			txType, state            string
			start, end, updatedAtMil int64
		)
		err = rows.Scan(&e.SessionID, &e.TransactionID, &e.Filename, &e.Filetype, &e.FileSize,
			&txType, &state, &start, &end, &updatedAtMil)
		if err != nil {
			return nil, err
		}
		if e.TransactionType, err = models.ParseTransactionType(txType); err != nil {
			return nil, fmt.Errorf("transfer %s/%s: %w", e.Filetype, e.Filename, err)
		}
		if e.State, err = models.ParseTransferState(state); err != nil {
			return nil, fmt.Errorf("transfer %s/%s: %w", e.Filetype, e.Filename, err)
		}
		e.StartTime = fromMillis(start)
		e.EndTime = fromMillis(end)
		e.UpdatedAt = fromMillis(updatedAtMil)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearTransfers deletes the whole history and returns how many rows went
func (db *DB) ClearTransfers() (int64, error) {
	res, err := db.Exec(`DELETE FROM transfers`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetStats returns statistics about the stored transfers
func (db *DB) GetStats() (*models.Stats, error) {
	rows, err := db.Query(`
		SELECT state, COUNT(*), COALESCE(SUM(CASE WHEN file_size > 0 THEN file_size ELSE 0 END), 0)
		FROM transfers
		GROUP BY state
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	defer rows.Close()

	var stats models.Stats
	for rows.Next() {
		var (
			name  string
			count int64
			size  int64
		)
		if err := rows.Scan(&name, &count, &size); err != nil {
			return nil, fmt.Errorf("failed to get stats: %w", err)
		}
		state, err := models.ParseTransferState(name)
		if err != nil {
			return nil, err
		}
		stats.TotalFiles += count
		stats.TotalSize += size
		switch state {
		case models.StateInitialized:
			stats.PendingFiles += count
		case models.StateTransferring:
			stats.InProgressFiles += count
		case models.StateComplete:
			stats.CompletedFiles += count
			stats.CompletedSize += size
		case models.StateAborted:
			stats.AbortedFiles += count
		case models.StateError:
			stats.FailedFiles += count
		}
	}
	return &stats, rows.Err()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
