// Package journal persists registry activity into the transfer history.
package journal

import (
	"time"

	"go.uber.org/zap"

	"github.com/chmdznr/savannah/internal/registry"
	"github.com/chmdznr/savannah/pkg/models"
)

// Store is the part of the history database the journal writes to.
type Store interface {
	SaveTransfer(entry models.HistoryEntry) error
}

// Journal writes the latest state of every record it hears about.
type Journal struct {
	store     Store
	sessionID string
	logger    *zap.Logger
	now       func() time.Time
}

func New(store Store, sessionID string, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{
		store:     store,
		sessionID: sessionID,
		logger:    logger.With(zap.String("session_id", sessionID)),
		now:       time.Now,
	}
}

// Attach subscribes the journal to reg.
func (j *Journal) Attach(reg *registry.Registry) (detach func()) {
	return reg.Subscribe(j.handle)
}

func (j *Journal) handle(ev registry.Event) {
	if ev.Record == nil {
		return
	}
	j.Save(ev.Record)
}

// Save writes rec immediately. Failures are logged, not returned.
func (j *Journal) Save(rec *models.TransferRecord) {
	entry := models.HistoryEntry{
		RecordSnapshot: rec.Snapshot(),
		SessionID:      j.sessionID,
		UpdatedAt:      j.now(),
	}
	if err := j.store.SaveTransfer(entry); err != nil {
		j.logger.Error("failed to save transfer",
			zap.String("filename", entry.Filename),
			zap.String("filetype", entry.Filetype),
			zap.Int64("transaction_id", entry.TransactionID),
			zap.Error(err),
		)
	}
}
