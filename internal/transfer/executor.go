// Package transfer runs archive transfers on a worker pool and reports their
// progress through transfer records held in a registry.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/chmdznr/savannah/internal/archive"
	"github.com/chmdznr/savannah/internal/registry"
	"github.com/chmdznr/savannah/pkg/models"
)

// Job describes one requested transfer. Uploads read LocalPath; downloads
// fetch Name into DestDir.
type Job struct {
	Type      models.TransactionType
	Filetype  string
	LocalPath string
	Name      string
	DestDir   string
}

// Filename is the name the archive knows the file by.
func (j Job) Filename() string {
	if j.Type.IsUpload() {
		return filepath.Base(j.LocalPath)
	}
	return j.Name
}

// Config holds configuration for the executor
type Config struct {
	NumWorkers   int
	ShowProgress bool
	// FirstTransactionID seeds the session's transaction id counter.
	FirstTransactionID int64
}

// DefaultConfig returns default executor configuration
func DefaultConfig() Config {
	return Config{
		NumWorkers:         4,
		FirstTransactionID: 1,
	}
}

// Executor performs transfers against an archive.
type Executor struct {
	archive      archive.Archive
	registry     *registry.Registry
	logger       *zap.Logger
	numWorkers   int
	showProgress bool
	nextTxID     atomic.Int64
	now          func() time.Time
}

// NewExecutor creates a new executor instance
func NewExecutor(a archive.Archive, reg *registry.Registry, logger *zap.Logger, config *Config) *Executor {
	if config == nil {
		defaultConfig := DefaultConfig()
		config = &defaultConfig
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}

	e := &Executor{
		archive:      a,
		registry:     reg,
		logger:       logger,
		numWorkers:   numWorkers,
		showProgress: config.ShowProgress,
		now:          time.Now,
	}
	e.nextTxID.Store(config.FirstTransactionID)
	return e
}

type workItem struct {
	job    Job
	record *models.TransferRecord
}

// Prepare validates jobs and registers one INITIALIZED record per job.
func (e *Executor) Prepare(jobs []Job) ([]*models.TransferRecord, error) {
	records := make([]*models.TransferRecord, 0, len(jobs))
	for _, job := range jobs {
		size := models.UnspecifiedSize
		if job.Type.IsUpload() {
			info, err := os.Stat(job.LocalPath)
			if err != nil {
				return nil, fmt.Errorf("prepare %s: %w", job.LocalPath, err)
			}
			if info.IsDir() {
				return nil, fmt.Errorf("prepare %s: %w: is a directory", job.LocalPath, models.ErrInvalidArgument)
			}
			size = info.Size()
		}

		txID := e.nextTxID.Add(1) - 1
		rec, err := models.NewTransferRecord(job.Filename(), job.Filetype, txID, size, job.Type)
		if err != nil {
			return nil, fmt.Errorf("prepare %s: %w", job.Filename(), err)
		}
		records = append(records, rec)
	}

	for _, rec := range records {
		e.registry.AddRecord(rec)
	}
	return records, nil
}

// Run transfers every job and returns the records describing the outcome.
// Cancelling ctx marks unfinished transfers ABORTED; individual failures are
// recorded as ERROR and reported through the returned stats, not as an error.
func (e *Executor) Run(ctx context.Context, jobs []Job) ([]*models.TransferRecord, models.Stats, error) {
	records, err := e.Prepare(jobs)
	if err != nil {
		return nil, models.Stats{}, err
	}
	if len(records) == 0 {
		return records, models.Stats{}, nil
	}

	work := make(chan workItem, e.numWorkers)
	progress := newSessionProgress(records, e.now)

	var wg sync.WaitGroup
	for i := 0; i < e.numWorkers; i++ {
		wp := newWorkerProgress(i, e.showProgress)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer wp.finish()
			for item := range work {
				e.execute(ctx, item)
				progress.done(item.record)
				wp.update(item.record.FileSize())
			}
		}()
	}

	for i, rec := range records {
		work <- workItem{job: jobs[i], record: rec}
	}
	close(work)
	wg.Wait()

	var stats models.Stats
	for _, rec := range records {
		snap := rec.Snapshot()
		stats.Add(snap.State, snap.FileSize)
	}

	e.logger.Info("transfer session finished",
		zap.Int64("total", stats.TotalFiles),
		zap.Int64("completed", stats.CompletedFiles),
		zap.Int64("failed", stats.FailedFiles),
		zap.Int64("aborted", stats.AbortedFiles),
		zap.String("summary", progress.String()),
	)
	return records, stats, nil
}

func (e *Executor) execute(ctx context.Context, item workItem) {
	rec := item.record
	log := e.logger.With(
		zap.String("type", rec.TransactionType().String()),
		zap.String("filetype", rec.Filetype()),
		zap.String("filename", rec.Filename()),
		zap.Int64("transaction_id", rec.TransactionID()),
	)

	if ctx.Err() != nil {
		_ = rec.SetState(models.StateAborted)
		log.Debug("transfer aborted before start")
		return
	}

	rec.SetStartTime(e.now())
	_ = rec.SetState(models.StateTransferring)

	var (
		size int64
		err  error
	)
	switch item.job.Type {
	case models.TransactionAdd:
		size, err = e.archive.Add(ctx, item.job.Filetype, item.job.LocalPath)
	case models.TransactionReplace:
		size, err = e.archive.Replace(ctx, item.job.Filetype, item.job.LocalPath)
	case models.TransactionGet:
		size, err = e.archive.Get(ctx, item.job.Filetype, item.job.Name, item.job.DestDir)
	}

	if err == nil || size > 0 {
		rec.SetFileSize(size)
	}
	rec.SetEndTime(e.now())

	switch {
	case err == nil:
		_ = rec.SetState(models.StateComplete)
		log.Info("transfer complete", zap.Int64("bytes", size))
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		_ = rec.SetState(models.StateAborted)
		log.Warn("transfer aborted", zap.Error(err))
	default:
		_ = rec.SetState(models.StateError)
		log.Error("transfer failed", zap.Error(err))
	}
}
