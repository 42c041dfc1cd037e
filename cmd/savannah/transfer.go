package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/chmdznr/savannah/internal/archive"
	"github.com/chmdznr/savannah/internal/journal"
	"github.com/chmdznr/savannah/internal/registry"
	"github.com/chmdznr/savannah/internal/transfer"
	"github.com/chmdznr/savannah/pkg/models"
)

func transferFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "profile",
			Usage: "Archive profile (defaults to SAVANNAH_PROFILE)",
		},
		&cli.StringFlag{
			Name:     "type",
			Aliases:  []string{"t"},
			Usage:    "FEI file type",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Number of parallel transfers (defaults to SAVANNAH_WORKERS)",
		},
		&cli.BoolFlag{
			Name:  "interactive",
			Usage: "Press q or Esc to abort the remaining transfers",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Do not draw progress bars",
		},
	}
}

func buildJobs(txType models.TransactionType, filetype, destDir string, args []string) []transfer.Job {
	jobs := make([]transfer.Job, 0, len(args))
	for _, arg := range args {
		job := transfer.Job{Type: txType, Filetype: filetype}
		if txType.IsUpload() {
			job.LocalPath = arg
		} else {
			job.Name = arg
			job.DestDir = destDir
		}
		jobs = append(jobs, job)
	}
	return jobs
}

type watchFunc func(ctx context.Context, cancel context.CancelFunc, logger *zap.Logger) error

// startWatcher runs watch in the background until ctx ends. The returned stop
// func cancels ctx and blocks until watch has returned; the keyboard watcher
// restores the terminal on its way out. A nil watch is a no-op.
func startWatcher(ctx context.Context, cancel context.CancelFunc, watch watchFunc, log *zap.Logger) (stop func()) {
	done := make(chan struct{})
	if watch == nil {
		close(done)
	} else {
		go func() {
			defer close(done)
			if err := watch(ctx, cancel, log); err != nil {
				log.Warn("keyboard abort unavailable", zap.Error(err))
			}
		}()
	}
	return func() {
		cancel()
		<-done
	}
}

// runTransfer returns the action shared by add, replace and get. Every
// transfer is tracked in a registry that the journal mirrors into the history
// database as it changes.
func runTransfer(txType models.TransactionType) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() == 0 {
			return fmt.Errorf("no files given")
		}

		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()

		profileName := c.String("profile")
		if profileName == "" {
			profileName = s.cfg.DefaultProfile
		}
		if profileName == "" {
			return fmt.Errorf("profile name is required")
		}
		profile, err := s.db.GetProfile(profileName)
		if err != nil {
			return err
		}

		client, err := archive.NewClient(profile)
		if err != nil {
			return err
		}

		sessionID := uuid.NewString()
		log := s.log.With(zap.String("profile", profile.Name), zap.String("session_id", sessionID))

		reg := registry.New()
		detach := journal.New(s.db, sessionID, s.log).Attach(reg)
		defer detach()

		ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
		defer cancel()

		var watch watchFunc
		if c.Bool("interactive") {
			watch = transfer.WatchAbortKeys
		}
		stopWatcher := startWatcher(ctx, cancel, watch, log)
		defer stopWatcher()

		workers := c.Int("workers")
		if workers <= 0 {
			workers = s.cfg.Workers
		}
		executor := transfer.NewExecutor(client, reg, log, &transfer.Config{
			NumWorkers:         workers,
			ShowProgress:       s.cfg.ShowProgress && !c.Bool("quiet"),
			FirstTransactionID: 1,
		})

		jobs := buildJobs(txType, c.String("type"), c.String("dir"), c.Args().Slice())
		records, stats, err := executor.Run(ctx, jobs)
		aborted := ctx.Err() != nil
		stopWatcher()
		if err != nil {
			return fmt.Errorf("failed to %s files: %w", txType, err)
		}

		snapshots := make([]models.RecordSnapshot, 0, len(records))
		for _, rec := range records {
			snapshots = append(snapshots, rec.Snapshot())
		}
		renderRecords(os.Stdout, snapshots)
		renderStats(os.Stdout, &stats)

		if aborted && stats.AbortedFiles > 0 {
			return fmt.Errorf("%d of %d transfers aborted", stats.AbortedFiles, stats.TotalFiles)
		}
		if stats.FailedFiles > 0 {
			return fmt.Errorf("%d of %d transfers failed", stats.FailedFiles, stats.TotalFiles)
		}
		return nil
	}
}
