package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/chmdznr/savannah/internal/config"
	"github.com/chmdznr/savannah/internal/db"
	"github.com/chmdznr/savannah/pkg/logger"
	"github.com/chmdznr/savannah/pkg/models"
	"github.com/chmdznr/savannah/pkg/version"
)

func main() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "print the version",
	}

	app := &cli.App{
		Name:                 "savannah",
		Usage:                "Transfer files to and from the FEI archive and browse the transfer history",
		Version:              version.Version,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file with SAVANNAH_* settings",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Printf("Version:    %s\n", version.Version)
					fmt.Printf("Git commit: %s\n", version.GitCommit)
					fmt.Printf("Built:      %s\n", version.BuildTime)
					return nil
				},
			},
			{
				Name:  "profile",
				Usage: "Manage FEI archive connection profiles",
				Subcommands: []*cli.Command{
					{
						Name:  "create",
						Usage: "Create a new profile",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Usage: "Profile name", Required: true},
							&cli.StringFlag{Name: "endpoint", Usage: "Archive endpoint (host:port)", Required: true},
							&cli.StringFlag{Name: "bucket", Usage: "Archive bucket", Required: true},
							&cli.StringFlag{Name: "folder", Usage: "Folder inside the bucket"},
							&cli.StringFlag{Name: "access-key", Usage: "Access key", Required: true},
							&cli.StringFlag{Name: "secret-key", Usage: "Secret key", Required: true},
							&cli.BoolFlag{Name: "secure", Usage: "Use TLS", Value: true},
						},
						Action: createProfile,
					},
					{
						Name:   "list",
						Usage:  "List profiles",
						Action: listProfiles,
					},
				},
			},
			{
				Name:      "add",
				Usage:     "Add new files to the archive",
				ArgsUsage: "FILE...",
				Flags:     transferFlags(),
				Action:    runTransfer(models.TransactionAdd),
			},
			{
				Name:      "replace",
				Usage:     "Upload files, replacing existing copies",
				ArgsUsage: "FILE...",
				Flags:     transferFlags(),
				Action:    runTransfer(models.TransactionReplace),
			},
			{
				Name:      "get",
				Usage:     "Download files from the archive",
				ArgsUsage: "NAME...",
				Flags: append(transferFlags(),
					&cli.StringFlag{Name: "dir", Usage: "Destination directory", Value: "."},
				),
				Action: runTransfer(models.TransactionGet),
			},
			{
				Name:   "history",
				Usage:  "Show the transfer history",
				Flags:  historyFlags(),
				Action: showHistory,
				Subcommands: []*cli.Command{
					{
						Name:  "export",
						Usage: "Export the history to CSV or XLSX",
						Flags: append(historyFlags(),
							&cli.StringFlag{Name: "format", Usage: "csv or xlsx", Value: "csv"},
							&cli.StringFlag{Name: "out", Usage: "Output file", Required: true},
						),
						Action: exportHistory,
					},
					{
						Name:   "reset",
						Usage:  "Delete the transfer history",
						Action: resetHistory,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show transfer statistics",
				Action: showStats,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "savannah: %v\n", err)
		os.Exit(1)
	}
}

// session bundles what every command needs: configuration, logger and the
// history database.
type session struct {
	cfg *config.Config
	log *zap.Logger
	db  *db.DB
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	log.Debug("session opened", zap.String("db", cfg.DatabasePath))
	return &session{cfg: cfg, log: log, db: store}, nil
}

func (s *session) Close() {
	if err := s.db.Close(); err != nil {
		s.log.Warn("failed to close database", zap.Error(err))
	}
	_ = s.log.Sync()
}

// createProfile stores a new archive profile.
//
// The folder is normalised to have no leading slash and a single trailing one.
func createProfile(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	folder := strings.Trim(c.String("folder"), "/")
	if folder != "" {
		folder = folder + "/"
	}

	profile := &models.Profile{Name: c.String("name")}
	profile.Destination.Endpoint = c.String("endpoint")
	profile.Destination.Bucket = c.String("bucket")
	profile.Destination.Folder = folder
	profile.Destination.AccessKey = c.String("access-key")
	profile.Destination.SecretKey = c.String("secret-key")
	profile.Destination.Secure = c.Bool("secure")

	if err := s.db.CreateProfile(profile); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	fmt.Printf("Profile '%s' created successfully\n", profile.Name)
	return nil
}

func listProfiles(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	profiles, err := s.db.ListProfiles()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	renderProfiles(os.Stdout, profiles)
	return nil
}
