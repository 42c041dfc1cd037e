package main

import (
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/chmdznr/savannah/internal/export"
	"github.com/chmdznr/savannah/internal/filter"
	"github.com/chmdznr/savannah/pkg/models"
)

func historyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Only this FEI file type"},
		&cli.StringSliceFlag{Name: "pattern", Aliases: []string{"p"}, Usage: "Wildcard on the file name (repeatable)"},
		&cli.StringFlag{Name: "after", Usage: "Started after DATE (RFC3339 or YYYY-MM-DD)"},
		&cli.StringFlag{Name: "before", Usage: "Started before DATE"},
		&cli.StringFlag{Name: "from", Usage: "Started on or after DATE, use with --to"},
		&cli.StringFlag{Name: "to", Usage: "Started on or before DATE (a bare date covers the whole day), use with --from"},
		&cli.DurationFlag{Name: "within", Usage: "Started within the last DURATION (e.g. 24h)"},
		&cli.StringSliceFlag{Name: "state", Usage: "Only these states (repeatable)"},
	}
}

const dayLayout = "2006-01-02"

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04", dayLayout}

func parseDate(s string) (time.Time, error) {
	t, _, err := parseDateLayout(s)
	return t, err
}

// parseEndDate is parseDate for an inclusive upper bound: a bare day means
// the last instant of that day.
func parseEndDate(s string) (time.Time, error) {
	t, layout, err := parseDateLayout(s)
	if err != nil || layout != dayLayout {
		return t, err
	}
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

func parseDateLayout(s string) (time.Time, string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, layout, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("%w: cannot parse date %q", models.ErrInvalidArgument, s)
}

type dateOptions struct {
	after, before, from, to string
	within                  time.Duration
}

// buildDateFilter turns the date flags into a DateFilter. At most one kind of
// window may be requested.
func buildDateFilter(o dateOptions) (models.DateFilter, error) {
	set := lo.Count([]bool{o.after != "", o.before != "", o.from != "" || o.to != "", o.within != 0}, true)
	if set > 1 {
		return models.DateFilter{}, fmt.Errorf("%w: use only one of --after, --before, --from/--to, --within", models.ErrInvalidArgument)
	}

	switch {
	case o.after != "":
		t, err := parseDate(o.after)
		if err != nil {
			return models.DateFilter{}, err
		}
		return models.NewDateFilterAt(models.DateFilterAfter, t), nil
	case o.before != "":
		t, err := parseDate(o.before)
		if err != nil {
			return models.DateFilter{}, err
		}
		return models.NewDateFilterAt(models.DateFilterBefore, t), nil
	case o.from != "" || o.to != "":
		if o.from == "" || o.to == "" {
			return models.DateFilter{}, fmt.Errorf("%w: --from and --to go together", models.ErrInvalidArgument)
		}
		start, err := parseDate(o.from)
		if err != nil {
			return models.DateFilter{}, err
		}
		end, err := parseEndDate(o.to)
		if err != nil {
			return models.DateFilter{}, err
		}
		if end.Before(start) {
			return models.DateFilter{}, fmt.Errorf("%w: --to is before --from", models.ErrInvalidArgument)
		}
		return models.NewDateFilterBetween(start, end), nil
	case o.within != 0:
		f := models.NewDateFilterOffset(o.within)
		if f.IsOff() {
			return models.DateFilter{}, fmt.Errorf("%w: --within must be positive", models.ErrInvalidArgument)
		}
		return f, nil
	}
	return models.NewDateFilter(), nil
}

func buildFilter(c *cli.Context) (*filter.Filter, []models.TransferState, error) {
	f := filter.New()
	f.Filetype = c.String("type")

	if err := f.Patterns.SetPatterns(c.StringSlice("pattern")); err != nil {
		return nil, nil, err
	}

	df, err := buildDateFilter(dateOptions{
		after:  c.String("after"),
		before: c.String("before"),
		from:   c.String("from"),
		to:     c.String("to"),
		within: c.Duration("within"),
	})
	if err != nil {
		return nil, nil, err
	}
	f.Dates.SetFilter(df)

	var states []models.TransferState
	for _, name := range c.StringSlice("state") {
		st, err := models.ParseTransferState(name)
		if err != nil {
			return nil, nil, err
		}
		states = append(states, st)
	}
	return f, states, nil
}

func filterEntries(entries []models.HistoryEntry, f *filter.Filter, states []models.TransferState) []models.HistoryEntry {
	return lo.Filter(entries, func(e models.HistoryEntry, _ int) bool {
		if len(states) > 0 && !lo.Contains(states, e.State) {
			return false
		}
		return f.Accept(e.RecordSnapshot)
	})
}

func loadHistory(c *cli.Context, s *session) ([]models.HistoryEntry, error) {
	f, states, err := buildFilter(c)
	if err != nil {
		return nil, err
	}
	entries, err := s.db.ListTransfers()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return filterEntries(entries, f, states), nil
}

func showHistory(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := loadHistory(c, s)
	if err != nil {
		return err
	}
	renderHistory(os.Stdout, entries, time.Now())
	return nil
}

func exportHistory(c *cli.Context) error {
	format, err := export.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := loadHistory(c, s)
	if err != nil {
		return err
	}

	out, err := os.Create(c.String("out"))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.String("out"), err)
	}
	if err := export.Write(out, format, entries); err != nil {
		out.Close()
		return fmt.Errorf("failed to export history: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	fmt.Printf("Exported %d transfers to %s\n", len(entries), c.String("out"))
	return nil
}

func resetHistory(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.db.ClearTransfers()
	if err != nil {
		return fmt.Errorf("failed to reset history: %w", err)
	}
	fmt.Printf("Removed %d transfers from history\n", n)
	return nil
}

func showStats(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	renderStats(os.Stdout, stats)
	return nil
}
