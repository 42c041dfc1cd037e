// Package export writes the transfer history to CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/chmdznr/savannah/pkg/models"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", models.ErrInvalidArgument, s)
}

const sheetName = "History"

var header = []string{
	"session_id", "transaction_id", "type", "filetype", "filename",
	"state", "size", "start_time", "end_time", "transfer_time",
}

func row(e models.HistoryEntry) []string {
	return []string{
		e.SessionID,
		strconv.FormatInt(e.TransactionID, 10),
		e.TransactionType.String(),
		e.Filetype,
		e.Filename,
		e.State.String(),
		models.FileSizeString(e.FileSize),
		formatTime(e.StartTime),
		formatTime(e.EndTime),
		e.TransferTimeString(),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// Write encodes entries in the given format.
func Write(w io.Writer, format Format, entries []models.HistoryEntry) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, entries)
	case FormatXLSX:
		return WriteXLSX(w, entries)
	}
	return fmt.Errorf("%w: unknown export format %q", models.ErrInvalidArgument, format)
}

// WriteCSV writes a header row followed by one row per entry.
func WriteCSV(w io.Writer, entries []models.HistoryEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write(row(e)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single "History" sheet.
func WriteXLSX(w io.Writer, entries []models.HistoryEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	writeRow := func(n int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		return f.SetSheetRow(sheetName, cell, &cells)
	}

	if err := writeRow(1, header); err != nil {
		return err
	}
	for i, e := range entries {
		if err := writeRow(i+2, row(e)); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_, err := f.WriteTo(w)
	return err
}
