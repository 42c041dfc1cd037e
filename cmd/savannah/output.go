package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/chmdznr/savannah/pkg/models"
	"github.com/chmdznr/savannah/pkg/utils"
)

var stateColors = map[models.TransferState]*color.Color{
	models.StateInitialized:  color.New(color.FgHiBlack),
	models.StateTransferring: color.New(color.FgCyan),
	models.StateComplete:     color.New(color.FgGreen),
	models.StateAborted:      color.New(color.FgYellow),
	models.StateError:        color.New(color.FgRed, color.Bold),
}

func colorState(s models.TransferState) string {
	if c, ok := stateColors[s]; ok {
		return c.Sprint(s.String())
	}
	return s.String()
}

func recordRow(s models.RecordSnapshot) []string {
	return []string{
		strconv.FormatInt(s.TransactionID, 10),
		s.TransactionType.String(),
		s.Filetype,
		s.Filename,
		colorState(s.State),
		models.FileSizeString(s.FileSize),
		s.TransferTimeString(),
	}
}

func renderRecords(w io.Writer, records []models.RecordSnapshot) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Tx", "Type", "Filetype", "Filename", "State", "Size", "Time"})
	for _, r := range records {
		table.Append(recordRow(r))
	}
	table.Render()
}

func renderHistory(w io.Writer, entries []models.HistoryEntry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No transfers in history")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Tx", "Type", "Filetype", "Filename", "State", "Size", "Time", "Updated"})
	for _, e := range entries {
		table.Append(append(recordRow(e.RecordSnapshot), humanize.RelTime(e.UpdatedAt, now, "ago", "from now")))
	}
	table.Render()
}

func renderProfiles(w io.Writer, profiles []models.Profile) {
	if len(profiles) == 0 {
		fmt.Fprintln(w, "No profiles")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Endpoint", "Bucket", "Folder", "TLS"})
	for _, p := range profiles {
		table.Append([]string{
			p.Name,
			p.Destination.Endpoint,
			p.Destination.Bucket,
			p.Destination.Folder,
			strconv.FormatBool(p.Destination.Secure),
		})
	}
	table.Render()
}

func renderStats(w io.Writer, stats *models.Stats) {
	fmt.Fprintf(w, "Total Transfers: %d (Size: %s)\n", stats.TotalFiles, utils.FormatSize(stats.TotalSize))
	fmt.Fprintf(w, "Completed: %d (Size: %s)\n", stats.CompletedFiles, utils.FormatSize(stats.CompletedSize))
	fmt.Fprintf(w, "Pending: %d, In Progress: %d\n", stats.PendingFiles, stats.InProgressFiles)
	fmt.Fprintf(w, "Aborted: %d, Failed: %d\n", stats.AbortedFiles, stats.FailedFiles)
	if stats.TotalFiles > 0 {
		fmt.Fprintf(w, "Progress: %.2f%% (Files)\n", float64(stats.CompletedFiles)/float64(stats.TotalFiles)*100)
	}
}
