package commands

import (
	"fmt"
	"io"

	"lyricsync/internal/discover"
	"lyricsync/internal/harvest"
	"lyricsync/internal/notionsync"

	"github.com/jedib0t/go-pretty/v6/table"
)

func renderTable(out io.Writer, title string, rows []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"", "Count"})
	t.AppendRows(rows)
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderDiscover(out io.Writer, path string, res discover.Result) {
	renderTable(out, fmt.Sprintf("discover → %s", path), []table.Row{
		{"pages", res.Pages},
		{"found", res.Found},
		{"new", res.New},
		{"total", len(res.IDs)},
	})
}

func renderHarvest(out io.Writer, path string, res harvest.Result) {
	renderTable(out, fmt.Sprintf("harvest → %s", path), []table.Row{
		{"to harvest", res.Total},
		{"harvested", res.Harvested},
		{"failed", res.Failed},
		{"already harvested", res.Skipped},
	})
}

func renderSync(out io.Writer, path string, summary notionsync.Summary) {
	rows := []table.Row{
		{"to upload", summary.Total},
		{"uploaded", summary.Success},
		{"failed", summary.Failed},
		{"already remote", summary.AlreadyRemote},
		{"truncated lyrics", summary.Truncated},
	}
	if summary.RemoteListingFailed {
		rows = append(rows, table.Row{"remote listing failed, duplicates possible", "yes"})
	}
	renderTable(out, fmt.Sprintf("sync ← %s", path), rows)
}
