package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
)

var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	logStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(muted).PaddingLeft(1)
)

// newProgressBar creates a progress bar for rows of a run.
func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Importing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// progressReporter drives a progress bar from service callbacks. The bar is
// created once the row count is known.
type progressReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func (p *progressReporter) update(progress core.ImportProgress) {
	switch progress.Phase {
	case core.PhaseImporting:
		if p.bar == nil {
			p.bar = newProgressBar(p.w, progress.TotalRows)
		}
		_ = p.bar.Set(progress.CurrentRow)
	case core.PhaseComplete, core.PhaseFailed:
		if p.bar != nil {
			_ = p.bar.Finish()
		}
	}
}

// printReport writes the run summary followed by the error log.
func printReport(w io.Writer, report *core.Report, dryRun bool) {
	title := "Import finished"
	if dryRun {
		title = "Dry run finished"
	}
	fmt.Fprintln(w, titleStyle.Render(title))

	created := successStyle.Render(fmt.Sprintf("%d", report.Created))
	if report.Created == 0 {
		created = accentStyle.Render("0")
	}
	fmt.Fprintf(w, "  %s of %d records created from %s\n", created, report.TotalRows, report.Source)
	fmt.Fprintf(w, "  %s\n", mutedStyle.Render(fmt.Sprintf("run %s in %s", report.RunID, report.Duration().Round(time.Millisecond))))

	if len(report.Errors) == 0 {
		fmt.Fprintln(w, successStyle.Render("  No errors"))
		return
	}

	fmt.Fprintln(w, accentStyle.Render(fmt.Sprintf("  %d errors", len(report.Errors))))
	var log strings.Builder
	for i, e := range report.Errors {
		if i > 0 {
			log.WriteString("\n")
		}
		log.WriteString(e + " " + mutedStyle.Render("["+core.MapMessage(e).Code+"]"))
	}
	fmt.Fprintln(w, logStyle.Render(log.String()))
}

// printRuns writes run history as an aligned table.
func printRuns(w io.Writer, runs []core.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No runs recorded"))
		return
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%-36s  %-19s  %7s  %7s  %6s  %s",
		"RUN", "STARTED", "ROWS", "CREATED", "ERRORS", "BY")))
	for _, r := range runs {
		errs := fmt.Sprintf("%6d", r.ErrorCount)
		if r.ErrorCount > 0 {
			errs = accentStyle.Render(errs)
		}
		fmt.Fprintf(w, "%-36s  %-19s  %7d  %7d  %s  %s\n",
			r.RunID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.TotalRows,
			r.Created,
			errs,
			r.Principal,
		)
	}
}
