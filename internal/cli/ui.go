package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/pricemove/internal/models"
	"github.com/dyike/pricemove/internal/workflow"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1F2937")).
			Padding(0, 1).
			MarginBottom(1)

	reportStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(1, 2).
			Width(80)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	inProgressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))
)

func statusStyle(status models.JobStatus) lipgloss.Style {
	switch status {
	case models.JobCompleted:
		return completedStyle
	case models.JobFailed, models.JobCancelled:
		return errorStyle
	default:
		return inProgressStyle
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderProgress(jobID, step, message string) string {
	style := inProgressStyle
	switch step {
	case models.StepCompleted:
		style = completedStyle
	case models.StepError:
		style = errorStyle
	}
	return fmt.Sprintf("%s %s %s",
		labelStyle.Render("["+shortID(jobID)+"]"),
		style.Render(fmt.Sprintf("%-22s", step)),
		message)
}

func renderJob(job *models.WorkflowJob) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Workflow:"), job.ID)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Ticker:  "), job.Ticker)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Status:  "), statusStyle(job.Status).Render(string(job.Status)))
	fmt.Fprintf(&b, "%s %s (%s)\n", labelStyle.Render("Step:    "), job.CurrentStep, job.ProgressMessage)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Started: "), job.StartedAt.Local().Format(time.DateTime))
	if job.CompletedAt != nil {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Finished:"), job.CompletedAt.Local().Format(time.DateTime))
	}
	if job.Error != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Error:   "), errorStyle.Render(job.Error))
	}
	return b.String()
}

func renderRecord(rec *models.AnalysisRecord, cached bool) string {
	var b strings.Builder
	title := fmt.Sprintf("Why did %s move?", rec.Ticker)
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	age := time.Since(rec.UpdatedAt).Round(time.Second)
	source := "fresh"
	if cached {
		source = "cached"
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf("Updated %s (%s ago, %s)",
		rec.UpdatedAt.Local().Format(time.DateTime), age, source)))
	b.WriteString("\n")
	b.WriteString(reportStyle.Render(strings.TrimSpace(rec.AnalysisText)))
	b.WriteString("\n")

	entries, err := workflow.ParseDigest(rec.NewsSummary)
	if err != nil || len(entries) == 0 {
		return b.String()
	}
	b.WriteString(infoStyle.Render("Sources by significance"))
	b.WriteString("\n")
	for _, e := range entries {
		line := fmt.Sprintf("  %-8s %-8s %.2f  %d articles", e.Source, e.Kind, e.Significance, len(e.Articles))
		if e.Error != "" {
			line += "  " + errorStyle.Render(e.Error)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func displayError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+err.Error()))
}

func displayInfo(w io.Writer, message string) {
	fmt.Fprintln(w, infoStyle.Render(message))
}

func displaySuccess(w io.Writer, message string) {
	fmt.Fprintln(w, completedStyle.Render(message))
}
