package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// FormatTable aligns rows under headers by display width. Columns listed in
// rightAlignCols are right aligned.
func FormatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = displayWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], displayWidth(cell))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	cells := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		cells[i] = padCell(cell, widths[i], rightAlignCols[i])
	}
	return strings.TrimRight(strings.Join(cells, " "), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	padding := width - displayWidth(value)
	if padding <= 0 {
		return value
	}
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

// displayWidth counts terminal cells so Hangul subject names align.
func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}

// WriteLines writes each line followed by a newline.
func WriteLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderPeriod prints a period summary and its per-day table.
func RenderPeriod(w io.Writer, title string, p PeriodSummary) error {
	lines := []string{
		fmt.Sprintf("%s (%s .. %s)", title, p.From, p.To),
		fmt.Sprintf("Completed: %.1fh of %.1fh planned", p.TotalCompletedHours, p.TotalPlannedHours),
		fmt.Sprintf("Study days: %d/%d", p.StudyDays, len(p.Days)),
		fmt.Sprintf("Efficiency: %.1f%% (daily avg %.1f%%)", p.Efficiency, p.AverageEfficiency),
	}
	if p.BestDay != "" {
		lines = append(lines, fmt.Sprintf("Best day: %s (%.1fh)", p.BestDay, p.BestDayHours))
	}
	daily := make([]float64, len(p.Days))
	for i, d := range p.Days {
		daily[i] = d.TotalCompletedHours
	}
	lines = append(lines, "Trend: ["+Sparkline(daily)+"]", "")

	headers := []string{"Date", "Planned", "Done", "Efficiency", "Intervals"}
	rows := make([][]string, 0, len(p.Days))
	for _, d := range p.Days {
		eff := "-"
		if d.TotalPlannedHours > 0 {
			eff = fmt.Sprintf("%.1f%%", d.Efficiency())
		}
		rows = append(rows, []string{
			d.Date,
			fmt.Sprintf("%.1f", d.TotalPlannedHours),
			fmt.Sprintf("%.1f", d.TotalCompletedHours),
			eff,
			fmt.Sprintf("%d/%d", d.CompletedCount, d.IntervalCount),
		})
	}
	lines = append(lines, FormatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true})...)
	lines = append(lines, "")
	return WriteLines(w, lines)
}

// RenderSubjects prints one row per subject.
func RenderSubjects(w io.Writer, subjects []SubjectProgress) error {
	if len(subjects) == 0 {
		_, err := fmt.Fprintln(w, "No subjects found.")
		return err
	}
	headers := []string{"Subject", "Done", "Planned", "Efficiency", "Progress", "Avg Score", "Trend", "Rotations"}
	rows := make([][]string, 0, len(subjects))
	for _, s := range subjects {
		score := "-"
		if s.ScoreCount > 0 {
			score = fmt.Sprintf("%.1f%%", s.AverageScore)
		}
		rotations := "-"
		if s.RotationTotal > 0 {
			rotations = fmt.Sprintf("%d/%d", s.RotationsCompleted, s.RotationTotal)
		}
		rows = append(rows, []string{
			s.Name,
			fmt.Sprintf("%.1fh", s.ActualHours),
			fmt.Sprintf("%.1fh", s.PlannedHours),
			fmt.Sprintf("%.1f%%", s.Efficiency),
			fmt.Sprintf("%.1f%%", s.ProgressPercent),
			score,
			string(s.Trend),
			rotations,
		})
	}
	lines := FormatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true})
	return WriteLines(w, append(lines, ""))
}

// RenderWeakSubjects prints weak subjects with their issues.
func RenderWeakSubjects(w io.Writer, weak []WeakSubject) error {
	if len(weak) == 0 {
		_, err := fmt.Fprintln(w, "No weak subjects.")
		return err
	}
	var lines []string
	for _, ws := range weak {
		lines = append(lines, fmt.Sprintf("%s [%s]", ws.Subject.Name, ws.Severity))
		for _, is := range ws.Issues {
			lines = append(lines, "  - "+is.Message)
		}
	}
	return WriteLines(w, append(lines, ""))
}
