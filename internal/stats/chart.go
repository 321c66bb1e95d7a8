package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	barFull             = "█"
	barPlanned          = "░"
	colorDone           = "\x1b[32m"
	colorPlanned        = "\x1b[90m"
	colorReset          = "\x1b[0m"
	minBarWidth         = 10
	terminalWidthBackup = 80
)

// BarWidthFor returns the bar area left after the label and value columns.
func BarWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		totalWidth = terminalWidth()
	}
	// "2025-01-01 " + " 12.5/12.5h"
	w := totalWidth - 11 - 12
	return max(w, minBarWidth)
}

// RenderDailyBars draws one horizontal bar per day: completed hours solid,
// the remaining planned hours shaded.
func RenderDailyBars(w io.Writer, title string, days []DayHours, width int, forceColor bool) error {
	if len(days) == 0 {
		return nil
	}
	useColor := shouldUseColor(w, forceColor)
	barWidth := BarWidthFor(width)
	scale := 0.0
	for _, d := range days {
		scale = math.Max(scale, math.Max(d.Planned, d.Done))
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	for _, d := range days {
		done, planned := 0, 0
		if scale > 0 {
			done = int(math.Round(d.Done / scale * float64(barWidth)))
			planned = int(math.Round(d.Planned / scale * float64(barWidth)))
		}
		rest := max(0, planned-done)
		bar := colorize(strings.Repeat(barFull, done), colorDone, useColor) +
			colorize(strings.Repeat(barPlanned, rest), colorPlanned, useColor) +
			strings.Repeat(" ", max(0, barWidth-done-rest))
		if _, err := fmt.Fprintf(w, "%s %s %4.1f/%4.1fh\n", d.Date, bar, d.Done, d.Planned); err != nil {
			return err
		}
	}
	return nil
}

func colorize(s, code string, useColor bool) string {
	if !useColor || s == "" {
		return s
	}
	return code + s + colorReset
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
