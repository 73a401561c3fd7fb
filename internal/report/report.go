// Package report renders plain (non-TUI) task history and progress
// output.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/psybot/psytui/internal/model"
	"github.com/psybot/psytui/internal/textwrap"
)

const (
	defaultWidth = 80
	maxWidth     = 120
)

// DetectWidth returns the terminal width of file, or a default when the
// output is not a terminal.
func DetectWidth(file *os.File) int {
	if !term.IsTerminal(int(file.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	if width > maxWidth {
		return maxWidth
	}
	return width
}

// RenderHistory writes the task history, newest first as served.
func RenderHistory(w io.Writer, tasks []model.Task, width int) error {
	if width <= 0 {
		width = defaultWidth
	}
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks yet.")
		return err
	}
	for _, task := range tasks {
		header := fmt.Sprintf("%s  [%s]", task.SentAt.Local().Format("2006-01-02 15:04"), task.Status)
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		body := textwrap.Wrap(task.Text, width-2)
		for _, line := range strings.Split(body, "\n") {
			if _, err := fmt.Fprintf(w, "  %s\n", line); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// RenderProgress writes the aggregate progress snapshot.
func RenderProgress(w io.Writer, progress *model.Progress) error {
	if progress == nil {
		_, err := fmt.Fprintln(w, "No progress data.")
		return err
	}
	rows := []struct {
		label string
		value int
	}{
		{"Total", progress.Total},
		{"Completed", progress.Completed},
		{"Today", progress.TodayCompleted},
		{"This week", progress.WeekCompleted},
		{"This month", progress.MonthCompleted},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%-12s %d\n", row.label, row.value); err != nil {
			return err
		}
	}
	return nil
}

// FormatSentAt renders a task timestamp for list display.
func FormatSentAt(sentAt time.Time) string {
	return sentAt.Local().Format("2006-01-02 15:04")
}
