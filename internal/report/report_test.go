package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/psybot/psytui/internal/model"
)

func TestRenderHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHistory(&buf, nil, 80); err != nil {
		t.Fatalf("render history: %v", err)
	}
	if !strings.Contains(buf.String(), "No tasks yet.") {
		t.Fatalf("expected empty notice, got %q", buf.String())
	}
}

func TestRenderHistoryWrapsAndLabels(t *testing.T) {
	tasks := []model.Task{
		{
			ID:     7,
			Text:   "Breathe 5 min",
			Status: model.TaskStatusPending,
			SentAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	var buf bytes.Buffer
	if err := RenderHistory(&buf, tasks, 80); err != nil {
		t.Fatalf("render history: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Breathe 5 min") {
		t.Fatalf("expected task text, got %q", out)
	}
	if !strings.Contains(out, "[pending]") {
		t.Fatalf("expected status label, got %q", out)
	}
}

func TestRenderProgress(t *testing.T) {
	progress := &model.Progress{Total: 10, Completed: 4, TodayCompleted: 1, WeekCompleted: 3, MonthCompleted: 4}
	var buf bytes.Buffer
	if err := RenderProgress(&buf, progress); err != nil {
		t.Fatalf("render progress: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Total", "Completed", "Today", "This week", "This month"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output: %q", want, out)
		}
	}
}

func TestRenderProgressNil(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderProgress(&buf, nil); err != nil {
		t.Fatalf("render progress: %v", err)
	}
	if !strings.Contains(buf.String(), "No progress data.") {
		t.Fatalf("expected absence notice, got %q", buf.String())
	}
}
