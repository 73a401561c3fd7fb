package homeui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/psybot/psytui/internal/api"
	"github.com/psybot/psytui/internal/lifecycle"
	"github.com/psybot/psytui/internal/model"
	"github.com/psybot/psytui/internal/session"
	"github.com/psybot/psytui/internal/store"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "psytui.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	sess := session.New(st)
	client, err := api.New("http://localhost:8000", sess, 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewModel(client, sess, "a@b.com")
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func pendingTask() *model.Task {
	return &model.Task{
		ID:     7,
		Text:   "Breathe 5 min",
		Status: model.TaskStatusPending,
		SentAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestUnauthenticatedSessionShowsForm(t *testing.T) {
	m := newTestModel(t)
	updated, cmd := m.Update(sessionLoadedMsg{authenticated: false})
	m = updated.(*Model)
	if cmd != nil {
		t.Fatalf("expected no gated loads without a token")
	}
	if m.gate.State() != lifecycle.StateUnauthenticated {
		t.Fatalf("expected unauthenticated state, got %d", m.gate.State())
	}
	view := m.View()
	if !strings.Contains(view, "Email:") {
		t.Fatalf("expected login form, got %q", view)
	}
	if !strings.Contains(view, "a@b.com") {
		t.Fatalf("expected prefilled email, got %q", view)
	}
}

func TestAuthenticatedSessionFiresGatedLoads(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(sessionLoadedMsg{authenticated: true})
	if cmd == nil {
		t.Fatalf("expected gated loader commands once token is present")
	}
	if m.gate.State() != lifecycle.StateLoading {
		t.Fatalf("expected loading state, got %d", m.gate.State())
	}
}

func TestTokenChangeRetriggersLoads(t *testing.T) {
	m := newTestModel(t)
	m.Update(sessionLoadedMsg{authenticated: false})
	_, cmd := m.Update(tokenChangedMsg{token: "tok1"})
	if cmd == nil {
		t.Fatalf("expected gated loads on token arrival after mount")
	}
	if m.gate.State() != lifecycle.StateLoading {
		t.Fatalf("expected loading state, got %d", m.gate.State())
	}
}

func TestTodayTaskRendersCompleteControl(t *testing.T) {
	m := newTestModel(t)
	m.Update(sessionLoadedMsg{authenticated: true})
	m.Update(todayLoadedMsg{task: pendingTask()})
	m.Update(progressLoadedMsg{progress: &model.Progress{Total: 3}})
	if m.gate.State() != lifecycle.StateReady {
		t.Fatalf("expected ready state, got %d", m.gate.State())
	}
	view := m.View()
	if !strings.Contains(view, "Breathe 5 min") {
		t.Fatalf("expected task text, got %q", view)
	}
	if !strings.Contains(view, "Press c to complete") {
		t.Fatalf("expected complete control, got %q", view)
	}
}

func TestTodayFailureResetsToNoTask(t *testing.T) {
	m := newTestModel(t)
	m.Update(sessionLoadedMsg{authenticated: true})
	m.Update(todayLoadedMsg{task: pendingTask()})
	m.Update(progressLoadedMsg{progress: &model.Progress{}})

	m.Update(tokenChangedMsg{token: "tok2"})
	m.Update(todayLoadedMsg{err: errors.New("boom")})
	m.Update(progressLoadedMsg{progress: &model.Progress{}})
	if m.task != nil {
		t.Fatalf("expected task reset on failed fetch, got %+v", m.task)
	}
	view := m.View()
	if !strings.Contains(view, "No task for today.") {
		t.Fatalf("expected no-task state, got %q", view)
	}
	if !strings.Contains(view, "Press r to reload") {
		t.Fatalf("expected manual reload hint, got %q", view)
	}
}

func TestProgressFailureResetsSnapshot(t *testing.T) {
	m := newTestModel(t)
	m.Update(sessionLoadedMsg{authenticated: true})
	m.Update(progressLoadedMsg{progress: &model.Progress{Total: 5}})
	m.Update(progressLoadedMsg{err: errors.New("boom")})
	if m.progress != nil {
		t.Fatalf("expected progress reset on failure")
	}
	if !m.status.Failed() {
		t.Fatalf("expected failure message in status slot")
	}
}

func TestCompleteFailureLeavesStateUntouched(t *testing.T) {
	m := newTestModel(t)
	m.Update(sessionLoadedMsg{authenticated: true})
	task := pendingTask()
	m.Update(todayLoadedMsg{task: task})
	m.Update(progressLoadedMsg{progress: &model.Progress{Total: 3}})

	m.Update(completeResultMsg{err: errors.New("boom")})
	if m.task == nil || m.task.Status != model.TaskStatusPending {
		t.Fatalf("expected task status untouched after failed complete")
	}
	if m.progress == nil || m.progress.Total != 3 {
		t.Fatalf("expected progress untouched after failed complete")
	}
	if !m.status.Failed() {
		t.Fatalf("expected failure message")
	}
}

func TestCompleteSuccessAppliesRefreshedState(t *testing.T) {
	m := newTestModel(t)
	m.Update(sessionLoadedMsg{authenticated: true})
	m.Update(todayLoadedMsg{task: pendingTask()})
	m.Update(progressLoadedMsg{progress: &model.Progress{Total: 3, Completed: 0}})

	refreshed := pendingTask()
	refreshed.Status = model.TaskStatusCompleted
	m.Update(completeResultMsg{task: refreshed, progress: &model.Progress{Total: 3, Completed: 1}})
	if m.task == nil || !m.task.Completed() {
		t.Fatalf("expected refreshed completed task")
	}
	if m.progress == nil || m.progress.Completed != 1 {
		t.Fatalf("expected refreshed progress")
	}
	if m.status.Text() != "Task completed" {
		t.Fatalf("expected success message, got %q", m.status.Text())
	}
}

func TestBusyGuardIgnoresRepeatedComplete(t *testing.T) {
	m := newTestModel(t)
	m.Update(sessionLoadedMsg{authenticated: true})
	m.Update(todayLoadedMsg{task: pendingTask()})
	m.Update(progressLoadedMsg{progress: &model.Progress{}})

	m.busy = true
	_, cmd := m.Update(keyMsg("c"))
	if cmd != nil {
		t.Fatalf("expected repeated complete to be ignored while busy")
	}
}

func TestStatusSlotOverwrites(t *testing.T) {
	m := newTestModel(t)
	m.Update(sessionLoadedMsg{authenticated: true})
	m.Update(progressLoadedMsg{err: errors.New("first")})
	m.Update(completeResultMsg{task: pendingTask(), progress: &model.Progress{}})
	if m.status.Text() != "Task completed" {
		t.Fatalf("expected last message to win, got %q", m.status.Text())
	}
}
