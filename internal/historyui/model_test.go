package historyui

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
	m := NewModel(client, sess)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

func testTasks() []model.Task {
	return []model.Task{
		{ID: 2, Text: "Journal", Status: model.TaskStatusPending, SentAt: time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)},
		{ID: 1, Text: "Breathe 5 min", Status: model.TaskStatusCompleted, SentAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
	}
}

func TestUnauthenticatedShowsNotice(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(sessionLoadedMsg{authenticated: false})
	if cmd != nil {
		t.Fatalf("expected no gated load without a token")
	}
	if !strings.Contains(m.View(), "Not logged in") {
		t.Fatalf("expected not-logged-in notice, got %q", m.View())
	}
}

func TestAuthenticatedLoadsHistory(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(sessionLoadedMsg{authenticated: true})
	if cmd == nil {
		t.Fatalf("expected history load once token is present")
	}
	m.Update(tasksLoadedMsg{tasks: testTasks()})
	if m.gate.State() != lifecycle.StateReady {
		t.Fatalf("expected ready state, got %d", m.gate.State())
	}
	view := m.View()
	if !strings.Contains(view, "Journal") || !strings.Contains(view, "Breathe 5 min") {
		t.Fatalf("expected task history, got %q", view)
	}
}

func TestFailedReloadKeepsPreviousList(t *testing.T) {
	m := newTestModel(t)
	m.Update(sessionLoadedMsg{authenticated: true})
	m.Update(tasksLoadedMsg{tasks: testTasks()})

	m.Update(tasksLoadedMsg{err: errors.New("boom")})
	if len(m.tasks) != 2 {
		t.Fatalf("expected previous list preserved, got %d tasks", len(m.tasks))
	}
	if !m.status.Failed() {
		t.Fatalf("expected failure message in status slot")
	}
	if !strings.Contains(m.View(), "Journal") {
		t.Fatalf("expected stale-but-valid list still rendered")
	}
}

func TestTokenArrivalAfterMountTriggersLoad(t *testing.T) {
	m := newTestModel(t)
	m.Update(sessionLoadedMsg{authenticated: false})
	_, cmd := m.Update(tokenChangedMsg{token: "tok1"})
	if cmd == nil {
		t.Fatalf("expected gated load on token arrival")
	}
	if m.gate.State() != lifecycle.StateLoading {
		t.Fatalf("expected loading state, got %d", m.gate.State())
	}
}
