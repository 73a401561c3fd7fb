package adminui

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
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func authedModel(t *testing.T) *Model {
	t.Helper()
	m := newTestModel(t)
	m.Update(sessionLoadedMsg{authenticated: true})
	m.Update(usersLoadedMsg{users: []model.User{
		{ID: 1, Name: "Alice", Email: "alice@example.com", Role: "admin"},
		{ID: 2, Name: "Bob", Email: "bob@example.com", Role: "user"},
	}})
	m.Update(exercisesLoadedMsg{exercises: []string{"Breathe", "Journal", "Walk"}})
	return m
}

func TestGatedLoadsRequireToken(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(sessionLoadedMsg{authenticated: false})
	if cmd != nil {
		t.Fatalf("expected no gated loads without a token")
	}
	if m.gate.State() != lifecycle.StateUnauthenticated {
		t.Fatalf("expected unauthenticated state, got %d", m.gate.State())
	}
}

func TestLoadsSettleIntoReady(t *testing.T) {
	m := authedModel(t)
	if m.gate.State() != lifecycle.StateReady {
		t.Fatalf("expected ready state, got %d", m.gate.State())
	}
	view := m.View()
	if !strings.Contains(view, "Alice") {
		t.Fatalf("expected users table, got %q", view)
	}
}

func TestExercisesListMatchesMutationResponse(t *testing.T) {
	m := authedModel(t)
	m.Update(exercisesMutatedMsg{exercises: []string{"Breathe", "Journal", "Walk", "Stretch"}, added: true})
	if len(m.exercises) != 4 || m.exercises[3] != "Stretch" {
		t.Fatalf("expected server list applied verbatim, got %v", m.exercises)
	}
	if m.exInput.Value() != "" {
		t.Fatalf("expected input cleared after add")
	}
	if m.status.Text() != "Exercise added" {
		t.Fatalf("expected success message, got %q", m.status.Text())
	}
}

func TestRemoveMiddleIndexUsesServerList(t *testing.T) {
	m := authedModel(t)
	m.exIndex = 1
	// The server removed index 1 from [Breathe, Journal, Walk].
	m.Update(exercisesMutatedMsg{exercises: []string{"Breathe", "Walk"}})
	if len(m.exercises) != 2 || m.exercises[0] != "Breathe" || m.exercises[1] != "Walk" {
		t.Fatalf("expected [Breathe Walk], got %v", m.exercises)
	}
	if m.exIndex != 1 {
		t.Fatalf("expected selection clamped to list, got %d", m.exIndex)
	}
}

func TestFailedMutationLeavesListUntouched(t *testing.T) {
	m := authedModel(t)
	m.Update(exercisesMutatedMsg{err: errors.New("boom")})
	if len(m.exercises) != 3 {
		t.Fatalf("expected previous list preserved, got %v", m.exercises)
	}
	if !m.status.Failed() {
		t.Fatalf("expected failure message")
	}
}

func TestFailedGenerateKeepsUserTasks(t *testing.T) {
	m := authedModel(t)
	tasks := []model.Task{{ID: 1, Text: "Breathe", Status: model.TaskStatusPending, SentAt: time.Now()}}
	m.Update(userTasksLoadedMsg{userID: 2, tasks: tasks})

	m.Update(generateResultMsg{userID: 2, err: errors.New("boom")})
	if len(m.userTasks) != 1 {
		t.Fatalf("expected task list untouched after failed generate, got %v", m.userTasks)
	}
	if !m.status.Failed() {
		t.Fatalf("expected failure message")
	}
}

func TestGenerateRefreshesSelectedUserTasks(t *testing.T) {
	m := authedModel(t)
	refreshed := []model.Task{
		{ID: 9, Text: "New task", Status: model.TaskStatusPending, SentAt: time.Now()},
	}
	m.Update(generateResultMsg{userID: 2, tasks: refreshed})
	if m.selectedUserID != 2 || len(m.userTasks) != 1 || m.userTasks[0].ID != 9 {
		t.Fatalf("expected refreshed tasks for user 2, got %+v", m.userTasks)
	}
	if m.status.Text() != "Task generated" {
		t.Fatalf("expected success message, got %q", m.status.Text())
	}
}

func TestFailedUsersLoadKeepsPreviousList(t *testing.T) {
	m := authedModel(t)
	m.Update(usersLoadedMsg{err: errors.New("boom")})
	if len(m.users) != 2 {
		t.Fatalf("expected previous users preserved, got %v", m.users)
	}
	if !m.status.Failed() {
		t.Fatalf("expected failure message")
	}
}

func TestBusyGuardIgnoresRepeatedGenerate(t *testing.T) {
	m := authedModel(t)
	m.busy = true
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	if cmd != nil {
		t.Fatalf("expected repeated generate to be ignored while busy")
	}
}

func TestAddInputModalFlow(t *testing.T) {
	m := authedModel(t)
	m.moveTab(1)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	if !m.inputMode {
		t.Fatalf("expected input mode after a")
	}
	if !strings.Contains(m.View(), "Add exercise") {
		t.Fatalf("expected modal view")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	if m.inputMode {
		t.Fatalf("expected input mode cancelled by esc")
	}
}
