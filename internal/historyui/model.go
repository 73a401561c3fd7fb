// Package historyui provides the task history view.
package historyui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/psybot/psytui/internal/api"
	"github.com/psybot/psytui/internal/lifecycle"
	"github.com/psybot/psytui/internal/model"
	"github.com/psybot/psytui/internal/report"
	"github.com/psybot/psytui/internal/session"
	"github.com/psybot/psytui/internal/textwrap"
)

const gatedLoads = 1 // task history

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	dateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6FBF73"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

type sessionLoadedMsg struct {
	authenticated bool
	err           error
}

type tokenChangedMsg struct {
	token string
}

type tasksLoadedMsg struct {
	tasks []model.Task
	err   error
}

// Model implements the Bubble Tea history view.
type Model struct {
	client  *api.Client
	session *session.Session
	changes <-chan string

	gate   lifecycle.Gate
	status lifecycle.Status

	tasks    []model.Task
	viewport viewport.Model

	width  int
	height int
}

// NewModel constructs the history view.
func NewModel(client *api.Client, sess *session.Session) *Model {
	return &Model{
		client:   client,
		session:  sess,
		changes:  sess.Subscribe(),
		viewport: viewport.New(0, 0),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadSession(), m.waitForToken())
}

func (m *Model) loadSession() tea.Cmd {
	return func() tea.Msg {
		err := m.session.Load(context.Background())
		return sessionLoadedMsg{authenticated: m.session.Authenticated(), err: err}
	}
}

func (m *Model) waitForToken() tea.Cmd {
	return func() tea.Msg {
		return tokenChangedMsg{token: <-m.changes}
	}
}

func (m *Model) loadTasks() tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.client.Tasks(context.Background())
		return tasksLoadedMsg{tasks: tasks, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case sessionLoadedMsg:
		if msg.err != nil {
			m.status.Fail(msg.err.Error())
		}
		m.gate.SessionLoaded(msg.authenticated, gatedLoads)
		if msg.authenticated {
			return m, m.loadTasks()
		}
		return m, nil

	case tokenChangedMsg:
		authenticated := msg.token != ""
		m.gate.TokenSet(authenticated, gatedLoads)
		if !authenticated {
			return m, m.waitForToken()
		}
		return m, tea.Batch(m.loadTasks(), m.waitForToken())

	case tasksLoadedMsg:
		// List-type resource: a failed fetch keeps the previous list.
		if msg.err != nil {
			m.status.Fail(msg.err.Error())
		} else {
			m.tasks = msg.tasks
			m.status.Clear()
		}
		m.gate.LoadSettled()
		m.renderContent()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			if !m.gate.Authenticated() {
				return m, nil
			}
			m.gate.TokenSet(true, gatedLoads)
			return m, m.loadTasks()
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) updateLayout() {
	headerHeight := 2
	footerHeight := 1
	if m.status.Text() != "" {
		footerHeight++
	}
	height := m.height - headerHeight - footerHeight
	if height < 1 {
		height = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = height
	m.renderContent()
}

func (m *Model) renderContent() {
	if !m.gate.Authenticated() {
		return
	}
	if len(m.tasks) == 0 {
		m.viewport.SetContent(dateStyle.Render("No tasks yet."))
		return
	}
	width := m.width - 2
	if width <= 0 {
		width = 78
	}
	blocks := make([]string, 0, len(m.tasks))
	for _, task := range m.tasks {
		status := statusStyle.Render(task.Status)
		if task.Completed() {
			status = doneStyle.Render(task.Status)
		}
		header := dateStyle.Render(report.FormatSentAt(task.SentAt)) + "  " + status
		body := textStyle.Render(textwrap.Wrap(task.Text, width))
		blocks = append(blocks, header+"\n"+body)
	}
	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
}

// View implements tea.Model.
func (m *Model) View() string {
	header := titleStyle.Render("Task History") + "\n"
	var body string
	switch m.gate.State() {
	case lifecycle.StateUninitialized:
		body = dateStyle.Render("Loading session...")
	case lifecycle.StateUnauthenticated:
		body = dateStyle.Render("Not logged in. Run psytui and log in first.")
	case lifecycle.StateLoading:
		body = dateStyle.Render("Loading history...")
	default:
		body = m.viewport.View()
	}
	return header + body + "\n" + m.renderFooter()
}

func (m *Model) renderFooter() string {
	footer := footerStyle.Render("Scroll: up/down  Reload: r  Quit: q")
	if m.status.Text() == "" {
		return footer
	}
	line := footerStyle.Render(m.status.Text())
	if m.status.Failed() {
		line = errorStyle.Render(m.status.Text())
	}
	return footer + "\n" + line
}
