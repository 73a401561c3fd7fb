// Package homeui provides the landing view: auth form, today's task and
// progress.
package homeui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/psybot/psytui/internal/api"
	"github.com/psybot/psytui/internal/lifecycle"
	"github.com/psybot/psytui/internal/model"
	"github.com/psybot/psytui/internal/report"
	"github.com/psybot/psytui/internal/session"
	"github.com/psybot/psytui/internal/textwrap"
)

const gatedLoads = 2 // today's task + progress

const (
	inputName = iota
	inputEmail
	inputPassword
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	cardStyle  = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6FBF73"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

type sessionLoadedMsg struct {
	authenticated bool
	err           error
}

type tokenChangedMsg struct {
	token string
}

type todayLoadedMsg struct {
	task *model.Task
	err  error
}

type progressLoadedMsg struct {
	progress *model.Progress
	err      error
}

type authResultMsg struct {
	registered bool
	err        error
}

type completeResultMsg struct {
	task     *model.Task
	progress *model.Progress
	err      error
}

// Model implements the Bubble Tea home view.
type Model struct {
	client  *api.Client
	session *session.Session
	changes <-chan string

	gate   lifecycle.Gate
	status lifecycle.Status

	task     *model.Task
	progress *model.Progress

	registerMode bool
	inputs       []textinput.Model
	focusIndex   int

	busy bool

	width  int
	height int
}

// NewModel constructs the home view. prefillEmail seeds the login form.
func NewModel(client *api.Client, sess *session.Session, prefillEmail string) *Model {
	m := &Model{
		client:  client,
		session: sess,
		changes: sess.Subscribe(),
	}
	m.initInputs(prefillEmail)
	return m
}

func (m *Model) initInputs(prefillEmail string) {
	name := newAuthInput("Name: ")
	email := newAuthInput("Email: ")
	email.SetValue(prefillEmail)
	password := newAuthInput("Password: ")
	password.EchoMode = textinput.EchoPassword
	m.inputs = []textinput.Model{name, email, password}
	m.focusIndex = inputEmail
	m.inputs[m.focusIndex].Focus()
}

func newAuthInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadSession(), m.waitForToken(), textinput.Blink)
}

func (m *Model) loadSession() tea.Cmd {
	return func() tea.Msg {
		err := m.session.Load(context.Background())
		return sessionLoadedMsg{authenticated: m.session.Authenticated(), err: err}
	}
}

// waitForToken bridges the session's change subscription into the
// program. Re-armed after each delivery.
func (m *Model) waitForToken() tea.Cmd {
	return func() tea.Msg {
		return tokenChangedMsg{token: <-m.changes}
	}
}

func (m *Model) loadToday() tea.Cmd {
	return func() tea.Msg {
		task, err := m.client.TodayTask(context.Background())
		return todayLoadedMsg{task: task, err: err}
	}
}

func (m *Model) loadProgress() tea.Cmd {
	return func() tea.Msg {
		progress, err := m.client.Progress(context.Background())
		return progressLoadedMsg{progress: progress, err: err}
	}
}

func (m *Model) submitAuth() tea.Cmd {
	name := strings.TrimSpace(m.inputs[inputName].Value())
	email := strings.TrimSpace(m.inputs[inputEmail].Value())
	password := m.inputs[inputPassword].Value()
	register := m.registerMode
	return func() tea.Msg {
		ctx := context.Background()
		if register {
			_, err := m.client.Register(ctx, name, email, password)
			return authResultMsg{registered: true, err: err}
		}
		token, err := m.client.Login(ctx, email, password)
		if err != nil {
			return authResultMsg{err: err}
		}
		// Set notifies the token subscription, which re-runs the gated
		// loads in order.
		if err := m.session.Set(ctx, token); err != nil {
			return authResultMsg{err: err}
		}
		return authResultMsg{}
	}
}

func (m *Model) completeTask(id int64) tea.Cmd {
	return func() tea.Msg {
		var result completeResultMsg
		err := lifecycle.Mutate(context.Background(),
			func(ctx context.Context) error {
				_, err := m.client.CompleteTask(ctx, id)
				return err
			},
			func(ctx context.Context) {
				// Single-resource loader: failure resets to absent.
				task, err := m.client.TodayTask(ctx)
				if err != nil {
					task = nil
				}
				result.task = task
			},
			func(ctx context.Context) {
				progress, err := m.client.Progress(ctx)
				if err != nil {
					progress = nil
				}
				result.progress = progress
			},
		)
		result.err = err
		return result
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sessionLoadedMsg:
		if msg.err != nil {
			m.status.Fail(msg.err.Error())
		}
		m.gate.SessionLoaded(msg.authenticated, gatedLoads)
		if msg.authenticated {
			return m, tea.Batch(m.loadToday(), m.loadProgress())
		}
		return m, nil

	case tokenChangedMsg:
		authenticated := msg.token != ""
		m.gate.TokenSet(authenticated, gatedLoads)
		if !authenticated {
			m.task = nil
			m.progress = nil
			return m, m.waitForToken()
		}
		return m, tea.Batch(m.loadToday(), m.loadProgress(), m.waitForToken())

	case todayLoadedMsg:
		m.applyToday(msg.task, msg.err)
		m.gate.LoadSettled()
		return m, nil

	case progressLoadedMsg:
		m.applyProgress(msg.progress, msg.err)
		m.gate.LoadSettled()
		return m, nil

	case authResultMsg:
		m.busy = false
		if msg.err != nil {
			m.status.Fail(msg.err.Error())
			return m, nil
		}
		if msg.registered {
			m.status.Info("Registration successful. Now log in.")
			m.registerMode = false
			m.setFocus(inputEmail)
			return m, nil
		}
		m.status.Info("Logged in")
		m.inputs[inputPassword].SetValue("")
		return m, nil

	case completeResultMsg:
		m.busy = false
		if msg.err != nil {
			// Failure isolation: displayed task and progress stay put.
			m.status.Fail(msg.err.Error())
			return m, nil
		}
		m.task = msg.task
		m.progress = msg.progress
		m.status.Info("Task completed")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) applyToday(task *model.Task, err error) {
	if err != nil {
		m.task = nil
		m.status.Fail(err.Error())
		return
	}
	m.task = task
}

func (m *Model) applyProgress(progress *model.Progress, err error) {
	if err != nil {
		m.progress = nil
		m.status.Fail(err.Error())
		return
	}
	m.progress = progress
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.gate.State() == lifecycle.StateUnauthenticated {
		return m.handleFormKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "r":
		if !m.gate.Authenticated() {
			return m, nil
		}
		m.gate.TokenSet(true, gatedLoads)
		m.status.Clear()
		return m, tea.Batch(m.loadToday(), m.loadProgress())
	case "c":
		if m.busy || m.task == nil || m.task.Completed() {
			return m, nil
		}
		m.busy = true
		return m, m.completeTask(m.task.ID)
	}
	return m, nil
}

func (m *Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab:
		m.cycleFocus(1)
		return m, nil
	case tea.KeyShiftTab:
		m.cycleFocus(-1)
		return m, nil
	case tea.KeyCtrlT:
		m.registerMode = !m.registerMode
		if !m.registerMode && m.focusIndex == inputName {
			m.setFocus(inputEmail)
		}
		return m, nil
	case tea.KeyEnter:
		if m.busy {
			return m, nil
		}
		if err := m.validateForm(); err != nil {
			m.status.Fail(err.Error())
			return m, nil
		}
		m.busy = true
		m.status.Info("Signing in...")
		if m.registerMode {
			m.status.Info("Registering...")
		}
		return m, m.submitAuth()
	}

	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m *Model) validateForm() error {
	if m.registerMode && strings.TrimSpace(m.inputs[inputName].Value()) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(m.inputs[inputEmail].Value()) == "" {
		return fmt.Errorf("email is required")
	}
	if m.inputs[inputPassword].Value() == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

func (m *Model) cycleFocus(delta int) {
	first := inputName
	if !m.registerMode {
		first = inputEmail
	}
	next := m.focusIndex + delta
	if next < first {
		next = inputPassword
	}
	if next > inputPassword {
		next = first
	}
	m.setFocus(next)
}

func (m *Model) setFocus(index int) {
	m.inputs[m.focusIndex].Blur()
	m.focusIndex = index
	m.inputs[m.focusIndex].Focus()
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.gate.State() {
	case lifecycle.StateUninitialized:
		body = labelStyle.Render("Loading session...")
	case lifecycle.StateUnauthenticated:
		body = m.renderForm()
	case lifecycle.StateLoading:
		body = labelStyle.Render("Loading...")
	default:
		body = m.renderReady()
	}
	return body + "\n" + m.renderFooter()
}

func (m *Model) renderForm() string {
	mode := "Log in"
	if m.registerMode {
		mode = "Register"
	}
	lines := []string{titleStyle.Render("Daily Exercise · " + mode), ""}
	if m.registerMode {
		lines = append(lines, m.inputs[inputName].View())
	}
	lines = append(lines, m.inputs[inputEmail].View(), m.inputs[inputPassword].View())
	return strings.Join(lines, "\n")
}

func (m *Model) renderReady() string {
	sections := []string{titleStyle.Render("Daily Exercise"), "", m.renderTask(), "", m.renderProgress()}
	return strings.Join(sections, "\n")
}

func (m *Model) renderTask() string {
	if m.task == nil {
		// Never a stale previous task: absence renders as "no task"
		// with a manual reload hint.
		return cardStyle.Render(labelStyle.Render("No task for today.") + "\n" + footerStyle.Render("Press r to reload"))
	}
	width := m.width - 6
	if width <= 0 {
		width = 60
	}
	text := textwrap.Wrap(m.task.Text, width)
	status := valueStyle.Render(m.task.Status)
	if m.task.Completed() {
		status = doneStyle.Render(m.task.Status)
	}
	lines := []string{
		valueStyle.Render(text),
		"",
		labelStyle.Render("Sent: ") + valueStyle.Render(report.FormatSentAt(m.task.SentAt)),
		labelStyle.Render("Status: ") + status,
	}
	if !m.task.Completed() {
		lines = append(lines, footerStyle.Render("Press c to complete"))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderProgress() string {
	if m.progress == nil {
		return labelStyle.Render("No progress data.")
	}
	segments := []string{
		fmt.Sprintf("Total %d", m.progress.Total),
		fmt.Sprintf("Completed %d", m.progress.Completed),
		fmt.Sprintf("Today %d", m.progress.TodayCompleted),
		fmt.Sprintf("Week %d", m.progress.WeekCompleted),
		fmt.Sprintf("Month %d", m.progress.MonthCompleted),
	}
	return labelStyle.Render("Progress  ") + valueStyle.Render(strings.Join(segments, "  ·  "))
}

func (m *Model) renderFooter() string {
	help := "c: complete  r: reload  q: quit"
	if m.gate.State() == lifecycle.StateUnauthenticated {
		help = "enter: submit  tab: next field  ctrl+t: login/register  ctrl+c: quit"
	}
	footer := footerStyle.Render(help)
	if m.status.Text() == "" {
		return footer
	}
	line := infoStyle.Render(m.status.Text())
	if m.status.Failed() {
		line = errorStyle.Render(m.status.Text())
	}
	return footer + "\n" + line
}
