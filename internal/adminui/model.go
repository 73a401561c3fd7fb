// Package adminui provides the admin view: users, exercises and per-user
// tasks.
package adminui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
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

const gatedLoads = 2 // users + exercises

const (
	tabUsers = iota
	tabExercises
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	itemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	modalStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

type sessionLoadedMsg struct {
	authenticated bool
	err           error
}

type tokenChangedMsg struct {
	token string
}

type usersLoadedMsg struct {
	users []model.User
	err   error
}

type exercisesLoadedMsg struct {
	exercises []string
	err       error
}

// exercisesMutatedMsg carries the authoritative post-mutation list from
// the add/remove response body.
type exercisesMutatedMsg struct {
	exercises []string
	added     bool
	err       error
}

type userTasksLoadedMsg struct {
	userID int64
	tasks  []model.Task
	err    error
}

type generateResultMsg struct {
	userID   int64
	tasks    []model.Task
	tasksErr error
	err      error
}

// Model implements the Bubble Tea admin view.
type Model struct {
	client  *api.Client
	session *session.Session
	changes <-chan string

	gate   lifecycle.Gate
	status lifecycle.Status

	tabs      []string
	activeTab int

	users     []model.User
	userTable table.Model

	exercises []string
	exIndex   int

	selectedUserID int64
	userTasks      []model.Task
	tasksViewport  viewport.Model

	inputMode bool
	exInput   textinput.Model

	busy bool

	width  int
	height int
}

// NewModel constructs the admin view.
func NewModel(client *api.Client, sess *session.Session) *Model {
	m := &Model{
		client:        client,
		session:       sess,
		changes:       sess.Subscribe(),
		tabs:          []string{"Users", "Exercises"},
		tasksViewport: viewport.New(0, 0),
	}
	m.userTable = buildUserTable(nil, 0, 1)
	m.initInput()
	return m
}

func (m *Model) initInput() {
	input := textinput.New()
	input.Prompt = "New exercise: "
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	m.exInput = input
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

func (m *Model) loadUsers() tea.Cmd {
	return func() tea.Msg {
		users, err := m.client.Users(context.Background())
		return usersLoadedMsg{users: users, err: err}
	}
}

func (m *Model) loadExercises() tea.Cmd {
	return func() tea.Msg {
		exercises, err := m.client.Exercises(context.Background())
		return exercisesLoadedMsg{exercises: exercises, err: err}
	}
}

func (m *Model) loadUserTasks(userID int64) tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.client.UserTasks(context.Background(), userID)
		return userTasksLoadedMsg{userID: userID, tasks: tasks, err: err}
	}
}

func (m *Model) addExercise(text string) tea.Cmd {
	return func() tea.Msg {
		exercises, err := m.client.AddExercise(context.Background(), text)
		return exercisesMutatedMsg{exercises: exercises, added: true, err: err}
	}
}

func (m *Model) removeExercise(index int) tea.Cmd {
	return func() tea.Msg {
		exercises, err := m.client.RemoveExercise(context.Background(), index)
		return exercisesMutatedMsg{exercises: exercises, err: err}
	}
}

func (m *Model) generateToday(userID int64) tea.Cmd {
	return func() tea.Msg {
		var result generateResultMsg
		result.userID = userID
		result.err = lifecycle.Mutate(context.Background(),
			func(ctx context.Context) error {
				_, err := m.client.GenerateToday(ctx, userID)
				return err
			},
			func(ctx context.Context) {
				result.tasks, result.tasksErr = m.client.UserTasks(ctx, userID)
			},
		)
		return result
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
			return m, tea.Batch(m.loadUsers(), m.loadExercises())
		}
		return m, nil

	case tokenChangedMsg:
		authenticated := msg.token != ""
		m.gate.TokenSet(authenticated, gatedLoads)
		if !authenticated {
			return m, m.waitForToken()
		}
		return m, tea.Batch(m.loadUsers(), m.loadExercises(), m.waitForToken())

	case usersLoadedMsg:
		// List-type resource: failure keeps the previous list.
		if msg.err != nil {
			m.status.Fail("Failed to load users: " + msg.err.Error())
		} else {
			m.users = msg.users
			m.rebuildUserTable()
		}
		m.gate.LoadSettled()
		return m, nil

	case exercisesLoadedMsg:
		if msg.err != nil {
			m.status.Fail("Failed to load exercises: " + msg.err.Error())
		} else {
			m.setExercises(msg.exercises)
		}
		m.gate.LoadSettled()
		return m, nil

	case exercisesMutatedMsg:
		m.busy = false
		if msg.err != nil {
			// Displayed list stays whatever it was before the attempt.
			m.status.Fail(msg.err.Error())
			return m, nil
		}
		m.setExercises(msg.exercises)
		if msg.added {
			m.exInput.SetValue("")
			m.status.Info("Exercise added")
		} else {
			m.status.Info("Exercise removed")
		}
		return m, nil

	case userTasksLoadedMsg:
		if msg.err != nil {
			m.status.Fail("Failed to load user tasks: " + msg.err.Error())
			return m, nil
		}
		m.selectedUserID = msg.userID
		m.userTasks = msg.tasks
		m.renderUserTasks()
		return m, nil

	case generateResultMsg:
		m.busy = false
		if msg.err != nil {
			// Failure isolation: the displayed task list is untouched.
			m.status.Fail(msg.err.Error())
			return m, nil
		}
		if msg.tasksErr != nil {
			m.status.Fail("Task generated, but refresh failed: " + msg.tasksErr.Error())
			return m, nil
		}
		m.selectedUserID = msg.userID
		m.userTasks = msg.tasks
		m.renderUserTasks()
		m.status.Info("Task generated")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode {
		return m.handleInputKey(msg)
	}
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "left", "h", "shift+tab":
		m.moveTab(-1)
		return m, nil
	case "right", "l", "tab":
		m.moveTab(1)
		return m, nil
	case "r":
		if !m.gate.Authenticated() {
			return m, nil
		}
		m.gate.TokenSet(true, gatedLoads)
		return m, tea.Batch(m.loadUsers(), m.loadExercises())
	}

	if !m.gate.Authenticated() {
		return m, nil
	}
	if m.activeTab == tabUsers {
		return m.handleUsersKey(msg)
	}
	return m.handleExercisesKey(msg)
}

func (m *Model) handleUsersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		user, ok := m.selectedUser()
		if !ok {
			return m, nil
		}
		return m, m.loadUserTasks(user.ID)
	case "g":
		if m.busy {
			return m, nil
		}
		user, ok := m.selectedUser()
		if !ok {
			return m, nil
		}
		m.busy = true
		return m, m.generateToday(user.ID)
	}
	var cmd tea.Cmd
	m.userTable, cmd = m.userTable.Update(msg)
	return m, cmd
}

func (m *Model) handleExercisesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.exIndex > 0 {
			m.exIndex--
		}
		return m, nil
	case "down", "j":
		if m.exIndex < len(m.exercises)-1 {
			m.exIndex++
		}
		return m, nil
	case "a":
		m.inputMode = true
		m.exInput.Focus()
		return m, textinput.Blink
	case "d":
		if m.busy || len(m.exercises) == 0 {
			return m, nil
		}
		m.busy = true
		return m, m.removeExercise(m.exIndex)
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.inputMode = false
		m.exInput.Blur()
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(m.exInput.Value())
		if text == "" {
			m.status.Fail("exercise text must not be empty")
			return m, nil
		}
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.inputMode = false
		m.exInput.Blur()
		return m, m.addExercise(text)
	}
	var cmd tea.Cmd
	m.exInput, cmd = m.exInput.Update(msg)
	return m, cmd
}

func (m *Model) selectedUser() (model.User, bool) {
	row := m.userTable.Cursor()
	if row < 0 || row >= len(m.users) {
		return model.User{}, false
	}
	return m.users[row], true
}

func (m *Model) setExercises(exercises []string) {
	m.exercises = exercises
	if m.exIndex >= len(m.exercises) {
		m.exIndex = len(m.exercises) - 1
	}
	if m.exIndex < 0 {
		m.exIndex = 0
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabUsers {
		m.userTable.Focus()
	} else {
		m.userTable.Blur()
	}
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	tableHeight := bodyHeight / 2
	if tableHeight < 3 {
		tableHeight = 3
	}
	m.userTable.SetWidth(m.width)
	m.userTable.SetHeight(tableHeight)
	m.tasksViewport.Width = m.width
	m.tasksViewport.Height = bodyHeight - tableHeight - 1
	if m.tasksViewport.Height < 1 {
		m.tasksViewport.Height = 1
	}
	promptWidth := lipgloss.Width(m.exInput.Prompt)
	m.exInput.Width = maxInt(10, m.width-promptWidth-8)
	m.renderUserTasks()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight
	footerHeight = 1
	if m.status.Text() != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) rebuildUserTable() {
	height := m.userTable.Height()
	if height <= 0 {
		height = len(m.users) + 1
	}
	row := m.userTable.Cursor()
	m.userTable = buildUserTable(m.users, m.width, height)
	if row < len(m.users) {
		m.userTable.SetCursor(row)
	}
}

func buildUserTable(users []model.User, width, height int) table.Model {
	columns := []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Name", Width: 20},
		{Title: "Email", Width: 30},
		{Title: "Role", Width: 8},
	}
	rows := make([]table.Row, 0, len(users))
	for _, user := range users {
		rows = append(rows, table.Row{
			strconv.FormatInt(user.ID, 10),
			user.Name,
			user.Email,
			user.Role,
		})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
		table.WithFocused(true),
	)
	if width > 0 {
		t.SetWidth(width)
	}
	return t
}

func (m *Model) renderUserTasks() {
	if m.selectedUserID == 0 {
		m.tasksViewport.SetContent(mutedStyle.Render("Select a user and press enter to see their tasks."))
		return
	}
	header := selectedStyle.Render(fmt.Sprintf("Tasks of user #%d", m.selectedUserID))
	if len(m.userTasks) == 0 {
		m.tasksViewport.SetContent(header + "\n" + mutedStyle.Render("No tasks yet."))
		return
	}
	width := m.width - 2
	if width <= 0 {
		width = 78
	}
	blocks := []string{header}
	for _, task := range m.userTasks {
		line := mutedStyle.Render(report.FormatSentAt(task.SentAt)) + "  " + itemStyle.Render("["+task.Status+"]")
		blocks = append(blocks, line+"\n"+itemStyle.Render(textwrap.Wrap(task.Text, width)))
	}
	m.tasksViewport.SetContent(strings.Join(blocks, "\n"))
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.inputMode {
		return m.renderModal()
	}
	var body string
	switch m.gate.State() {
	case lifecycle.StateUninitialized:
		body = mutedStyle.Render("Loading session...")
	case lifecycle.StateUnauthenticated:
		body = mutedStyle.Render("Not logged in. Run psytui and log in first.")
	case lifecycle.StateLoading:
		body = mutedStyle.Render("Loading admin data...")
	default:
		body = m.renderBody()
	}
	return m.renderTabs() + "\n" + body + "\n" + m.renderFooter()
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderBody() string {
	if m.activeTab == tabUsers {
		if len(m.users) == 0 {
			return mutedStyle.Render("No users found.")
		}
		return m.userTable.View() + "\n" + m.tasksViewport.View()
	}
	return m.renderExercises()
}

func (m *Model) renderExercises() string {
	if len(m.exercises) == 0 {
		return mutedStyle.Render("No exercises yet. Press a to add one.")
	}
	lines := make([]string, 0, len(m.exercises))
	for i, exercise := range m.exercises {
		label := fmt.Sprintf("%2d. %s", i+1, exercise)
		if i == m.exIndex {
			lines = append(lines, selectedStyle.Render("> "+label))
		} else {
			lines = append(lines, itemStyle.Render("  "+label))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderModal() string {
	content := "Add exercise (enter to save, esc to cancel)\n\n" + m.exInput.View()
	modal := modalStyle.Render(content)
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
	}
	return modal
}

func (m *Model) renderFooter() string {
	help := "Nav: left/right  Users: enter tasks, g generate  Reload: r  Quit: q"
	if m.activeTab == tabExercises {
		help = "Nav: left/right  Exercises: a add, d delete, up/down select  Reload: r  Quit: q"
	}
	footer := headerStyle.Render(help)
	if m.status.Text() == "" {
		return footer
	}
	line := infoStyle.Render(m.status.Text())
	if m.status.Failed() {
		line = errorStyle.Render(m.status.Text())
	}
	return footer + "\n" + line
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
