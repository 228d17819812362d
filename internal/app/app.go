// Package app is the terminal dashboard over the sync engine. It renders
// the reconciled interview list, the urgent-notification subset, and the
// connection indicator, and forwards accept/decline/mark-read actions. All
// state lives in the engine's stores; this model only reads snapshots.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cvconnect/interviewsync/internal/channel"
	"github.com/cvconnect/interviewsync/internal/keys"
	"github.com/cvconnect/interviewsync/internal/model"
	"github.com/cvconnect/interviewsync/internal/notify"
	appsync "github.com/cvconnect/interviewsync/internal/sync"
	"github.com/cvconnect/interviewsync/internal/theme"
)

// refreshEvery is how often the dashboard re-reads the engine's stores.
const refreshEvery = 2 * time.Second

// tickMsg drives the periodic snapshot refresh.
type tickMsg time.Time

// engineStartedMsg signals that the engine finished starting.
type engineStartedMsg struct{}

// respondedMsg carries the outcome of an accept/decline action.
type respondedMsg struct {
	interviewID string
	err         error
}

// Model is the root Bubble Tea model for the dashboard.
type Model struct {
	engine *appsync.Engine
	keys   *keys.KeyMap
	spin   spinner.Model

	interviews []model.Interview
	urgent     []model.Notification
	unread     int
	status     channel.Status
	info       string
	errText    string
	cursor     int

	width  int
	height int
	ready  bool
}

// New creates the dashboard model over a constructed engine.
func New(engine *appsync.Engine) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		engine: engine,
		keys:   keys.DefaultKeyMap(),
		spin:   sp,
	}
}

// Init starts the engine and the snapshot ticker.
func (m Model) Init() tea.Cmd {
	engine := m.engine
	return tea.Batch(
		m.spin.Tick,
		func() tea.Msg {
			engine.Start()
			return engineStartedMsg{}
		},
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case engineStartedMsg:
		return m.snapshot(), nil

	case tickMsg:
		return m.snapshot(), tick()

	case respondedMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		return m.snapshot(), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey dispatches a key press.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.engine.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.interviews)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Accept):
		return m, m.respond(model.StatusAccepted)

	case key.Matches(msg, m.keys.Decline):
		return m, m.respond(model.StatusDeclined)

	case key.Matches(msg, m.keys.MarkRead):
		if len(m.urgent) > 0 {
			engine := m.engine
			id := m.urgent[0].ID
			return m, func() tea.Msg {
				engine.MarkNotificationRead(context.Background(), id)
				return tickMsg(time.Now())
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.engine.OnForeground()
		return m, nil
	}

	return m, nil
}

// respond fires the accept/decline action for the selected interview. The
// optimistic store mutation happens inside Respond before any network
// call, so the very next snapshot already shows the new status.
func (m Model) respond(status model.InterviewStatus) tea.Cmd {
	if m.cursor >= len(m.interviews) {
		return nil
	}
	engine := m.engine
	id := m.interviews[m.cursor].ID

	return func() tea.Msg {
		err := engine.Respond(context.Background(), id, status)
		return respondedMsg{interviewID: id, err: err}
	}
}

// snapshot re-reads the engine's stores into the view model.
func (m Model) snapshot() Model {
	m.interviews = m.engine.Interviews()
	m.urgent = m.engine.UrgentNotifications(time.Now())
	m.unread = m.engine.UnreadCount()
	m.status = m.engine.ConnectionStatus()
	if m.cursor >= len(m.interviews) && m.cursor > 0 {
		m.cursor = len(m.interviews) - 1
	}
	if msgs := m.engine.InfoMessages(); len(msgs) > 0 {
		m.info = msgs[len(msgs)-1]
		m.errText = ""
	}
	return m
}

// View renders the dashboard.
func (m Model) View() string {
	if !m.ready {
		return m.spin.View() + " starting..."
	}

	var b strings.Builder
	now := time.Now()

	b.WriteString(theme.HeaderStyle.Render("Interviews"))
	b.WriteString("\n")
	if len(m.interviews) == 0 {
		b.WriteString(theme.HelpStyle.Render("  no interviews scheduled"))
		b.WriteString("\n")
	}
	for i, iv := range m.interviews {
		b.WriteString(m.renderInterview(i, iv, now))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.HeaderStyle.Render("Alerts"))
	b.WriteString("\n")
	if len(m.urgent) == 0 {
		b.WriteString(theme.HelpStyle.Render("  nothing urgent"))
		b.WriteString("\n")
	}
	for _, n := range m.urgent {
		b.WriteString(renderNotification(n))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusBar())

	return b.String()
}

// renderInterview renders one interview row with its countdown badge.
func (m Model) renderInterview(i int, iv model.Interview, now time.Time) string {
	countdown := notify.TimeRemaining(iv.ScheduledDate, now)
	if notify.ShouldAlert(iv.ScheduledDate, now) {
		countdown = "⚠ " + countdown
	}

	row := fmt.Sprintf("%s %s  %s",
		theme.StatusStyle(iv.Status).Render(string(iv.Status)),
		iv.Title,
		theme.HelpStyle.Render(countdown),
	)

	if i == m.cursor {
		return theme.SelectedItemStyle.Render(row)
	}
	return theme.ListItemStyle.Render(row)
}

// renderNotification renders one urgent alert row.
func renderNotification(n model.Notification) string {
	marker := " "
	text := n.Message
	if !n.Read {
		marker = theme.UnreadStyle.Render("●")
		text = theme.UnreadStyle.Render(text)
	}
	return fmt.Sprintf("  %s %s", marker, text)
}

// statusBar renders connection health, unread count, and the latest
// informational or error message.
func (m Model) statusBar() string {
	conn := theme.ConnectionStyle(m.status.State).Render(string(m.status.State))
	if m.status.State == channel.StateConnecting {
		conn = m.spin.View() + conn
	}

	parts := []string{
		conn,
		fmt.Sprintf("%d unread", m.unread),
	}
	if m.info != "" {
		parts = append(parts, theme.InfoStyle.Render(m.info))
	}
	if m.errText != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.errText))
	}
	parts = append(parts,
		theme.HelpStyle.Render("a accept · d decline · m read · r refresh · q quit"))

	return theme.StatusBarStyle.Width(m.width).Render(strings.Join(parts, "  |  "))
}
