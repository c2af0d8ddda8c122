// Package tui renders the salvage-terminal surface: a scrolling
// transmission log, a vitals/inventory sidebar and a single input line.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jonchampaigne/ScarSignal/internal/engine"
	"github.com/jonchampaigne/ScarSignal/internal/models"
)

type uiState int

const (
	stateReady uiState = iota
	stateWriting
	stateConfirmReset
	stateSignalLost
)

var (
	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	narrativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D7D7AF"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FAFAF"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87D787"))

	restoredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	damageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

type Model struct {
	engine    *engine.Engine
	textInput textinput.Model
	viewport  viewport.Model
	spin      spinner.Model

	state       uiState
	width       int
	height      int
	damageFlash bool
	lastDamage  int
	busy        bool
}

// NewModel builds the surface around a running engine.
func NewModel(eng *engine.Engine) Model {
	ti := textinput.New()
	ti.Placeholder = "start"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		engine:    eng,
		textInput: ti,
		spin:      sp,
	}
	m.syncState()
	return m
}

func (m *Model) syncState() {
	switch m.engine.Phase() {
	case engine.PhaseWriting:
		m.state = stateWriting
	case engine.PhaseTerminal:
		m.state = stateSignalLost
	default:
		m.state = stateReady
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent())
}

type engineEventMsg engine.Event

type submitDoneMsg struct {
	directive engine.Directive
	err       error
}

type damageClearMsg struct{}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.engine.Events()
		if !ok {
			return nil
		}
		return engineEventMsg(ev)
	}
}

func (m Model) submit(raw string) tea.Cmd {
	return func() tea.Msg {
		d, err := m.engine.SubmitInput(context.Background(), raw)
		return submitDoneMsg{directive: d, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyF2:
			snap := m.engine.Snapshot()
			m.engine.SetMuted(!snap.Muted)
			return m, nil
		case tea.KeyF3:
			snap := m.engine.Snapshot()
			m.engine.SetVolume(snap.Volume - 0.1)
			return m, nil
		case tea.KeyF4:
			snap := m.engine.Snapshot()
			m.engine.SetVolume(snap.Volume + 0.1)
			return m, nil

		case tea.KeyEnter:
			raw := strings.TrimSpace(m.textInput.Value())
			m.textInput.Reset()

			if m.state == stateConfirmReset {
				if raw == "y" || raw == "yes" {
					m.engine.Reset()
				}
				m.syncState()
				return m, nil
			}
			if m.state == stateWriting || raw == "" {
				return m, nil
			}
			// Optimistic: commands resolve instantly and snap back via
			// submitDoneMsg; turns stay here until the narrative call
			// resolves.
			m.state = stateWriting
			return m, tea.Batch(m.submit(raw), m.spin.Tick)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = int(float64(msg.Width) * 0.72)
		m.viewport.Height = msg.Height - 6
		m.refreshLog()

	case submitDoneMsg:
		switch msg.directive {
		case engine.DirectiveExit:
			return m, tea.Quit
		case engine.DirectiveConfirmReset:
			m.state = stateConfirmReset
			m.textInput.Placeholder = "wipe everything? y/n"
			return m, nil
		}
		m.textInput.Placeholder = "what do you do?"
		m.syncState()
		return m, nil

	case engineEventMsg:
		switch engine.Event(msg).Kind {
		case engine.EventDamage:
			m.damageFlash = true
			m.lastDamage = engine.Event(msg).HealthDelta
			m.refreshLog()
			return m, tea.Batch(m.waitForEvent(), tea.Tick(damageFlashFor, func(time.Time) tea.Msg { return damageClearMsg{} }))
		case engine.EventBusyChanged:
			m.busy = m.engine.Busy()
		case engine.EventStateChanged:
			m.refreshLog()
		}
		cmds := []tea.Cmd{m.waitForEvent()}
		if m.busy {
			cmds = append(cmds, m.spin.Tick)
		}
		return m, tea.Batch(cmds...)

	case damageClearMsg:
		m.damageFlash = false
		return m, nil

	case spinner.TickMsg:
		if m.busy || m.state == stateWriting {
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.state == stateReady || m.state == stateConfirmReset {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) refreshLog() {
	if m.viewport.Width == 0 {
		return
	}
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m Model) renderLog() string {
	snap := m.engine.Snapshot()
	var b strings.Builder
	width := m.viewport.Width

	for _, entry := range snap.Log {
		b.WriteString(renderEntry(entry, width))
		b.WriteString("\n\n")
	}
	return b.String()
}

func renderEntry(e models.LogEntry, width int) string {
	var style lipgloss.Style
	switch e.Kind {
	case models.LogCommand:
		style = commandStyle
	case models.LogNarrative:
		style = narrativeStyle
	case models.LogSystem:
		style = systemStyle
	case models.LogError:
		style = errorStyle
	case models.LogSuccess:
		style = successStyle
	default:
		style = infoStyle
	}
	// Restored entries render dimmed and, like everything here, without
	// replay animation.
	if e.Restored {
		style = restoredStyle
	}

	content := e.Content
	if len(e.Options) > 0 {
		var lines []string
		for i, opt := range e.Options {
			lines = append(lines, fmt.Sprintf("  [%d] %s", i+1, opt.Label))
		}
		content += "\n" + strings.Join(lines, "\n")
	}
	return style.Width(width).Render(content)
}

func (m Model) View() string {
	if m.width == 0 {
		return "\n  linking host...\n"
	}

	logView := m.viewport.View()
	sidebar := m.renderSidebar()

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, logView, sidebar)

	var status string
	switch m.state {
	case stateWriting:
		status = helpStyle.Render(m.spin.View() + " receiving transmission...")
	case stateConfirmReset:
		status = errorStyle.Render("This wipes the saved session. Type 'y' to confirm.")
	case stateSignalLost:
		status = errorStyle.Render("SIGNAL LOST — type 'reset' to open a new channel.")
	default:
		status = helpStyle.Render("Commands: clear, reset, exit. F2 mute, F3/F4 volume.")
	}

	return "\n" + lipgloss.JoinVertical(lipgloss.Left,
		mainView,
		"\n"+m.textInput.View(),
		"\n"+status,
	) + "\n"
}

const damageFlashFor = 600 * time.Millisecond

func (m Model) renderSidebar() string {
	snap := m.engine.Snapshot()
	var b strings.Builder

	b.WriteString(titleStyle.Render("VITALS") + "\n")
	health := fmt.Sprintf("Health %3d/100\nWealth %5d\nXP     %5d\n", snap.Stats.Health, snap.Stats.Wealth, snap.Stats.XP)
	if m.damageFlash {
		b.WriteString(damageStyle.Render(fmt.Sprintf("%s  (%d)", healthBar(snap.Stats.Health), m.lastDamage)) + "\n")
	} else {
		b.WriteString(healthBar(snap.Stats.Health) + "\n")
	}
	b.WriteString(health + "\n")

	b.WriteString(titleStyle.Render("INVENTORY") + "\n")
	if len(snap.Inventory) == 0 {
		b.WriteString("(empty)\n")
	}
	for _, it := range snap.Inventory {
		if it.Quantity > 1 {
			b.WriteString(fmt.Sprintf("- %s x%d\n", it.Name, it.Quantity))
		} else {
			b.WriteString(fmt.Sprintf("- %s\n", it.Name))
		}
	}
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("FEED") + "\n")
	b.WriteString(fmt.Sprintf("%d frame(s) held\n", len(snap.ImageURLs)))
	if m.busy {
		b.WriteString(m.spin.View() + " developing\n")
	}
	b.WriteString("\n")

	vol := fmt.Sprintf("vol %.0f%%", snap.Volume*100)
	if snap.Muted {
		vol = "muted"
	}
	b.WriteString(infoStyle.Render(vol) + "\n")

	sideWidth := m.width - m.viewport.Width - 4
	if sideWidth < 20 {
		sideWidth = 20
	}
	return sidebarStyle.Width(sideWidth).Height(m.viewport.Height).Render(b.String())
}

func healthBar(health int) string {
	const cells = 10
	filled := health / 10
	if health > 0 && filled == 0 {
		filled = 1
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", cells-filled) + "]"
}

// Run starts the surface and blocks until exit.
func Run(eng *engine.Engine) error {
	p := tea.NewProgram(NewModel(eng), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
