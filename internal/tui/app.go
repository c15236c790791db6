// Package tui provides an interactive terminal chart of the live accelerometer window.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Geun-Oh/accelx/internal/core"
	"github.com/Geun-Oh/accelx/internal/monitor"
	"github.com/Geun-Oh/accelx/internal/sample"
	"github.com/Geun-Oh/accelx/internal/window"
)

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(1).
			PaddingRight(1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#353533"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#44DD66"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	axisStyles = map[sample.Axis]lipgloss.Style{
		sample.AxisX: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")),
		sample.AxisY: lipgloss.NewStyle().Foreground(lipgloss.Color("#55DD55")),
		sample.AxisZ: lipgloss.NewStyle().Foreground(lipgloss.Color("#5599FF")),
	}
)

// --- Messages ---

// WindowMsg delivers an extracted display window.
type WindowMsg window.Frame

// AppendMsg delivers samples appended since the previous hand-off.
type AppendMsg window.Delta

// StatusMsg delivers a status snapshot.
type StatusMsg core.Status

// Controls is the command target for key bindings.
type Controls interface {
	Apply(cmd core.Command) (core.Outcome, error)
}

// --- Keys ---

type keyMap struct {
	Reset  key.Binding
	Stream key.Binding
	Wider  key.Binding
	Narrow key.Binding
	Record key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reset, k.Stream, k.Wider, k.Narrow, k.Record, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Reset, k.Stream, k.Record},
		{k.Wider, k.Narrow},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset"),
	),
	Stream: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p/space", "pause stream"),
	),
	Wider: key.NewBinding(
		key.WithKeys("+", "=", "right"),
		key.WithHelp("+", "wider window"),
	),
	Narrow: key.NewBinding(
		key.WithKeys("-", "left"),
		key.WithHelp("-", "narrower window"),
	),
	Record: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "record"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// WindowStep is the window length change per key press, in seconds.
const WindowStep = 1.0

// --- Model ---

// Model is the bubbletea model for the chart. It is the only owner of
// render state; updates arrive as messages.
type Model struct {
	width  int
	height int

	frame    window.Frame
	hasFrame bool
	appended int // samples received through AppendMsg in the current epoch
	epoch    uint64

	status core.Status
	errMsg string

	controls Controls
	title    string
	help     help.Model
}

// NewModel creates a new chart model.
func NewModel(controls Controls, title string) Model {
	return Model{
		controls: controls,
		title:    title,
		help:     help.New(),
	}
}

// Init asks for the terminal size.
func (m Model) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case WindowMsg:
		m.frame = window.Frame(msg)
		m.hasFrame = true
		m.trackEpoch(msg.Epoch)
		return m, nil

	case AppendMsg:
		m.trackEpoch(msg.Epoch)
		m.appended += len(msg.Samples)
		return m, nil

	case StatusMsg:
		m.status = core.Status(msg)
		return m, nil
	}

	return m, nil
}

// trackEpoch drops per-epoch render state when a reset is observed.
func (m *Model) trackEpoch(epoch uint64) {
	if epoch != m.epoch {
		m.epoch = epoch
		m.appended = 0
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, keys.Reset):
		m.hasFrame = false
		return m.apply(core.Reset{}), nil
	case key.Matches(msg, keys.Stream):
		return m.apply(core.SetStream{}), nil
	case key.Matches(msg, keys.Wider):
		return m.apply(core.WindowResize{Seconds: m.status.WindowSeconds + WindowStep}), nil
	case key.Matches(msg, keys.Narrow):
		return m.apply(core.WindowResize{Seconds: m.status.WindowSeconds - WindowStep}), nil
	case key.Matches(msg, keys.Record):
		return m.apply(core.Record{Active: !m.status.Recording}), nil
	}
	return m, nil
}

func (m Model) apply(cmd core.Command) Model {
	if m.controls == nil {
		return m
	}
	out, err := m.controls.Apply(cmd)
	m.errMsg = ""
	if err != nil {
		m.errMsg = err.Error()
	}
	if out.Status != nil {
		m.status = *out.Status
	}
	return m
}

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var sb strings.Builder

	// Title bar.
	title := titleStyle.Render(fmt.Sprintf(" accelx · %s ", m.title))
	state := m.stateLabel()
	stateText := statusBarStyle.Render(fmt.Sprintf(" %s  %d pts ", state, m.status.TotalPoints))
	gap := max(0, m.width-lipgloss.Width(title)-lipgloss.Width(stateText))
	sb.WriteString(title + statusBarStyle.Render(strings.Repeat(" ", gap)) + stateText)
	sb.WriteString("\n")

	// Chart: three stacked axes sharing the remaining height.
	helpView := m.help.View(keys)
	footer := 2 + lipgloss.Height(helpView)
	perAxis := max(1, (m.height-1-footer)/len(sample.Axes)-1)
	plotWidth := max(1, m.width-10)

	if !m.hasFrame {
		for i := 0; i < len(sample.Axes)*(perAxis+1); i++ {
			if i == perAxis {
				sb.WriteString(dimStyle.Render("  waiting for data..."))
			}
			sb.WriteString("\n")
		}
	} else {
		lines := chartLines(m.frame, plotWidth, perAxis)
		for _, a := range sample.Axes {
			style := axisStyles[a]
			for i, row := range lines[a] {
				label := "        "
				if i == 0 {
					label = fmt.Sprintf(" %s %+5.2f", a, m.frame.YMax)
				} else if i == len(lines[a])-1 {
					label = fmt.Sprintf("   %+5.2f", m.frame.YMin)
				}
				sb.WriteString(dimStyle.Render(padRight(label, 9)) + " " + style.Render(row))
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
	}

	// Stats bar.
	sb.WriteString(statusBarStyle.Render(padRight(m.statsLine(), m.width)))
	sb.WriteString("\n")

	// Message line.
	switch {
	case m.errMsg != "":
		sb.WriteString(errorStyle.Render(" " + m.errMsg))
	case m.status.Message != "":
		sb.WriteString(warnStyle.Render(" " + m.status.Message))
	case m.status.Recording:
		sb.WriteString(okStyle.Render(" ● recording to " + m.status.RecordingPath))
	}
	sb.WriteString("\n")

	sb.WriteString(helpView)
	return sb.String()
}

// --- Helpers ---

func (m Model) stateLabel() string {
	switch {
	case m.status.DatasetLoaded:
		return "▤ DATASET"
	case !m.status.StreamActive:
		return "⏸ PAUSED"
	case m.status.State.Idle():
		return "○ IDLE"
	case m.status.Connected:
		return "● CONNECTED"
	case m.status.State == monitor.Active && m.status.HasData:
		return "◐ STALE"
	default:
		return "○ WAITING"
	}
}

func (m Model) statsLine() string {
	st := m.status
	line := fmt.Sprintf(" t=%.1fs │ window %.0fs │ %.0f pts/s │ buf %d/%d",
		st.Elapsed, st.WindowSeconds, st.PointsPerSecond, st.Buffered, st.Capacity)
	if st.Dropped > 0 {
		line += fmt.Sprintf(" │ evicted %d", st.Dropped)
	}
	if st.HasData {
		line += fmt.Sprintf(" │ last %.1fs ago", st.LastArrivalAge)
	}
	if m.hasFrame {
		line += fmt.Sprintf(" │ shown %d", len(m.frame.Samples))
	}
	if m.appended > 0 {
		line += fmt.Sprintf(" │ streamed %d", m.appended)
	}
	return line
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
