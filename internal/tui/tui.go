// Package tui provides a Bubble Tea terminal user interface for cradio.
//
// The flow asks for an upload host, a user hash when the host takes one,
// and the station directories, then shows a live build view.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/handiism/cradio/internal/config"
	"github.com/handiism/cradio/internal/convert"
	"github.com/handiism/cradio/internal/upload"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateHost State = iota
	StateUserHash
	StateInput
	StateBuilding
	StateComplete
	StateError
)

// errCancelled is shown when the user aborts a build.
var errCancelled = errors.New("cancelled by user")

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   convert.ProgressLevel
}

// hostChoice is one entry of the host menu. The zero Key keeps audio local.
type hostChoice struct {
	upload.HostInfo
}

func (h hostChoice) label() string {
	if h.Key == "" {
		return "None (copy audio into the addon)"
	}
	switch h.Auth {
	case upload.AuthRequired:
		return h.Title + " (user hash required)"
	case upload.AuthOptional:
		return h.Title + " (user hash optional)"
	}
	return h.Title
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	hosts     []hostChoice
	cursor    int
	hashInput textinput.Model
	pathInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	log       zerolog.Logger
	logs      []LogEntry
	summary   *convert.Summary
	err       error
	notice    string

	// Build context
	ctx    context.Context
	cancel context.CancelFunc
	events chan convert.ProgressEvent

	// Build manager reference
	manager *convert.Manager

	// Build progress
	doneSongs  int32
	totalSongs int32
	sentBytes  int64

	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model starting from settings.
func NewModel(settings *config.Settings, log zerolog.Logger) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	hosts := []hostChoice{{}}
	cursor := 0
	for i, h := range upload.Hosts() {
		hosts = append(hosts, hostChoice{h})
		if h.Key == settings.Uploads.Host {
			cursor = i + 1
		}
	}

	hash := textinput.New()
	hash.Placeholder = "user hash"
	hash.EchoMode = textinput.EchoPassword
	hash.CharLimit = 200
	hash.Width = 60
	hash.SetValue(settings.Uploads.UserHash)

	paths := textinput.New()
	paths.Placeholder = "/music/Lofi, /music/Jazz"
	paths.CharLimit = 2000
	paths.Width = 60
	paths.SetValue(strings.Join(settings.Stations, ", "))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateHost,
		hosts:     hosts,
		cursor:    cursor,
		hashInput: hash,
		pathInput: paths,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		log:       log,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent for every build progress event.
	ProgressMsg struct {
		Event convert.ProgressEvent
	}

	// BuildStartMsg carries the manager once the build has been set up.
	BuildStartMsg struct {
		Manager *convert.Manager
		Err     error
	}

	// BuildDoneMsg is sent when all stations have been processed.
	BuildDoneMsg struct {
		Summary *convert.Summary
		Done    int32
		Total   int32
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		next, cmd, handled := m.handleKey(msg)
		if handled {
			return next, cmd
		}
		m = next

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Level != convert.LevelVerbose || m.verbose {
			m.logs = append(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
			// Keep only last 10 logs
			if len(m.logs) > 10 {
				m.logs = m.logs[len(m.logs)-10:]
			}
		}
		cmds = append(cmds, listen(m.events))

	case BuildStartMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			break
		}
		m.manager = msg.Manager

	case BuildDoneMsg:
		m.summary = msg.Summary
		m.doneSongs = msg.Done
		m.totalSongs = msg.Total
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateBuilding {
			m.doneSongs, m.totalSongs = m.manager.GetProgress()
			m.sentBytes = m.manager.GetUploaded()
			var percent float64
			if m.totalSongs > 0 {
				percent = float64(m.doneSongs) / float64(m.totalSongs)
			}
			cmds = append(cmds, m.progress.SetPercent(percent))
		}
		if m.state == StateBuilding {
			cmds = append(cmds, tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text inputs
	var cmd tea.Cmd
	switch m.state {
	case StateUserHash:
		m.hashInput, cmd = m.hashInput.Update(msg)
	case StateInput:
		m.pathInput, cmd = m.pathInput.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey reacts to keys. handled means the key was consumed and must
// not reach the text inputs.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	key := msg.String()

	switch key {
	case "ctrl+c":
		m.cancel()
		return m, tea.Quit, true

	case "esc":
		switch m.state {
		case StateHost:
			return m, tea.Quit, true
		case StateUserHash:
			m.state = StateHost
			m.hashInput.Blur()
		case StateInput:
			m.pathInput.Blur()
			m.state = StateHost
			if m.selectedHost().Auth != upload.AuthNone {
				m.state = StateUserHash
				m.hashInput.Focus()
			}
		case StateBuilding:
			m.cancel()
		}
		return m, nil, true
	}

	switch m.state {
	case StateHost:
		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.hosts)-1 {
				m.cursor++
			}
		case "v":
			m.verbose = !m.verbose
		case "enter":
			m.notice = ""
			m.settings.Uploads.Host = m.selectedHost().Key
			if m.selectedHost().Auth == upload.AuthNone {
				m.state = StateInput
				cmd := m.pathInput.Focus()
				return m, cmd, true
			}
			m.state = StateUserHash
			cmd := m.hashInput.Focus()
			return m, cmd, true
		default:
			if n := digit(key); n >= 0 && n < len(m.hosts) {
				m.cursor = n
			}
		}
		return m, nil, true

	case StateUserHash:
		if key != "enter" {
			return m, nil, false
		}
		hash := strings.TrimSpace(m.hashInput.Value())
		if hash == "" && m.selectedHost().Auth == upload.AuthRequired {
			m.notice = fmt.Sprintf("%s needs a user hash", m.selectedHost().Title)
			return m, nil, true
		}
		m.notice = ""
		m.settings.Uploads.UserHash = hash
		m.hashInput.Blur()
		m.state = StateInput
		cmd := m.pathInput.Focus()
		return m, cmd, true

	case StateInput:
		if key != "enter" {
			return m, nil, false
		}
		paths := ParsePaths(m.pathInput.Value())
		if len(paths) == 0 {
			m.notice = "enter at least one station directory"
			return m, nil, true
		}
		m.notice = ""
		m.pathInput.Blur()
		m.state = StateBuilding
		m.events = make(chan convert.ProgressEvent, 64)
		build := m.startBuild(paths)
		return m, tea.Batch(build, listen(m.events), m.spinner.Tick, tickProgress()), true

	case StateComplete, StateError:
		switch key {
		case "q":
			return m, tea.Quit, true
		case "r":
			m.state = StateHost
			m.logs = nil
			m.summary = nil
			m.err = nil
			m.manager = nil
			m.doneSongs, m.totalSongs, m.sentBytes = 0, 0, 0
			m.ctx, m.cancel = context.WithCancel(context.Background())
			return m, nil, true
		}
		return m, nil, true
	}

	return m, nil, false
}

func (m Model) selectedHost() hostChoice {
	return m.hosts[m.cursor]
}

func digit(key string) int {
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return int(key[0] - '0')
	}
	return -1
}

// ParsePaths splits station input on commas and newlines.
func ParsePaths(input string) []string {
	var paths []string
	for _, field := range strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == '\n' }) {
		if p := strings.TrimSpace(field); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// tickProgress returns a command to tick progress updates.
func tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// listen waits for the next progress event. It yields nil once the build
// has closed the channel.
func listen(events <-chan convert.ProgressEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: event}
	}
}

// startBuild runs the manager in the background. The manager is announced
// first so the progress ticker can poll it.
func (m Model) startBuild(paths []string) tea.Cmd {
	settings := *m.settings
	ctx, events, log := m.ctx, m.events, m.log

	deps, err := convert.DefaultDeps(&settings, log)
	if err == nil {
		err = settings.Validate()
	}
	if err != nil {
		close(events)
		return func() tea.Msg { return BuildStartMsg{Err: err} }
	}

	manager := convert.NewManager(&settings, deps, func(event convert.ProgressEvent) {
		select {
		case events <- event:
		case <-ctx.Done():
		}
	})

	return tea.Sequence(
		func() tea.Msg { return BuildStartMsg{Manager: manager} },
		func() tea.Msg {
			defer close(events)
			summary, err := manager.Run(ctx, paths)
			done, total := manager.GetProgress()
			return BuildDoneMsg{Summary: summary, Done: done, Total: total, Err: err}
		},
	)
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("CRadio Station Builder"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Turn music directories into CRadio stations"))
	b.WriteString("\n\n")

	switch m.state {
	case StateHost:
		b.WriteString(m.viewHost())
	case StateUserHash:
		b.WriteString(m.viewUserHash())
	case StateInput:
		b.WriteString(m.viewInput())
	case StateBuilding:
		b.WriteString(m.viewBuilding())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("! " + m.notice))
		b.WriteString("\n")
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewHost() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Choose where to host audio:"))
	b.WriteString("\n\n")
	for i, h := range m.hosts {
		line := fmt.Sprintf("  %d. %s", i, h.label())
		if i == m.cursor {
			line = selectedStyle.Render(fmt.Sprintf("> %d. %s", i, h.label()))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[x]"
	}
	b.WriteString("\n")
	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Verbose output (v)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output directory: %s", m.settings.OutputDir)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewUserHash() string {
	var b strings.Builder

	host := m.selectedHost()
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("User hash for %s:", host.Title)))
	b.WriteString("\n\n")
	b.WriteString(m.hashInput.View())
	b.WriteString("\n\n")
	if host.Auth == upload.AuthOptional {
		b.WriteString(dimStyle.Render("Leave empty to upload anonymously."))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Station directories (comma separated):"))
	b.WriteString("\n\n")
	b.WriteString(m.pathInput.View())
	b.WriteString("\n\n")

	host := "none, audio is copied locally"
	if h := m.selectedHost(); h.Key != "" {
		host = h.Title
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("Upload host: %s", host)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewBuilding() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Building stations..."))
	b.WriteString("\n\n")

	var percent float64
	if m.totalSongs > 0 {
		percent = float64(m.doneSongs) / float64(m.totalSongs)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")
	status := fmt.Sprintf("Songs: %d/%d", m.doneSongs, m.totalSongs)
	if m.sentBytes > 0 {
		status += fmt.Sprintf("  Uploaded: %.1f MB", float64(m.sentBytes)/(1<<20))
	}
	b.WriteString(infoStyle.Render(status))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var written, uploaded, local int
	if m.summary != nil {
		for _, r := range m.summary.Stations {
			written += r.Written
			uploaded += r.Uploaded
			local += r.Local
		}
	}

	stations, failed := 0, 0
	if m.summary != nil {
		stations, failed = len(m.summary.Stations), m.summary.Failed()
	}

	var b strings.Builder
	b.WriteString(boxStyle.Render(fmt.Sprintf(
		"Build Complete!\n\n"+
			"Stations: %d (%d failed)\n"+
			"Songs written: %d\n"+
			"Uploaded: %d | Local: %d",
		stations, failed, written, uploaded, local,
	)))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "-"
		switch log.Level {
		case convert.LevelError:
			style = errorStyle
			prefix = "x"
		case convert.LevelWarning:
			style = warningStyle
			prefix = "!"
		case convert.LevelSuccess:
			style = successStyle
			prefix = "+"
		case convert.LevelInfo:
			style = infoStyle
			prefix = ">"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateHost:
		return "up/down or 0-4: choose | enter: next | v: verbose | esc: quit"
	case StateUserHash, StateInput:
		return "enter: next | esc: back"
	case StateBuilding:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new build | q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run(settings *config.Settings, log zerolog.Logger) error {
	p := tea.NewProgram(NewModel(settings, log), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
