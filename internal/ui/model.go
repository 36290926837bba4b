package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lookout/internal/prefs"
	"github.com/five82/lookout/internal/state"
)

// Control is the subset of the sync engine the dashboard drives.
type Control interface {
	Connect()
	Disconnect()
	Reconcile()
	Acknowledge()
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *state.Store
	Control   Control
	Endpoint  string // shown in the header
	ThemeName string
	Panel     prefs.Panel
	PrefsPath string
	ClockTick time.Duration // countdown refresh; default 1s
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	store     *state.Store
	control   Control
	endpoint  string
	prefsPath string
	clockTick time.Duration

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	theme   Theme
	panel   prefs.Panel

	width  int
	height int
	ready  bool

	snapshot   state.Snapshot
	now        time.Time
	sessionIDs []string
	sessions   table.Model
	lower      viewport.Model
	changes    <-chan struct{}
	notice     string
}

// New creates the dashboard model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	clockTick := opts.ClockTick
	if clockTick <= 0 {
		clockTick = time.Second
	}
	panel := opts.Panel
	if panel != prefs.PanelEvents {
		panel = prefs.PanelFiles
	}

	sessions := table.New(
		table.WithColumns(sessionColumns(80)),
		table.WithFocused(true),
	)

	m := Model{
		ctx:       ctx,
		store:     opts.Store,
		control:   opts.Control,
		endpoint:  opts.Endpoint,
		prefsPath: opts.PrefsPath,
		clockTick: clockTick,
		keys:      defaultKeyMap(),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:     GetTheme(opts.ThemeName),
		panel:     panel,
		now:       time.Now(),
		sessions:  sessions,
		lower:     viewport.New(80, 10),
	}
	m.applyTheme()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.clockTick), m.spinner.Tick}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.changes != nil {
		cmds = append(cmds, waitForChangeCmd(m.changes, m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		m.refresh()
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd(m.clockTick)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.refresh()
		return m, nil

	case changeMsg:
		m.snapshot = msg.snapshot
		m.refresh()
		return m, waitForChangeCmd(m.changes, m.store)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.applyTheme()
		m.savePrefs()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.TogglePane):
		if m.panel == prefs.PanelFiles {
			m.panel = prefs.PanelEvents
		} else {
			m.panel = prefs.PanelFiles
		}
		m.savePrefs()
		m.refreshLower()
		return m, nil

	case key.Matches(msg, m.keys.Reconcile):
		if m.control != nil {
			m.control.Reconcile()
		}
		return m, nil

	case key.Matches(msg, m.keys.Connect):
		if m.control != nil {
			m.control.Connect()
		}
		return m, nil

	case key.Matches(msg, m.keys.Disconnect):
		if m.control != nil {
			m.control.Disconnect()
		}
		return m, nil

	case key.Matches(msg, m.keys.Acknowledge):
		if m.control != nil && m.snapshot.AppError != nil {
			m.control.Acknowledge()
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.lower, cmd = m.lower.Update(msg)
		return m, cmd
	}

	before := m.sessions.Cursor()
	var cmd tea.Cmd
	m.sessions, cmd = m.sessions.Update(msg)
	if m.sessions.Cursor() != before {
		m.refreshLower()
		m.lower.GotoTop()
	}
	return m, cmd
}

func (m *Model) savePrefs() {
	m.notice = ""
	if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, Panel: m.panel}); err != nil {
		m.notice = "save preferences: " + err.Error()
	}
}

// selectedSession returns the id under the table cursor.
func (m Model) selectedSession() string {
	i := m.sessions.Cursor()
	if i < 0 || i >= len(m.sessionIDs) {
		return ""
	}
	return m.sessionIDs[i]
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type changeMsg struct{ snapshot state.Snapshot }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// waitForChangeCmd blocks until the store publishes, then hands the fresh
// snapshot to Update. A closed channel ends the chain.
func waitForChangeCmd(changes <-chan struct{}, store *state.Store) tea.Cmd {
	if changes == nil || store == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changeMsg{snapshot: store.Snapshot()}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	if opts.Store == nil {
		return errors.New("ui requires a data store")
	}
	m := New(opts)
	changes, cancel := opts.Store.Subscribe()
	defer cancel()
	m.changes = changes

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
