package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lookout/internal/api"
	"github.com/five82/lookout/internal/prefs"
	"github.com/five82/lookout/internal/state"
)

const (
	headerHeight = 1
	minTableRows = 3
	panelChrome  = 2 // top and bottom border
)

func sessionColumns(width int) []table.Column {
	fixed := 12 + 9 + 12 + 19
	name := max(width-fixed-10, 16)
	return []table.Column{
		{Title: "Session", Width: name},
		{Title: "Status", Width: 12},
		{Title: "Files", Width: 9},
		{Title: "Primary", Width: 12},
		{Title: "Discovered", Width: 19},
	}
}

func (m *Model) applyTheme() {
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(m.theme.BorderMuted)).
		BorderBottom(true).
		Foreground(lipgloss.Color(m.theme.Muted)).
		Bold(true)
	st.Cell = st.Cell.Foreground(lipgloss.Color(m.theme.Text))
	st.Selected = st.Selected.
		Foreground(lipgloss.Color(m.theme.SelectionText)).
		Background(lipgloss.Color(m.theme.SelectionBg)).
		Bold(false)
	m.sessions.SetStyles(st)
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
	m.help.Styles.ShortKey = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
	m.help.Styles.ShortDesc = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Muted))
	m.help.Styles.FullKey = m.help.Styles.ShortKey
	m.help.Styles.FullDesc = m.help.Styles.ShortDesc
}

// layout splits the screen between the sessions table and the lower pane.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	inner := max(m.width-panelChrome, 20)
	m.help.Width = m.width

	footer := lipgloss.Height(m.renderFooter())
	banner := 0
	if m.bannerText() != "" {
		banner = 1
	}
	body := max(m.height-headerHeight-banner-footer, 2*(minTableRows+panelChrome))

	tableHeight := max(body*2/5-panelChrome, minTableRows)
	lowerHeight := max(body-tableHeight-2*panelChrome, minTableRows)

	m.sessions.SetColumns(sessionColumns(inner))
	m.sessions.SetWidth(inner)
	m.sessions.SetHeight(tableHeight)
	m.lower.Width = inner
	m.lower.Height = lowerHeight
}

// refresh rebuilds table rows and the lower pane from the snapshot.
func (m *Model) refresh() {
	sessions := m.snapshot.Cache.SortedSessions()
	selected := m.selectedSession()

	rows := make([]table.Row, 0, len(sessions))
	m.sessionIDs = m.sessionIDs[:0]
	cursor := 0
	for i, s := range sessions {
		files := m.snapshot.Cache.SessionFiles(s.ID)
		name := s.Name
		if name == "" {
			name = s.ID
		}
		discovered := "-"
		if t := s.ParsedDiscoveredAt(); !t.IsZero() {
			discovered = t.Local().Format("2006-01-02 15:04:05")
		}
		primary := string(s.PrimaryFileState)
		if primary == "" {
			primary = "-"
		}
		status := s.Status
		if status == "" {
			status = "-"
		}
		rows = append(rows, table.Row{name, status, sessionProgress(s, files), primary, discovered})
		m.sessionIDs = append(m.sessionIDs, s.ID)
		if s.ID == selected {
			cursor = i
		}
	}
	m.sessions.SetRows(rows)
	if len(rows) > 0 {
		m.sessions.SetCursor(cursor)
	}
	m.layout()
	m.refreshLower()
}

func (m *Model) refreshLower() {
	if m.panel == prefs.PanelEvents {
		atBottom := m.lower.AtBottom()
		m.lower.SetContent(m.eventsContent())
		if atBottom {
			m.lower.GotoBottom()
		}
		return
	}
	m.lower.SetContent(m.filesContent())
}

func (m Model) filesContent() string {
	styles := m.theme.Styles()
	id := m.selectedSession()
	if id == "" {
		return styles.MutedText.Render("No sessions yet.")
	}
	files := m.snapshot.Cache.SessionFiles(id)
	if len(files) == 0 {
		return styles.MutedText.Render("No files reported for this session.")
	}

	width := max(m.lower.Width, 40)
	nameWidth := max(width/3, 16)
	var b strings.Builder
	for i, f := range files {
		if i > 0 {
			b.WriteByte('\n')
		}
		name := f.Name
		if name == "" {
			name = f.Path
		}
		if name == "" {
			name = f.ID
		}
		badge := styles.StatusStyle(string(f.State)).Render(fileStateLabel(f.State))
		b.WriteString(badge)
		b.WriteByte(' ')
		b.WriteString(styles.Text.Render(fmt.Sprintf("%-*s", nameWidth, truncateMiddle(name, nameWidth))))
		b.WriteByte(' ')
		b.WriteString(styles.InfoText.Render(formatProgress(f)))
		if note := fileNote(f); note != "" {
			noteStyle := styles.MutedText
			if f.State == api.FileFailed || f.ErrorMessage != "" {
				noteStyle = styles.DangerText
			}
			b.WriteString("  ")
			b.WriteString(noteStyle.Render(truncate(note, max(width-nameWidth-30, 10))))
		}
	}
	return b.String()
}

func (m Model) eventsContent() string {
	styles := m.theme.Styles()
	if len(m.snapshot.Events) == 0 {
		return styles.MutedText.Render("No events received yet.")
	}
	width := max(m.lower.Width, 40)
	lines := make([]string, 0, len(m.snapshot.Events))
	for _, e := range m.snapshot.Events {
		lines = append(lines, styles.Text.Render(formatEvent(e, width)))
	}
	return strings.Join(lines, "\n")
}

func fileStateLabel(s api.FileState) string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}

func (m Model) renderMain() string {
	styles := m.theme.Styles()
	parts := []string{m.renderHeader()}
	if banner := m.renderBanner(); banner != "" {
		parts = append(parts, banner)
	}

	panel := styles.Panel.Width(max(m.width-panelChrome, 20))
	parts = append(parts,
		panel.Render(m.sessions.View()),
		panel.BorderForeground(lipgloss.Color(m.theme.BorderFocus)).Render(m.lower.View()),
		m.renderFooter(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)
	snap := m.snapshot

	conn := connectionLabel(snap.Connection, m.now)
	if s := snap.Connection.State; s == state.Connecting || s == state.Reconnecting {
		conn = m.spinner.View() + " " + conn
	}
	parts := []string{
		bg.Render("lookout", styles.Logo),
		bg.Render(conn, styles.ConnectionStyle(snap.Connection.State)),
		bg.Render(truncateMiddle(m.endpoint, 40), styles.FaintText),
		bg.Render(fmt.Sprintf("%d sessions · %d files", len(snap.Cache.Sessions), snap.Cache.FileTotal()), styles.Text),
		bg.Render(workerSummary(snap.Cache.Workers), styles.MutedText),
	}
	if snap.Reconciling {
		parts = append(parts, bg.Render("refetching", styles.InfoText))
	} else if snap.ReconcileError != nil {
		parts = append(parts, bg.Render("refetch failed", styles.DangerText))
	} else if !snap.LastReconciled.IsZero() {
		parts = append(parts, bg.Render("synced "+humanizeDuration(m.now.Sub(snap.LastReconciled))+" ago", styles.MutedText))
	}
	if snap.MessageErrors > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d malformed", snap.MessageErrors), styles.WarningText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, sep))
}

func (m Model) bannerText() string {
	if e := m.snapshot.AppError; e != nil {
		text := e.Message
		if e.Type != "" {
			text = e.Type + ": " + text
		}
		if e.RequiresAck {
			text += " (press a to acknowledge)"
		}
		return text
	}
	if m.notice != "" {
		return m.notice
	}
	if m.snapshot.Connection.State == state.ClosedTerminal && m.snapshot.Connection.LastError != "" {
		return "stream: " + m.snapshot.Connection.LastError
	}
	return ""
}

// renderBanner shows the visible application error, if any.
func (m Model) renderBanner() string {
	text := m.bannerText()
	if text == "" {
		return ""
	}
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Background)).
		Background(lipgloss.Color(m.theme.Warning)).
		Padding(0, 1).
		Width(m.width)
	if e := m.snapshot.AppError; e != nil && e.RequiresAck {
		style = style.Background(lipgloss.Color(m.theme.Danger)).Bold(true)
	}
	return style.Render(truncate(text, max(m.width-2, 1)))
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	panel := "files"
	if m.panel == prefs.PanelEvents {
		panel = "events"
	}
	line := styles.MutedText.Render(panel+" · "+m.theme.Name) + "  " + m.help.View(m.keys)
	return styles.Footer.Width(m.width).Render(line)
}
