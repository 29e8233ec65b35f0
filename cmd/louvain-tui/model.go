package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-louvain/pkg/snapshot"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	levelsView view = iota
	clustersView
	searchView
	viewCount
)

var tabNames = []string{"Levels", "Clusters", "Search"}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open level / search"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Enter},
		{k.Up, k.Down},
		{k.Quit},
	}
}

type model struct {
	snap         *snapshot.Snapshot
	currentView  view
	level        int // level shown in the clusters view
	levelTable   table.Model
	clusterTable table.Model
	searchInput  textinput.Model
	help         help.Model
	keys         keyMap
	width        int
	message      string
	messageErr   bool
	lookup       []string
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func newModel(snap *snapshot.Snapshot) model {
	ti := textinput.New()
	ti.Placeholder = "node id or name"
	ti.CharLimit = 200
	ti.Width = 40

	m := model{
		snap:        snap,
		currentView: levelsView,
		level:       snap.Result.BestLevel,
		levelTable: newTable([]table.Column{
			{Title: "Level", Width: 6},
			{Title: "Modularity", Width: 12},
			{Title: "Nodes", Width: 8},
			{Title: "K", Width: 8},
			{Title: "Passes", Width: 7},
			{Title: "Moves", Width: 8},
			{Title: "", Width: 4},
		}),
		clusterTable: newTable([]table.Column{
			{Title: "Cluster", Width: 8},
			{Title: "Size", Width: 8},
			{Title: "Members", Width: 60},
		}),
		searchInput: ti,
		help:        help.New(),
		keys:        keys,
	}

	rows := make([]table.Row, len(snap.Result.Levels))
	for i, lv := range snap.Result.Levels {
		marker := ""
		if i == snap.Result.BestLevel {
			marker = "best"
		}
		rows[i] = table.Row{
			strconv.Itoa(lv.Level),
			fmt.Sprintf("%.6f", lv.Modularity),
			strconv.Itoa(lv.NodeCount),
			strconv.Itoa(lv.CommunityCount),
			strconv.Itoa(lv.Passes),
			strconv.Itoa(lv.Moves),
			marker,
		}
	}
	m.levelTable.SetRows(rows)
	m.levelTable.SetCursor(snap.Result.BestLevel)
	m.clusterTable.SetRows(m.clusterRows(m.level))
	return m
}

func (m model) name(node int) string {
	if node < len(m.snap.Names) {
		return m.snap.Names[node]
	}
	return strconv.Itoa(node)
}

// clusterRows groups a level's membership into one row per community.
func (m model) clusterRows(level int) []table.Row {
	membership := m.snap.Result.Levels[level].Membership
	groups := make([][]string, 0)
	for node, c := range membership {
		for c >= len(groups) {
			groups = append(groups, nil)
		}
		groups[c] = append(groups[c], m.name(node))
	}

	rows := make([]table.Row, len(groups))
	for c, members := range groups {
		rows[c] = table.Row{strconv.Itoa(c), strconv.Itoa(len(members)), strings.Join(members, " ")}
	}
	return rows
}

// find resolves a node by name first, then by id.
func (m model) find(query string) (int, bool) {
	for i, n := range m.snap.Names {
		if n == query {
			return i, true
		}
	}
	id, err := strconv.Atoi(query)
	if err != nil || id < 0 || id >= m.snap.Nodes {
		return 0, false
	}
	return id, true
}

func (m *model) search() {
	query := strings.TrimSpace(m.searchInput.Value())
	node, ok := m.find(query)
	if !ok {
		m.message = fmt.Sprintf("no node %q", query)
		m.messageErr = true
		m.lookup = nil
		return
	}

	m.lookup = make([]string, len(m.snap.Result.Levels))
	for i, lv := range m.snap.Result.Levels {
		m.lookup[i] = fmt.Sprintf("level %d: cluster %d", lv.Level, lv.Membership[node])
	}
	m.message = fmt.Sprintf("node %s", m.name(node))
	m.messageErr = false
}

func (m *model) setView(v view) {
	m.currentView = v
	if v == searchView {
		m.searchInput.Focus()
	} else {
		m.searchInput.Blur()
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.setView((m.currentView + 1) % viewCount)
			return m, nil

		case key.Matches(msg, m.keys.ShiftTab):
			m.setView((m.currentView + viewCount - 1) % viewCount)
			return m, nil

		case key.Matches(msg, m.keys.Enter):
			switch m.currentView {
			case levelsView:
				m.level = m.levelTable.Cursor()
				m.clusterTable.SetRows(m.clusterRows(m.level))
				m.clusterTable.SetCursor(0)
				m.setView(clustersView)
			case searchView:
				m.search()
			}
			return m, nil
		}
	}

	switch m.currentView {
	case levelsView:
		m.levelTable, cmd = m.levelTable.Update(msg)
	case clustersView:
		m.clusterTable, cmd = m.clusterTable.Update(msg)
	case searchView:
		m.searchInput, cmd = m.searchInput.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Louvain run " + m.snap.RunID.String()))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case levelsView:
		s.WriteString(contentStyle.Render(m.renderStats() + "\n\n" + m.levelTable.View()))
	case clustersView:
		header := fmt.Sprintf("Level %d, %d clusters", m.level, m.snap.Result.Levels[m.level].CommunityCount)
		s.WriteString(contentStyle.Render(header + "\n\n" + m.clusterTable.View()))
	case searchView:
		s.WriteString(contentStyle.Render(m.searchInput.View() + "\n\n" + strings.Join(m.lookup, "\n")))
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(contentStyle.Render(errorStyle.Render(m.message)))
		} else {
			s.WriteString(contentStyle.Render(m.message))
		}
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m model) renderTabs() string {
	rendered := make([]string, len(tabNames))
	for i, tab := range tabNames {
		if view(i) == m.currentView {
			rendered[i] = activeTabStyle.Render(tab)
		} else {
			rendered[i] = inactiveTabStyle.Render(tab)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m model) renderStats() string {
	r := m.snap.Result
	return statsBoxStyle.Render(fmt.Sprintf(
		"Nodes: %d   Edges: %d   Levels: %d\nBest level: %d   Modularity: %.6f\nFingerprint: %.16s",
		m.snap.Nodes, m.snap.Edges, len(r.Levels), r.BestLevel, r.BestModularity, m.snap.Fingerprint))
}
