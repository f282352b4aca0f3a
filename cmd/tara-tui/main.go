package main

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dd0wney/cluso-tara/pkg/exchange"
	"github.com/dd0wney/cluso-tara/pkg/model"
	"github.com/dd0wney/cluso-tara/pkg/risk"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	treeBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#FFFF00")).
			Padding(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	criticalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	overviewView view = iota
	scenariosView
	treesView
	warningsView
)

const viewCount = 4

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Reload   key.Binding
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
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload file"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("up/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("down/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Reload, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Reload},
		{k.Up, k.Down},
		{k.Quit},
	}
}

type dashboard struct {
	path    string
	project *model.Project
	result  *risk.Result
	roots   []string

	currentView   view
	scenarioTable table.Model
	treeCursor    int
	help          help.Model
	keys          keyMap
	width         int
	height        int
	message       string
	messageErr    bool
}

func newScenarioTable() table.Model {
	columns := []table.Column{
		{Title: "Scenario", Width: 16},
		{Title: "Title", Width: 28},
		{Title: "Potential", Width: 11},
		{Title: "Feasibility", Width: 11},
		{Title: "Impact", Width: 9},
		{Title: "Risk", Width: 9},
	}

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

func initialDashboard(path string) (dashboard, error) {
	d := dashboard{
		path:          path,
		currentView:   overviewView,
		scenarioTable: newScenarioTable(),
		help:          help.New(),
		keys:          keys,
	}
	if err := d.load(); err != nil {
		return d, err
	}
	return d, nil
}

// load reimports the project file and recalculates it. Every figure the
// dashboard shows comes from the recalculated snapshot.
func (d *dashboard) load() error {
	result, err := exchange.ImportFile(d.path, nil)
	if err != nil {
		return err
	}

	recalc := risk.NewProjectRecalculator(nil)
	full, err := recalc.Recalculate(result.Project)
	if err != nil {
		return err
	}

	d.project = full.Project
	d.result = full

	d.roots = d.roots[:0]
	for id := range full.Trees {
		d.roots = append(d.roots, id)
	}
	sort.Strings(d.roots)
	if d.treeCursor >= len(d.roots) {
		d.treeCursor = 0
	}

	d.scenarioTable.SetRows(scenarioRows(full.Project))
	return nil
}

// scenarioRows orders scenarios worst risk first, matching the risk
// register reports.
func scenarioRows(p *model.Project) []table.Row {
	scenarios := append([]*model.ThreatScenario(nil), p.Scenarios...)
	sort.SliceStable(scenarios, func(i, j int) bool {
		return scenarios[i].Derived.Risk > scenarios[j].Derived.Risk
	})

	rows := make([]table.Row, 0, len(scenarios))
	for _, s := range scenarios {
		potential := "unreachable"
		if s.Derived.Potential.Reachable {
			potential = fmt.Sprintf("%d", s.Derived.Potential.Value)
		}
		rows = append(rows, table.Row{
			s.ID,
			s.Title,
			potential,
			s.Derived.Feasibility.String(),
			s.Derived.Impact.String(),
			s.Derived.Risk.String(),
		})
	}
	return rows
}

func (d dashboard) Init() tea.Cmd {
	return nil
}

func (d dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, d.keys.Quit):
			return d, tea.Quit

		case key.Matches(msg, d.keys.Tab):
			d.currentView = (d.currentView + 1) % viewCount

		case key.Matches(msg, d.keys.ShiftTab):
			if d.currentView == 0 {
				d.currentView = viewCount - 1
			} else {
				d.currentView--
			}

		case key.Matches(msg, d.keys.Reload):
			if err := d.load(); err != nil {
				d.message = fmt.Sprintf("Reload failed: %v", err)
				d.messageErr = true
			} else {
				d.message = fmt.Sprintf("Reloaded %s (%d warnings)", d.path, len(d.result.Warnings))
				d.messageErr = false
			}

		case key.Matches(msg, d.keys.Up):
			if d.currentView == treesView && d.treeCursor > 0 {
				d.treeCursor--
			}

		case key.Matches(msg, d.keys.Down):
			if d.currentView == treesView && d.treeCursor < len(d.roots)-1 {
				d.treeCursor++
			}
		}
	}

	if d.currentView == scenariosView {
		d.scenarioTable, cmd = d.scenarioTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return d, tea.Batch(cmds...)
}

func (d dashboard) View() string {
	if d.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Cluso TARA - Risk Dashboard"))
	s.WriteString("\n\n")
	s.WriteString(d.renderTabs())
	s.WriteString("\n\n")

	switch d.currentView {
	case overviewView:
		s.WriteString(d.renderOverview())
	case scenariosView:
		s.WriteString(d.renderScenarios())
	case treesView:
		s.WriteString(d.renderTrees())
	case warningsView:
		s.WriteString(d.renderWarnings())
	}

	if d.message != "" {
		s.WriteString("\n\n")
		if d.messageErr {
			s.WriteString(errorStyle.Render("x " + d.message))
		} else {
			s.WriteString(successStyle.Render("+ " + d.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(d.help.ShortHelpView(d.keys.ShortHelp())))

	return s.String()
}

func (d dashboard) renderTabs() string {
	tabs := []string{"Overview", "Scenarios", "Attack Trees", "Warnings"}
	var renderedTabs []string

	for i, tab := range tabs {
		if view(i) == d.currentView {
			renderedTabs = append(renderedTabs, activeTabStyle.Render(tab))
		} else {
			renderedTabs = append(renderedTabs, inactiveTabStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
}

func (d dashboard) renderOverview() string {
	stats := d.project.Stats()

	projectContent := fmt.Sprintf(`Project
---------------
ID:          %s
Title:       %s
Assets:      %d
Threats:     %d
Scenarios:   %d
Tree nodes:  %d
Damage:      %d`,
		d.project.ID,
		d.project.Title,
		stats.Assets,
		stats.Threats,
		stats.Scenarios,
		stats.Nodes,
		stats.DamageScenarios,
	)

	dist := risk.Distribution(d.project)
	var distLines []string
	for _, level := range []model.RiskLevel{model.RiskCritical, model.RiskHigh, model.RiskMedium, model.RiskLow, model.RiskVeryLow} {
		n := dist[level.String()]
		bar := strings.Repeat("#", n)
		distLines = append(distLines, fmt.Sprintf("%-9s %3d %s", level, n, bar))
	}

	riskContent := fmt.Sprintf(`Risk Levels
---------------
%s

Pass
---------------
Trees:       %d
Fallbacks:   %d
Unreachable: %d
Warnings:    %d`,
		strings.Join(distLines, "\n"),
		d.result.Stats.TreesEvaluated,
		d.result.Stats.ManualFallbacks,
		d.result.Stats.UnreachableTrees,
		d.result.Stats.Warnings,
	)

	projectBox := statsBoxStyle.Render(projectContent)
	riskBox := statsBoxStyle.Render(riskContent)

	return contentStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Top, projectBox, riskBox),
	)
}

func (d dashboard) renderScenarios() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Threat Scenario Risk Register"))
	s.WriteString("\n\n")
	s.WriteString(d.scenarioTable.View())
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Sorted worst risk first"))

	return contentStyle.Render(s.String())
}

func (d dashboard) renderTrees() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Attack Tree Inspector"))
	s.WriteString("\n\n")

	if len(d.roots) == 0 {
		s.WriteString("No attack trees in this project\n")
		return contentStyle.Render(s.String())
	}

	for i, rootID := range d.roots {
		marker := "  "
		if i == d.treeCursor {
			marker = "> "
		}
		agg := d.result.Trees[rootID]
		label := "unreachable"
		if agg.Potential.Reachable {
			label = fmt.Sprintf("potential %d", agg.Potential.Value)
		}
		s.WriteString(fmt.Sprintf("%s%s (%s)\n", marker, rootID, label))
	}
	s.WriteString("\n")

	s.WriteString(treeBoxStyle.Render(d.renderTree(d.roots[d.treeCursor])))

	return contentStyle.Render(s.String())
}

// renderTree draws one attack tree as indented text. Nodes on the
// cheapest attack path are highlighted; a visited set keeps cyclic
// links from looping the renderer.
func (d dashboard) renderTree(rootID string) string {
	nodes := d.project.NodeIndex()
	agg := d.result.Trees[rootID]

	critical := make(map[string]bool, len(agg.CriticalPath))
	for _, id := range agg.CriticalPath {
		critical[id] = true
	}

	var b strings.Builder
	var walk func(id string, depth int, visited map[string]bool)
	walk = func(id string, depth int, visited map[string]bool) {
		indent := strings.Repeat("  ", depth)
		node, ok := nodes[id]
		if !ok {
			b.WriteString(fmt.Sprintf("%s- %s (missing)\n", indent, id))
			return
		}
		if visited[id] {
			b.WriteString(fmt.Sprintf("%s- %s (cycle)\n", indent, id))
			return
		}
		visited[id] = true
		defer delete(visited, id)

		detail := ""
		if nodeAgg, ok := d.result.Nodes[id]; ok {
			if nodeAgg.Potential.Reachable {
				detail = fmt.Sprintf(" = %d", nodeAgg.Potential.Value)
			} else {
				detail = " = unreachable"
			}
		}
		gate := ""
		if node.Gate != model.GateNone {
			gate = fmt.Sprintf(" [%s]", node.Gate)
		}

		line := fmt.Sprintf("%s- %s: %s%s%s", indent, id, node.Title, gate, detail)
		if critical[id] {
			line = criticalStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")

		for _, child := range node.Links {
			walk(child, depth+1, visited)
		}
	}
	walk(rootID, 0, make(map[string]bool))

	return b.String()
}

func (d dashboard) renderWarnings() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Recalculation Warnings"))
	s.WriteString("\n\n")

	if len(d.result.Warnings) == 0 {
		s.WriteString(successStyle.Render("No warnings - the model is fully consistent"))
		return contentStyle.Render(s.String())
	}

	for _, w := range d.result.Warnings {
		s.WriteString(fmt.Sprintf("- %s\n", w))
	}

	return contentStyle.Render(s.String())
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: tara-tui <project-file>")
		os.Exit(1)
	}

	d, err := initialDashboard(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to load project: %v", err)
	}

	p := tea.NewProgram(d, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
