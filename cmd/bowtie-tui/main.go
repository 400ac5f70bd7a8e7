package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ecorisk/bowtie/pkg/bowtie"
	"github.com/ecorisk/bowtie/pkg/risk"
	"github.com/ecorisk/bowtie/pkg/tabular"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#9370DB")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2E8B57")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	summaryBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2E8B57")).
			Padding(1, 2).
			MarginLeft(2).
			MarginTop(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)

	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
)

type view int

const (
	rowsView view = iota
	summaryView
)

type keyMap struct {
	Tab  key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch view"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type model struct {
	data *bowtie.Table
	view view
	rows table.Model
	path string
}

func levelStyle(level risk.Level) lipgloss.Style {
	switch level {
	case risk.High:
		return highStyle
	case risk.Medium:
		return mediumStyle
	default:
		return lowStyle
	}
}

func newModel(data *bowtie.Table, path string) model {
	columns := []table.Column{
		{Title: "Activity", Width: 22},
		{Title: "Pressure", Width: 22},
		{Title: "Consequence", Width: 22},
		{Title: "L", Width: 3},
		{Title: "S", Width: 3},
		{Title: "Risk", Width: 8},
	}

	rows := make([]table.Row, 0, len(data.Rows))
	for _, r := range data.Rows {
		rows = append(rows, table.Row{
			r.Activity,
			r.Pressure,
			r.Consequence,
			fmt.Sprintf("%d", r.Likelihood),
			fmt.Sprintf("%d", r.Severity),
			levelStyle(r.RiskLevel).Render(r.RiskLevel.String()),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("#2E8B57"))
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#4169E1"))
	t.SetStyles(styles)

	return model{data: data, rows: t, path: path}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Tab):
			if m.view == rowsView {
				m.view = summaryView
			} else {
				m.view = rowsView
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.rows, cmd = m.rows.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b []string
	b = append(b, titleStyle.Render("Bowtie Risk Explorer — "+m.path))
	b = append(b, m.tabBar())

	switch m.view {
	case rowsView:
		b = append(b, lipgloss.NewStyle().MarginLeft(2).Render(m.rows.View()))
	case summaryView:
		b = append(b, m.summaryView())
	}

	b = append(b, helpStyle.Render("tab: switch view • ↑/↓: scroll • q: quit"))
	return lipgloss.JoinVertical(lipgloss.Left, b...)
}

func (m model) tabBar() string {
	tabs := []string{"Rows", "Summary"}
	rendered := make([]string, len(tabs))
	for i, tab := range tabs {
		if view(i) == m.view {
			rendered[i] = activeTabStyle.Render(tab)
		} else {
			rendered[i] = inactiveTabStyle.Render(tab)
		}
	}
	return lipgloss.NewStyle().MarginLeft(2).MarginTop(1).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
}

func (m model) summaryView() string {
	summary := m.data.Summarize()

	lines := []string{
		fmt.Sprintf("Rows: %d", summary.Rows),
		"",
		lowStyle.Render(fmt.Sprintf("Low     %d", summary.ByLevel[risk.Low.String()])),
		mediumStyle.Render(fmt.Sprintf("Medium  %d", summary.ByLevel[risk.Medium.String()])),
		highStyle.Render(fmt.Sprintf("High    %d", summary.ByLevel[risk.High.String()])),
		"",
		"Central problems:",
	}
	for _, problem := range summary.Problems {
		lines = append(lines, "  • "+problem)
	}

	return summaryBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func main() {
	in := flag.String("in", "", "Assessment CSV to explore")
	flag.Parse()

	if *in == "" {
		fmt.Println("Usage: bowtie-tui --in assessment.csv")
		os.Exit(1)
	}

	f, err := os.Open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open table: %v\n", err)
		os.Exit(1)
	}
	data, err := tabular.Read(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read table: %v\n", err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(newModel(data, *in)).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
		os.Exit(1)
	}
}
