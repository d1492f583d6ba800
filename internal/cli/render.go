package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"dailybudget/internal/allocation"
	"dailybudget/internal/core"
	"dailybudget/internal/services"
)

// Theme colors
var (
	ColorBorder    = lipgloss.Color("#575653")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorText)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(ColorText)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorTextMuted)
	goodStyle   = lipgloss.NewStyle().Foreground(ColorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorOrange)
	badStyle    = lipgloss.NewStyle().Foreground(ColorRed)
	dimStyle    = lipgloss.NewStyle().Foreground(ColorBorder)
)

// Cell is a table cell with an optional style. A zero Style renders plain.
type Cell struct {
	Text  string
	Style *lipgloss.Style
}

// Table is a bordered text table. The first column is left aligned, the
// others right aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]Cell
}

// RenderTitle renders a title in a rounded box.
func RenderTitle(title string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1).
		Render(titleStyle.Render(title))
}

// RenderTable renders t with box-drawing borders.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	for _, row := range t.Rows {
		numCols = max(numCols, len(row))
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell.Text))
		}
	}

	rule := func(left, mid, right string) string {
		parts := make([]string, numCols)
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		return dimStyle.Render(left+strings.Join(parts, mid)+right) + "\n"
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}
	b.WriteString(rule("╭", "┬", "╮"))

	sep := dimStyle.Render("│")
	if len(t.Headers) > 0 {
		b.WriteString(sep)
		for i := 0; i < numCols; i++ {
			h := ""
			if i < len(t.Headers) {
				h = t.Headers[i]
			}
			b.WriteString(headerStyle.Render(pad(h, widths[i], i == 0)))
			b.WriteString(sep)
		}
		b.WriteString("\n")
		b.WriteString(rule("├", "┼", "┤"))
	}

	for _, row := range t.Rows {
		b.WriteString(sep)
		for i := 0; i < numCols; i++ {
			cell := Cell{}
			if i < len(row) {
				cell = row[i]
			}
			style := valueStyle
			if cell.Style != nil {
				style = *cell.Style
			}
			b.WriteString(style.Render(pad(cell.Text, widths[i], i == 0)))
			b.WriteString(sep)
		}
		b.WriteString("\n")
	}

	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}

func pad(s string, width int, left bool) string {
	gap := strings.Repeat(" ", max(0, width-lipgloss.Width(s)))
	if left {
		return " " + s + gap + " "
	}
	return " " + gap + s + " "
}

// RenderPeriod renders the per-day allocation of a view followed by its summary.
// Negative allowances and overspent days are shown in red.
func RenderPeriod(v services.View) string {
	var b strings.Builder
	b.WriteString(RenderTitle(fmt.Sprintf("Budget %s  ·  %s  ·  target %s/day",
		v.Ledger.Config.Key, strings.ToUpper(v.Policy), core.FormatAmount(v.Ledger.Config.BaseDailyTarget))))
	b.WriteString("\n")

	rows := make([][]Cell, 0, len(v.Results))
	for _, r := range v.Results {
		rows = append(rows, dayRow(r))
	}
	b.WriteString(RenderTable(Table{
		Headers: []string{"Day", "Allowance", "Spent", "Remaining", "Status"},
		Rows:    rows,
	}))
	b.WriteString(RenderSummary(v.Summary))
	return b.String()
}

func dayRow(r allocation.Result) []Cell {
	allowance := Cell{Text: core.FormatAmount(r.Allowance)}
	if r.Allowance.IsNegative() {
		allowance.Style = &badStyle
	}

	remaining := Cell{Text: core.FormatAmount(r.Remaining)}
	status := Cell{Text: "open", Style: &mutedStyle}
	switch {
	case r.Critical():
		remaining.Style = &badStyle
		status = Cell{Text: "over", Style: &badStyle}
	case r.Locked:
		remaining.Style = &goodStyle
		status = Cell{Text: "locked", Style: &goodStyle}
	}

	spent := Cell{Text: "-", Style: &mutedStyle}
	if r.Locked {
		spent = Cell{Text: core.FormatAmount(r.Spent)}
	}

	return []Cell{
		{Text: fmt.Sprintf("%2d", r.Day)},
		allowance,
		spent,
		remaining,
		status,
	}
}

// RenderSummary renders the period totals as a two-column table.
func RenderSummary(s allocation.Summary) string {
	balance := Cell{Text: core.FormatAmount(s.TotalBalance), Style: &goodStyle}
	if s.IsOverBudget {
		balance.Style = &badStyle
	}
	projected := Cell{Text: core.FormatAmount(s.Projected)}
	if s.Projected.GreaterThan(s.TotalBudget) {
		projected.Style = &warnStyle
	}
	daily := Cell{Text: core.FormatAmount(s.CurrentDailyAllowance)}
	if s.CurrentDailyAllowance.IsNegative() {
		daily.Style = &badStyle
	}

	return RenderTable(Table{
		Title: "Summary",
		Rows: [][]Cell{
			{{Text: "Total budget"}, {Text: core.FormatAmount(s.TotalBudget)}},
			{{Text: "Spent"}, {Text: core.FormatAmount(s.TotalSpent)}},
			{{Text: "Balance"}, balance},
			{{Text: "Daily allowance"}, daily},
			{{Text: "Projected"}, projected},
			{{Text: "Used"}, {Text: s.UsedPercent.StringFixed(1) + "%"}},
			{{Text: "Days locked / open"}, {Text: fmt.Sprintf("%d / %d", s.LockedDays, s.UnlockedDays)}},
		},
	})
}

// RenderPolicies lists the policies, marking the default one.
func RenderPolicies(names []string, def string) string {
	var b strings.Builder
	for _, n := range names {
		if n == def {
			b.WriteString(valueStyle.Render("* " + n))
			b.WriteString(mutedStyle.Render(" (default)"))
		} else {
			b.WriteString(valueStyle.Render("  " + n))
		}
		b.WriteString("\n")
	}
	return b.String()
}
