package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	onStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	paneStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	dialogStyle = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).Padding(1, 3)
	okStyle     = dialogStyle.BorderForeground(lipgloss.Color("42"))
	errStyle    = dialogStyle.BorderForeground(lipgloss.Color("196"))
)

// listWidth is the width of the file list pane when shown.
const listWidth = 34

// layout sizes the log viewport to fill what the other panes leave.
func (m *uiModel) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	w := m.width - 4
	if m.showList {
		w -= listWidth + 4
	}
	// title, input, options, progress, status, help and the pane borders
	h := m.height - 10

	m.viewport.Width = max(w, 10)
	m.viewport.Height = max(h, 3)
}

func (m uiModel) View() string {
	if m.notice != nil {
		return m.dialog()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("capname: caption & rename PNG images"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.optionsLine())
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.tracker.Percent()))
	b.WriteString(fmt.Sprintf("  %d/%d", m.tracker.Done, m.tracker.Total))
	b.WriteString("\n")

	logPane := paneStyle.Render(m.viewport.View())
	if m.showList {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, logPane, m.fileList()))
	} else {
		b.WriteString(logPane)
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("status: ") + m.status)
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m uiModel) optionsLine() string {
	dry := offStyle.Render("[ ] dry run")
	if m.dryRun {
		dry = onStyle.Render("[x] dry run")
	}
	dir := m.dir
	if dir == "" {
		dir = "(none)"
	}
	return dry + labelStyle.Render("   selected: ") + dir
}

func (m uiModel) fileList() string {
	rows := []string{labelStyle.Render(fmt.Sprintf("%d PNG files", len(m.files)))}
	limit := max(m.viewport.Height-1, 1)
	for i, name := range m.files {
		if i == limit {
			rows = append(rows, labelStyle.Render(fmt.Sprintf("... %d more", len(m.files)-limit)))
			break
		}
		rows = append(rows, truncate(name, listWidth))
	}
	return paneStyle.Width(listWidth).Render(strings.Join(rows, "\n"))
}

func (m uiModel) dialog() string {
	style := errStyle
	if m.notice.Success {
		style = okStyle
	}
	body := titleStyle.Render(m.notice.Title) + "\n\n" + m.notice.Message + "\n\n" + labelStyle.Render("press enter to dismiss")
	box := style.Render(body)
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
