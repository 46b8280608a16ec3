package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type theme struct {
	inputPanel lipgloss.Style
	pane       lipgloss.Style
	paneTitle  lipgloss.Style
	status     lipgloss.Style
	help       lipgloss.Style
	empty      lipgloss.Style
}

func newTheme() theme {
	border := lipgloss.Color("240")
	accent := lipgloss.Color("39")
	muted := lipgloss.Color("243")

	return theme{
		inputPanel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		paneTitle: lipgloss.NewStyle().Foreground(accent).Bold(true),
		status:    lipgloss.NewStyle().Foreground(accent),
		help:      lipgloss.NewStyle().Foreground(muted),
		empty:     lipgloss.NewStyle().Foreground(muted).Italic(true),
	}
}

const helpLine = "enter run · ↑/↓ history · ctrl+u clear · esc quit"

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width <= 0 {
		width = 80
	}
	innerWidth := max(width-4, 20)

	// Fixed chrome: input box (3 rows), two pane borders (2 each), two
	// pane titles, status line. The rest splits between the panes.
	paneLines := 8
	if m.height > 0 {
		paneLines = max((m.height-12)/2, 3)
	}

	input := m.theme.inputPanel.Width(innerWidth).Render(m.input.View())

	stdout := m.renderPane("stdout", m.sess.StdoutView(paneLines), "(output will appear here)", innerWidth, paneLines)
	stderr := m.renderPane("stderr", m.sess.StderrView(paneLines), "<no stderr>", innerWidth, paneLines)

	status := m.theme.status.Render(m.sess.Status())
	if status == "" {
		status = m.theme.help.Render("idle")
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		input,
		stdout,
		stderr,
		status,
		m.theme.help.Render(helpLine),
	)
}

func (m Model) renderPane(title string, lines []string, placeholder string, width, height int) string {
	var body string
	if len(lines) == 0 {
		body = m.theme.empty.Render(placeholder)
	} else {
		clipped := make([]string, len(lines))
		for i, line := range lines {
			clipped[i] = truncateLine(line, width-2)
		}
		body = strings.Join(clipped, "\n")
	}

	pane := m.theme.pane.Width(width).Height(height).Render(body)
	return m.theme.paneTitle.Render(title) + "\n" + pane
}

// truncateLine clips a rendered line to the pane width. Rune-based, which
// is close enough for monospace terminal content.
func truncateLine(line string, width int) string {
	if width <= 0 {
		return line
	}
	runes := []rune(line)
	if len(runes) <= width {
		return line
	}
	return string(runes[:width-1]) + "…"
}
