package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/schaermu/savesyncd/internal/reconcile"
	"github.com/schaermu/savesyncd/internal/state"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dirStyle     = lipgloss.NewStyle().Faint(true)
	letterStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	syncedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	ageStyle     = lipgloss.NewStyle().Faint(true)
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	eventStyle   = lipgloss.NewStyle().Faint(true)
)

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("savesyncd"))
	b.WriteString("\n")
	b.WriteString(dirStyle.Render("save:   " + m.saveDir))
	b.WriteString("\n")
	b.WriteString(dirStyle.Render("backup: " + m.backupDir))
	b.WriteString("\n\n")

	if len(m.state) == 0 {
		b.WriteString(dirStyle.Render("no saves found"))
		b.WriteString("\n")
	}
	for i, record := range m.state {
		b.WriteString(m.renderRecord(i, record))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if line := m.renderPending(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.lastErr != nil {
		b.WriteString(errorStyle.Render("error: " + m.lastErr.Error()))
		b.WriteString("\n")
	}
	if m.recorder != nil {
		recorded := m.recorder.Events()
		if len(recorded) > recentEvents {
			recorded = recorded[len(recorded)-recentEvents:]
		}
		for _, e := range recorded {
			b.WriteString(eventStyle.Render(e.String()))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.help.View(modeKeys{keys: m.keys, pending: m.pending}))
	b.WriteString("\n")
	return b.String()
}

// renderRecord renders one line: letter, status code, arrows, name and age.
func (m Model) renderRecord(i int, record state.Record) string {
	letter := " "
	if r, ok := reconcile.Letter(i); ok {
		letter = string(r)
	}

	status := record.Code() + " " + record.Arrows()
	if _, ok := record.(state.Synced); ok {
		status = syncedStyle.Render(status)
	} else {
		status = pendingStyle.Render(status)
	}

	age := humanize.RelTime(record.Recency(), m.now(), "ago", "from now")

	return fmt.Sprintf("%s) %s %s  %s",
		letterStyle.Render(letter),
		status,
		record.Name(),
		ageStyle.Render(age))
}

func (m Model) renderPending() string {
	switch p := m.pending.(type) {
	case reconcile.NotDeleting:
		return ""
	case reconcile.AwaitingIndex:
		line := promptStyle.Render("delete which save? press its letter, esc to cancel")
		if m.notice != "" {
			line += "  " + errorStyle.Render(m.notice)
		}
		return line
	case reconcile.Delete:
		name := "?"
		if record, ok := m.picked.At(p.Index); ok {
			name = record.Name()
		}
		letter, _ := reconcile.Letter(p.Index)
		return promptStyle.Render(fmt.Sprintf("deleting %c) %s, esc to cancel", letter, name))
	default:
		panic(fmt.Sprintf("tui: unknown delete state %T", m.pending))
	}
}
