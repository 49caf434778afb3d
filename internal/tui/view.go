package tui

import (
	"fmt"
	"strings"
	"time"

	"taskManager/internal/board"
	"taskManager/internal/models/task"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	doneStyle     = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("8"))
	overdueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	formBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	priorityStyle = map[task.Priority]lipgloss.Style{
		task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		task.PriorityUrgent: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

func statusMark(s task.Status) string {
	switch s {
	case task.StatusCompleted:
		return "[x]"
	case task.StatusInProgress:
		return "[~]"
	default:
		return "[ ]"
	}
}

func optionLabel[T ~string](v *T) string {
	if v == nil {
		return "all"
	}
	return string(*v)
}

func (m Model) View() string {
	var b strings.Builder

	heading := "Tasks"
	if m.state.ShowDeleted {
		heading = fmt.Sprintf("Deleted tasks (%d)", len(m.state.Deleted))
	}
	if m.state.Loading {
		heading += " ..."
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n")

	stats := m.state.Stats()
	b.WriteString(statStyle.Render(fmt.Sprintf("total %d · pending %d · in progress %d · completed %d · deleted %d",
		stats.Total, stats.Pending, stats.InProgress, stats.Completed, len(m.state.Deleted))))
	b.WriteString("\n")

	c := m.state.Criteria
	b.WriteString(statStyle.Render(fmt.Sprintf("status: %s · category: %s · priority: %s",
		optionLabel(c.Status), optionLabel(c.Category), optionLabel(c.Priority))))
	b.WriteString("\n")

	if m.mode == modeSearch {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	} else if c.SearchTerm != "" {
		b.WriteString(statStyle.Render("search: " + c.SearchTerm))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString(statStyle.Render("  no tasks"))
		b.WriteString("\n")
	}
	now := m.now()
	for i, r := range m.rows {
		b.WriteString(m.renderRow(i, r, now))
		b.WriteString("\n")
	}

	if m.mode == modeForm {
		b.WriteString("\n")
		b.WriteString(m.renderForm())
		b.WriteString("\n")
	}

	if m.mode == modeConfirmDelete {
		if t, ok := m.selected(); ok {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Delete %q? (y/n)", t.Title)))
			b.WriteString("\n")
		}
	}

	if n := m.state.Notice; n != nil {
		style := successStyle
		if n.Kind == board.NoticeError {
			style = errorStyle
		}
		b.WriteString("\n")
		b.WriteString(style.Render(n.Text))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) renderRow(i int, r row, now time.Time) string {
	t := r.task

	prefix := "  "
	if i == m.cursor {
		prefix = cursorStyle.Render("> ")
	}

	indent := ""
	if r.sub {
		indent = "    └ "
	} else if n := len(m.state.SubtasksOf(t.UUID)); n > 0 {
		marker := "▸"
		if m.expanded[t.UUID] {
			marker = "▾"
		}
		indent = fmt.Sprintf("%s(%d) ", marker, n)
	}

	title := t.Title
	if t.Status == task.StatusCompleted {
		title = doneStyle.Render(title)
	}

	line := fmt.Sprintf("%s%s%s %s  %s · %s", prefix, indent, statusMark(t.Status), title,
		priorityStyle[t.Priority].Render(string(t.Priority)), string(t.Category))

	if t.DueDate != nil {
		due := "due " + *t.DueDate
		if board.IsOverdue(t.DueDate, t.Status, now) {
			due = overdueStyle.Render(due + " (overdue)")
		}
		line += " · " + due
	}
	return line
}

func (m Model) renderForm() string {
	heading := "New task"
	switch {
	case m.state.Form.IsEdit():
		heading = "Edit task"
	case m.state.Form.IsSubtask():
		heading = "New subtask"
	}
	body := strings.Join([]string{titleStyle.Render(heading), m.title.View(), m.due.View(),
		helpStyle.Render("enter save · tab next field · esc cancel")}, "\n")
	return formBoxStyle.Render(body)
}

func (m Model) help() string {
	switch m.mode {
	case modeSearch:
		return "enter apply · esc clear"
	case modeForm:
		return ""
	case modeConfirmDelete:
		return "y confirm · any key cancel"
	}
	if m.state.ShowDeleted {
		return "j/k move · d restore · D active tasks · / search · r refresh · q quit"
	}
	return "j/k move · space expand · x toggle · a add · A subtask · e edit · d delete · D deleted · " +
		"/ search · s/c/p filters · 1/2/3 quick · 0 clear · r refresh · q quit"
}
