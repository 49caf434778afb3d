package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"taskManager/internal/board"
	"taskManager/internal/models/task"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// headerRow - номер строки заголовка в StyleFunc; строки данных идут с 1
const headerRow = 0

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// taskView - задача в том виде, в каком её печатает taskctl.
type taskView struct {
	ID           string     `json:"id" yaml:"id"`
	Title        string     `json:"title" yaml:"title"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	Status       string     `json:"status" yaml:"status"`
	Priority     string     `json:"priority" yaml:"priority"`
	Category     string     `json:"category" yaml:"category"`
	DueDate      string     `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	ParentTaskID string     `json:"parentTaskId,omitempty" yaml:"parentTaskId,omitempty"`
	IsOverdue    bool       `json:"isOverdue" yaml:"isOverdue"`
	Subtasks     []taskView `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
}

func toView(t *task.Task, now time.Time) taskView {
	v := taskView{
		ID:          t.UUID.String(),
		Title:       t.Title,
		Description: t.DescriptionOrEmpty(),
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Category:    string(t.Category),
		IsOverdue:   board.IsOverdue(t.DueDate, t.Status, now),
	}
	if t.DueDate != nil {
		v.DueDate = *t.DueDate
	}
	if t.ParentTaskID != nil {
		v.ParentTaskID = t.ParentTaskID.String()
	}
	return v
}

// viewsOf строит список с вложенными подзадачами
func viewsOf(tasks []*task.Task, subtasks map[uuid.UUID][]*task.Task, now time.Time) []taskView {
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		v := toView(t, now)
		for _, sub := range subtasks[t.UUID] {
			v.Subtasks = append(v.Subtasks, toView(sub, now))
		}
		views = append(views, v)
	}
	return views
}

func writeStructured(w io.Writer, format string, value any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("неизвестный формат вывода %q", format)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func viewRow(v taskView, indent string) []string {
	due := v.DueDate
	if v.IsOverdue {
		due = overdueStyle.Render(due + " !")
	}
	status := v.Status
	if v.Status == string(task.StatusCompleted) {
		status = doneStyle.Render(status)
	}
	return []string{shortID(v.ID), indent + v.Title, status, v.Priority, v.Category, due}
}

func renderTable(views []taskView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, viewRow(v, ""))
		for _, sub := range v.Subtasks {
			rows = append(rows, viewRow(sub, "  └ "))
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "STATUS", "PRIORITY", "CATEGORY", "DUE").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == headerRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

func writeTasks(w io.Writer, format string, views []taskView) error {
	if format != outputTable {
		return writeStructured(w, format, views)
	}
	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "Задач нет")
		return err
	}
	_, err := fmt.Fprintln(w, renderTable(views))
	return err
}

func writeNotice(w io.Writer, state board.State) {
	if state.Notice == nil {
		return
	}
	style := successStyle
	if state.Notice.Kind == board.NoticeError {
		style = errorStyle
	}
	fmt.Fprintln(w, style.Render(state.Notice.Text))
}

func renderStats(s board.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %d\n", "Total:", s.Total)
	fmt.Fprintf(&b, "%-12s %d\n", "Pending:", s.Pending)
	fmt.Fprintf(&b, "%-12s %d\n", "In progress:", s.InProgress)
	fmt.Fprintf(&b, "%-12s %d", "Completed:", s.Completed)
	return b.String()
}
