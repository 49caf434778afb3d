package tui

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"taskManager/internal/board"
	"taskManager/internal/client"
	"taskManager/internal/handlers"
	"taskManager/internal/models/task"
	"taskManager/internal/repository/task/inmemory"
	"taskManager/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModel(t *testing.T) (Model, *client.Client) {
	t.Helper()
	svc := service.NewTaskService(inmemory.NewTaskStorage())
	srv := httptest.NewServer(handlers.NewRouter(handlers.NewTaskHandler(svc), handlers.RouterConfig{}))
	t.Cleanup(srv.Close)

	c := client.New(srv.URL)
	return New(context.Background(), board.New(c)), c
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press отправляет клавишу; команды (мигание курсора и т.п.) не выполняются
func press(t *testing.T, m Model, s string) Model {
	t.Helper()
	next, _ := m.Update(key(s))
	return next.(Model)
}

// act отправляет клавишу и выполняет вызванную ей операцию доски
func act(t *testing.T, m Model, s string) Model {
	t.Helper()
	next, cmd := m.Update(key(s))
	m = next.(Model)
	require.NotNil(t, cmd)

	msg := cmd()
	switch msg.(type) {
	case actionDoneMsg, refreshedMsg:
	default:
		t.Fatalf("ожидалась операция доски, получено %T", msg)
	}
	next, _ = m.Update(msg)
	return next.(Model)
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func reload(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(m.refresh()())
	return next.(Model)
}

func TestModel_CreateExpandToggle(t *testing.T) {
	m, c := newModel(t)
	ctx := context.Background()

	parent, err := c.CreateTask(ctx, task.Fields{Title: "Parent"})
	require.NoError(t, err)
	_, err = c.CreateTask(ctx, task.Fields{Title: "Child", ParentTaskID: &parent.UUID})
	require.NoError(t, err)

	m = reload(t, m)
	require.Len(t, m.rows, 1)
	assert.Contains(t, m.View(), "Parent")
	assert.NotContains(t, m.View(), "Child")

	m = press(t, m, " ")
	require.Len(t, m.rows, 2)
	assert.True(t, m.rows[1].sub)
	assert.Contains(t, m.View(), "Child")

	m = act(t, m, "x")
	assert.Equal(t, task.StatusCompleted, m.rows[0].task.Status)
	require.NotNil(t, m.state.Notice)
	assert.Equal(t, "Task status updated successfully!", m.state.Notice.Text)

	m = press(t, m, "a")
	assert.Equal(t, modeForm, m.mode)
	m = typeText(t, m, "Second")
	m = press(t, m, "tab")
	m = typeText(t, m, "2000-01-01")
	m = act(t, m, "enter")

	assert.Equal(t, modeNormal, m.mode)
	require.Len(t, m.state.Tasks, 2)
	assert.Equal(t, "Task created successfully!", m.state.Notice.Text)
	assert.Contains(t, m.View(), "(overdue)")
}

func TestModel_SubtaskFormAndFilters(t *testing.T) {
	m, c := newModel(t)
	ctx := context.Background()

	_, err := c.CreateTask(ctx, task.Fields{Title: "Buy milk", Priority: task.PriorityHigh})
	require.NoError(t, err)
	m = reload(t, m)

	m = press(t, m, "A")
	require.True(t, m.state.Form.IsSubtask())
	m = typeText(t, m, "Skimmed")
	m = act(t, m, "enter")
	assert.Equal(t, "Subtask created successfully!", m.state.Notice.Text)
	require.Len(t, m.rows, 2, "родитель раскрыт после добавления подзадачи")

	m = press(t, m, "/")
	m = typeText(t, m, "xyz")
	assert.Empty(t, m.rows)
	m = press(t, m, "esc")
	assert.Len(t, m.rows, 2)

	m = press(t, m, "3")
	assert.Len(t, m.state.Visible(), 1)
	m = press(t, m, "p")
	require.NotNil(t, m.state.Criteria.Priority)
	assert.Equal(t, task.PriorityUrgent, *m.state.Criteria.Priority)
	assert.Empty(t, m.rows)
	m = press(t, m, "0")
	assert.True(t, m.state.Criteria.IsEmpty())
}

func TestModel_DeleteAndRestore(t *testing.T) {
	m, c := newModel(t)
	_, err := c.CreateTask(context.Background(), task.Fields{Title: "Trash me"})
	require.NoError(t, err)
	m = reload(t, m)

	m = press(t, m, "d")
	assert.Equal(t, modeConfirmDelete, m.mode)
	assert.Contains(t, m.View(), "Trash me")
	m = press(t, m, "n")
	assert.Len(t, m.state.Tasks, 1)

	m = press(t, m, "d")
	m = act(t, m, "y")
	assert.Empty(t, m.state.Tasks)
	require.Len(t, m.state.Deleted, 1)
	assert.Equal(t, "Task deleted successfully!", m.state.Notice.Text)

	m = press(t, m, "D")
	assert.True(t, m.state.ShowDeleted)
	require.Len(t, m.rows, 1)

	m = act(t, m, "d")
	assert.Empty(t, m.state.Deleted)
	assert.Equal(t, "Task restored successfully!", m.state.Notice.Text)
}

func TestModel_DeletedViewShowsSubtasks(t *testing.T) {
	m, c := newModel(t)
	ctx := context.Background()
	parent, err := c.CreateTask(ctx, task.Fields{Title: "Deleted parent"})
	require.NoError(t, err)
	_, err = c.CreateTask(ctx, task.Fields{Title: "Live child", ParentTaskID: &parent.UUID})
	require.NoError(t, err)
	require.NoError(t, c.DeleteTask(ctx, parent.UUID))
	m = reload(t, m)

	m = press(t, m, "D")
	require.Len(t, m.rows, 1)
	assert.Contains(t, m.View(), "(1)")

	m = press(t, m, " ")
	require.Len(t, m.rows, 2)
	assert.True(t, m.rows[1].sub)
	assert.Equal(t, "Live child", m.rows[1].task.Title)

	// активную подзадачу из корзины восстановить нельзя
	m = press(t, m, "j")
	next, cmd := m.Update(key("d"))
	assert.Nil(t, cmd)
	assert.Equal(t, modeNormal, next.(Model).mode)
}

func TestModel_NoticeClearedOnTick(t *testing.T) {
	m, _ := newModel(t)
	current := time.Now()
	m.board = board.New(client.New("http://127.0.0.1:1", client.WithRetries(0)),
		board.WithClock(func() time.Time { return current }))

	m = act(t, m, "r")
	require.NotNil(t, m.state.Notice)
	assert.Equal(t, board.NoticeError, m.state.Notice.Kind)

	current = current.Add(board.DefaultNoticeTTL)
	next, cmd := m.Update(tickMsg(current))
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.Nil(t, m.state.Notice)
}

func TestNext(t *testing.T) {
	var s *task.Status
	seen := []string{}
	for range len(task.Statuses) + 1 {
		s = next(task.Statuses, s)
		seen = append(seen, optionLabel(s))
	}
	assert.Equal(t, []string{"PENDING", "IN_PROGRESS", "COMPLETED", "all"}, seen)
}
