package board

import (
	"testing"
	"time"

	"taskManager/internal/models/task"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Filters(t *testing.T) {
	s := State{}.
		WithSearch("milk").
		QuickPending().
		QuickUrgent().
		QuickHighPriority()

	require.NotNil(t, s.Criteria.Status)
	require.NotNil(t, s.Criteria.Category)
	require.NotNil(t, s.Criteria.Priority)
	assert.Equal(t, "milk", s.Criteria.SearchTerm)
	assert.Equal(t, task.StatusPending, *s.Criteria.Status)
	assert.Equal(t, task.CategoryUrgent, *s.Criteria.Category)
	assert.Equal(t, task.PriorityHigh, *s.Criteria.Priority)

	cleared := s.ClearFilters()
	assert.True(t, cleared.Criteria.IsEmpty())
	assert.False(t, s.Criteria.IsEmpty(), "переход не должен менять исходное значение")

	assert.Nil(t, s.WithStatus(nil).Criteria.Status)
	assert.Nil(t, s.WithCategory(nil).Criteria.Category)
	assert.Nil(t, s.WithPriority(nil).Criteria.Priority)
}

func TestState_Form(t *testing.T) {
	editing := newTask("Edit me")
	parentID := uuid.New()

	tests := []struct {
		name      string
		state     State
		visible   bool
		isEdit    bool
		isSubtask bool
	}{
		{"закрыта", State{}, false, false, false},
		{"создание", State{}.OpenCreateForm(), true, false, false},
		{"подзадача", State{}.OpenSubtaskForm(parentID), true, false, true},
		{"редактирование", State{}.OpenSubtaskForm(parentID).OpenEditForm(editing), true, true, false},
		{"закрыта после открытия", State{}.OpenEditForm(editing).CloseForm(), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.visible, tt.state.Form.Visible)
			assert.Equal(t, tt.isEdit, tt.state.Form.IsEdit())
			assert.Equal(t, tt.isSubtask, tt.state.Form.IsSubtask())
		})
	}
}

func TestState_Notice(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := State{}.WithNotice(NoticeError, "boom", now.Add(3*time.Second))

	assert.NotNil(t, s.ExpireNotice(now.Add(2*time.Second)).Notice)
	assert.Nil(t, s.ExpireNotice(now.Add(3*time.Second)).Notice)
	assert.Nil(t, State{}.ExpireNotice(now).Notice)
}

func TestState_VisibleAndStats(t *testing.T) {
	pending := newTask("Pending", task.WithStatus(task.StatusPending))
	inProgress := newTask("Working", task.WithStatus(task.StatusInProgress))
	done := newTask("Done", task.WithStatus(task.StatusCompleted))
	removed := newTask("Removed")
	sub := newTask("Sub", task.WithParent(&pending.UUID))

	s := State{
		Tasks:    []*task.Task{pending, inProgress, done},
		Deleted:  []*task.Task{removed},
		Subtasks: map[uuid.UUID][]*task.Task{pending.UUID: {sub}},
	}

	assert.Equal(t, []*task.Task{pending, inProgress, done}, s.Visible())
	assert.Equal(t, []*task.Task{pending}, s.QuickPending().Visible())
	assert.Equal(t, []*task.Task{removed}, s.ToggleDeletedView().Visible())
	assert.Equal(t, s.Tasks, s.ToggleDeletedView().ToggleDeletedView().Visible())

	assert.Equal(t, []*task.Task{sub}, s.SubtasksOf(pending.UUID))
	assert.Empty(t, s.SubtasksOf(done.UUID))

	found, ok := s.Find(sub.UUID)
	assert.True(t, ok)
	assert.Equal(t, sub, found)
	_, ok = s.Find(removed.UUID)
	assert.False(t, ok)

	assert.Equal(t, Stats{Total: 3, Pending: 1, InProgress: 1, Completed: 1}, s.QuickPending().Stats())
}
