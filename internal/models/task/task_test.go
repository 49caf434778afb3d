package task_test

import (
	"taskManager/internal/models/task"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnums(t *testing.T) {
	status, err := task.ParseStatus(" in_progress ")
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, status)

	priority, err := task.ParsePriority("urgent")
	require.NoError(t, err)
	assert.Equal(t, task.PriorityUrgent, priority)

	category, err := task.ParseCategory("Education")
	require.NoError(t, err)
	assert.Equal(t, task.CategoryEducation, category)

	_, err = task.ParseStatus("done")
	assert.Error(t, err)
	_, err = task.ParsePriority("")
	assert.Error(t, err)
	_, err = task.ParseCategory("LEISURE")
	assert.Error(t, err)
}

func TestParseDueDate(t *testing.T) {
	loc := time.UTC

	d, err := task.ParseDueDate("2024-03-15", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, loc), d)

	d, err = task.ParseDueDate("2024-03-15T10:30:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, 10, d.Hour())

	_, err = task.ParseDueDate("not-a-date", loc)
	assert.Error(t, err)
}

func TestFields_WithDefaults(t *testing.T) {
	f := task.Fields{Title: "Buy milk"}.WithDefaults()
	assert.Equal(t, task.DefaultStatus, f.Status)
	assert.Equal(t, task.PriorityMedium, f.Priority)
	assert.Equal(t, task.CategoryPersonal, f.Category)

	f = task.Fields{Title: "x", Priority: task.PriorityHigh}.WithDefaults()
	assert.Equal(t, task.PriorityHigh, f.Priority)
}

func TestTask_Apply(t *testing.T) {
	desc := "groceries"
	due := "2024-01-02"
	parent := uuid.New()

	tsk := &task.Task{Title: "old", Status: task.StatusPending}
	tsk.Apply(
		task.WithTitle("new"),
		task.WithDescription(&desc),
		task.WithStatus(""),
		task.WithPriority(task.PriorityLow),
		task.WithDueDate(&due),
		task.WithParent(&parent),
	)

	assert.Equal(t, "new", tsk.Title)
	assert.Equal(t, "groceries", tsk.DescriptionOrEmpty())
	assert.Equal(t, task.StatusPending, tsk.Status)
	assert.Equal(t, task.PriorityLow, tsk.Priority)
	require.NotNil(t, tsk.DueDate)
	assert.Equal(t, due, *tsk.DueDate)
	assert.False(t, tsk.IsTopLevel())

	empty := ""
	tsk.Apply(task.WithDescription(&empty), task.WithDueDate(nil))
	assert.Nil(t, tsk.Description)
	assert.Nil(t, tsk.DueDate)
}

func TestFieldsOf_RoundTrip(t *testing.T) {
	desc := "d"
	orig := task.Task{
		UUID:        uuid.New(),
		Title:       "t",
		Description: &desc,
		Status:      task.StatusCompleted,
		Priority:    task.PriorityHigh,
		Category:    task.CategoryWork,
	}

	copyTask := task.Task{}
	copyTask.Apply(task.FieldsOf(orig).Options()...)

	assert.Equal(t, orig.Title, copyTask.Title)
	assert.Equal(t, orig.Status, copyTask.Status)
	assert.Equal(t, orig.Priority, copyTask.Priority)
	assert.Equal(t, orig.Category, copyTask.Category)
	assert.Equal(t, "d", copyTask.DescriptionOrEmpty())
}
