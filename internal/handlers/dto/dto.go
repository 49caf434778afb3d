package dto

import (
	"fmt"
	"taskManager/internal/board"
	"taskManager/internal/models/task"
	"time"

	"github.com/google/uuid"
)

// TaskRequest - тело POST /tasks и PUT /tasks/{id}
type TaskRequest struct {
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	Status       string  `json:"status,omitempty"`
	Priority     string  `json:"priority,omitempty"`
	Category     string  `json:"category,omitempty"`
	DueDate      *string `json:"dueDate,omitempty"`
	ParentTaskID *string `json:"parentTaskId,omitempty"`
}

// FieldError - ошибка разбора конкретного поля запроса
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("поле %s: %s", e.Field, e.Reason)
}

// ToFields разбирает перечисления без учёта регистра; пустые значения остаются пустыми.
func (r TaskRequest) ToFields() (task.Fields, error) {
	f := task.Fields{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
	}

	if r.Status != "" {
		status, err := task.ParseStatus(r.Status)
		if err != nil {
			return f, &FieldError{Field: "status", Reason: err.Error()}
		}
		f.Status = status
	}
	if r.Priority != "" {
		priority, err := task.ParsePriority(r.Priority)
		if err != nil {
			return f, &FieldError{Field: "priority", Reason: err.Error()}
		}
		f.Priority = priority
	}
	if r.Category != "" {
		category, err := task.ParseCategory(r.Category)
		if err != nil {
			return f, &FieldError{Field: "category", Reason: err.Error()}
		}
		f.Category = category
	}
	if r.ParentTaskID != nil && *r.ParentTaskID != "" {
		id, err := uuid.Parse(*r.ParentTaskID)
		if err != nil {
			return f, &FieldError{Field: "parentTaskId", Reason: err.Error()}
		}
		f.ParentTaskID = &id
	}
	return f, nil
}

type TaskResponse struct {
	task.Task
	IsOverdue bool `json:"isOverdue"`
}

func FromTask(t *task.Task, now time.Time) TaskResponse {
	return TaskResponse{
		Task:      *t,
		IsOverdue: board.IsOverdue(t.DueDate, t.Status, now),
	}
}

func FromTaskList(tasks []*task.Task, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, now)
	}
	return result
}
