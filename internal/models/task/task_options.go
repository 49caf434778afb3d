package task

import (
	"github.com/google/uuid"
)

type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	return func(task *Task) {
		task.Title = title
	}
}

// пустая строка означает "описания нет"
func WithDescription(description *string) TaskOption {
	return func(task *Task) {
		if description == nil || *description == "" {
			task.Description = nil
			return
		}
		d := *description
		task.Description = &d
	}
}

func WithStatus(status Status) TaskOption {
	if status == "" {
		return nil
	}
	return func(task *Task) {
		task.Status = status
	}
}

func WithPriority(priority Priority) TaskOption {
	if priority == "" {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithCategory(category Category) TaskOption {
	if category == "" {
		return nil
	}
	return func(task *Task) {
		task.Category = category
	}
}

func WithDueDate(dueDate *string) TaskOption {
	return func(task *Task) {
		if dueDate == nil || *dueDate == "" {
			task.DueDate = nil
			return
		}
		d := *dueDate
		task.DueDate = &d
	}
}

func WithParent(parentID *uuid.UUID) TaskOption {
	if parentID == nil {
		return nil
	}
	return func(task *Task) {
		id := *parentID
		task.ParentTaskID = &id
	}
}

// Apply применяет опции, пропуская nil
func (t *Task) Apply(options ...TaskOption) {
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
}
