package board

import (
	"strings"

	"taskManager/internal/models/task"
)

// Criteria - условия отбора задач в списке. nil и пустая строка не фильтруют.
type Criteria struct {
	SearchTerm string
	Status     *task.Status
	Category   *task.Category
	Priority   *task.Priority
}

// IsEmpty сообщает, что ни одно условие не задано.
func (c Criteria) IsEmpty() bool {
	return c.SearchTerm == "" && c.Status == nil && c.Category == nil && c.Priority == nil
}

// Matches решает, показывать ли задачу в основном списке.
// Подзадачи сюда никогда не проходят: они отображаются только под родителем.
func Matches(t *task.Task, c Criteria) bool {
	if t == nil || !t.IsTopLevel() {
		return false
	}

	if c.SearchTerm != "" {
		term := strings.ToLower(c.SearchTerm)
		inTitle := strings.Contains(strings.ToLower(t.Title), term)
		inDescription := t.Description != nil && strings.Contains(strings.ToLower(*t.Description), term)
		if !inTitle && !inDescription {
			return false
		}
	}

	if c.Status != nil && t.Status != *c.Status {
		return false
	}
	if c.Category != nil && t.Category != *c.Category {
		return false
	}
	if c.Priority != nil && t.Priority != *c.Priority {
		return false
	}
	return true
}

// Filter возвращает подходящие задачи в исходном порядке.
func Filter(tasks []*task.Task, c Criteria) []*task.Task {
	result := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if Matches(t, c) {
			result = append(result, t)
		}
	}
	return result
}
