package board

import (
	"time"

	"taskManager/internal/models/task"
)

// IsOverdue: срок задан, читается как дата, строго раньше now и задача не завершена.
// Дата без времени читается как локальная полночь. Нечитаемый срок просроченным не считается.
func IsOverdue(dueDate *string, status task.Status, now time.Time) bool {
	if dueDate == nil || *dueDate == "" || status == task.StatusCompleted {
		return false
	}
	due, err := task.ParseDueDate(*dueDate, time.Local)
	if err != nil {
		return false
	}
	return due.Before(now)
}
