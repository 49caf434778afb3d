package board

import "taskManager/internal/models/task"

// ToggleStatus переключает COMPLETED <-> PENDING. Любой другой статус
// считается незавершённым и становится COMPLETED. Остальные поля не меняются.
func ToggleStatus(t task.Task) task.Task {
	if t.Status == task.StatusCompleted {
		t.Status = task.StatusPending
	} else {
		t.Status = task.StatusCompleted
	}
	return t
}
