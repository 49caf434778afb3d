package handlers

import (
	"context"
	"taskManager/internal/models/task"
	"time"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(context.Context) error
	ListTasks(context.Context) ([]*task.Task, error)
	ListDeleted(context.Context) ([]*task.Task, error)
	ListSubtasks(context.Context, uuid.UUID) ([]*task.Task, error)
	ListByStatus(context.Context, task.Status) ([]*task.Task, error)
	ListByCategory(context.Context, task.Category) ([]*task.Task, error)
	Search(context.Context, string) ([]*task.Task, error)
	ListDueBetween(context.Context, time.Time, time.Time) ([]*task.Task, error)
	GetTask(context.Context, uuid.UUID) (*task.Task, error)
	CreateTask(context.Context, task.Fields) (*task.Task, error)
	UpdateTask(context.Context, uuid.UUID, task.Fields) (*task.Task, error)
	DeleteTask(context.Context, uuid.UUID) error
	RestoreTask(context.Context, uuid.UUID) (*task.Task, error)
}
