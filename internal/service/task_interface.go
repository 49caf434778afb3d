package service

import (
	"context"
	"taskManager/internal/models/task"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	DeleteSoft(context.Context, *task.Task) error
	Restore(context.Context, *task.Task) error
	List(context.Context, task.Query) ([]*task.Task, error)
}
