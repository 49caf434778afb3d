package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"
	"time"

	"github.com/google/uuid"
)

type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

// наружу отдаём только копии, чтобы вызывающий код не менял хранилище в обход мьютекса
func clone(t *task.Task) *task.Task {
	c := *t
	return &c
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	taskToCreate.CreatedAt = time.Now()
	taskToCreate.Flag = task.FlagActive
	taskToCreate.Version = 1

	s.storage[taskToCreate.UUID] = clone(taskToCreate)
	s.ids = append(s.ids, taskToCreate.UUID)
	return nil
}

func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[taskToUpdate.UUID]
	if !ok {
		return repo.ErrNotFound
	}
	if existed.Version != taskToUpdate.Version {
		return repo.ErrVersionConflict
	}

	now := time.Now()
	taskToUpdate.UpdatedAt = &now
	taskToUpdate.Version++
	s.storage[taskToUpdate.UUID] = clone(taskToUpdate)

	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return clone(taskToGet), nil
}

// мягкое удаление с изменением флага
func (s *TaskStorage) DeleteSoft(ctx context.Context, taskToDelete *task.Task) error {
	return s.setFlag(taskToDelete, task.FlagDeleted)
}

// восстановление мягко удалённой задачи
func (s *TaskStorage) Restore(ctx context.Context, taskToRestore *task.Task) error {
	return s.setFlag(taskToRestore, task.FlagActive)
}

func (s *TaskStorage) setFlag(target *task.Task, flag task.Flag) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[target.UUID]
	if !ok {
		return repo.ErrNotFound
	}
	if existed.Version != target.Version {
		return repo.ErrVersionConflict
	}

	now := time.Now()
	existed.UpdatedAt = &now
	existed.Flag = flag
	existed.Version++
	if flag == task.FlagDeleted {
		existed.DeletedAt = &now
	} else {
		existed.DeletedAt = nil
	}

	target.UpdatedAt = existed.UpdatedAt
	target.DeletedAt = existed.DeletedAt
	target.Flag = existed.Flag
	target.Version = existed.Version
	return nil
}

// выборка по запросу; удалённые сортируются по времени удаления, остальные - по времени создания
func (s *TaskStorage) List(ctx context.Context, q task.Query) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	// свежие вставки первыми, чтобы при равном времени порядок был стабилен
	for i := len(s.ids) - 1; i >= 0; i-- {
		t := s.storage[s.ids[i]]
		if matches(t, q) {
			res = append(res, clone(t))
		}
	}

	if q.Flag == task.FlagDeleted {
		sort.SliceStable(res, func(i, j int) bool {
			return deletedAt(res[i]).After(deletedAt(res[j]))
		})
	} else {
		sort.SliceStable(res, func(i, j int) bool {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		})
	}
	return res, nil
}

func deletedAt(t *task.Task) time.Time {
	if t.DeletedAt == nil {
		return time.Time{}
	}
	return *t.DeletedAt
}

func matches(t *task.Task, q task.Query) bool {
	if q.Flag != "" && t.Flag != q.Flag {
		return false
	}
	if q.TopLevelOnly && t.ParentTaskID != nil {
		return false
	}
	if q.ParentID != nil && (t.ParentTaskID == nil || *t.ParentTaskID != *q.ParentID) {
		return false
	}
	if q.Status != nil && t.Status != *q.Status {
		return false
	}
	if q.Category != nil && t.Category != *q.Category {
		return false
	}
	if q.Keyword != "" {
		kw := strings.ToLower(q.Keyword)
		if !strings.Contains(strings.ToLower(t.Title), kw) &&
			!strings.Contains(strings.ToLower(t.DescriptionOrEmpty()), kw) {
			return false
		}
	}
	if q.DueFrom != nil || q.DueTo != nil {
		if t.DueDate == nil {
			return false
		}
		// даты хранятся в формате YYYY-MM-DD, поэтому сравнение строк совпадает с хронологическим
		if q.DueFrom != nil && *t.DueDate < q.DueFrom.Format(task.DateLayout) {
			return false
		}
		if q.DueTo != nil && *t.DueDate > q.DueTo.Format(task.DateLayout) {
			return false
		}
	}
	return true
}
