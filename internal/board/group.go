package board

import (
	"context"
	"sync"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// DefaultConcurrency - сколько подзадач загружается одновременно, если не задано иное
const DefaultConcurrency = 4

// SubtaskFetcher загружает подзадачи одного родителя.
type SubtaskFetcher func(ctx context.Context, parentID uuid.UUID) ([]*task.Task, error)

// Partition делит плоский список на задачи верхнего уровня и подзадачи по родителям.
func Partition(tasks []*task.Task) ([]*task.Task, map[uuid.UUID][]*task.Task) {
	top := make([]*task.Task, 0, len(tasks))
	children := make(map[uuid.UUID][]*task.Task)
	for _, t := range tasks {
		if t == nil {
			continue
		}
		if t.IsTopLevel() {
			top = append(top, t)
			continue
		}
		children[*t.ParentTaskID] = append(children[*t.ParentTaskID], t)
	}
	return top, children
}

// GroupSubtasks запрашивает подзадачи каждой задачи верхнего уровня независимо.
// Ошибка или паника одного родителя даёт ему пустой список и только логируется.
func GroupSubtasks(ctx context.Context, tasks []*task.Task, fetch SubtaskFetcher, concurrency int) map[uuid.UUID][]*task.Task {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var mu sync.Mutex
	result := make(map[uuid.UUID][]*task.Task, len(tasks))

	p := pool.New().WithMaxGoroutines(concurrency)
	for _, t := range tasks {
		if t == nil || !t.IsTopLevel() {
			continue
		}
		parentID := t.UUID

		mu.Lock()
		if _, seen := result[parentID]; seen {
			mu.Unlock()
			continue
		}
		result[parentID] = []*task.Task{}
		mu.Unlock()

		p.Go(func() {
			var (
				subtasks []*task.Task
				err      error
				catcher  panics.Catcher
			)
			catcher.Try(func() { subtasks, err = fetch(ctx, parentID) })
			if r := catcher.Recovered(); r != nil {
				err = r.AsError()
			}
			if err != nil {
				logger.Warn("BOARD: Не удалось загрузить подзадачи",
					zap.String("parent_id", parentID.String()),
					zap.Error(err))
				return
			}
			if subtasks == nil {
				subtasks = []*task.Task{}
			}

			mu.Lock()
			result[parentID] = subtasks
			mu.Unlock()
		})
	}
	p.Wait()

	return result
}
