package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"taskManager/internal/client"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultNoticeTTL - через сколько сообщение пользователю исчезает
const DefaultNoticeTTL = 3 * time.Second

// тексты сообщений пользователю
const (
	msgFetchFailed   = "Failed to fetch tasks. Please try again."
	msgCreated       = "Task created successfully!"
	msgSubCreated    = "Subtask created successfully!"
	msgCreateFailed  = "Failed to create task. Please try again."
	msgUpdated       = "Task updated successfully!"
	msgUpdateFailed  = "Failed to update task. Please try again."
	msgDeleted       = "Task deleted successfully!"
	msgDeleteFailed  = "Failed to delete task. Please try again."
	msgRestored      = "Task restored successfully!"
	msgRestoreFailed = "Failed to restore task. Please try again."
	msgToggled       = "Task status updated successfully!"
	msgToggleFailed  = "Failed to update task status. Please try again."
)

var ErrUnknownTask = errors.New("задача не загружена")

// Repository - удалённое хранилище задач, с которым работает доска.
type Repository interface {
	ListTasks(ctx context.Context) ([]*task.Task, error)
	ListDeleted(ctx context.Context) ([]*task.Task, error)
	ListSubtasks(ctx context.Context, parentID uuid.UUID) ([]*task.Task, error)
	CreateTask(ctx context.Context, fields task.Fields) (*task.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, fields task.Fields) (*task.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
	RestoreTask(ctx context.Context, id uuid.UUID) error
}

type Option func(*Board)

func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		b.now = now
	}
}

func WithNoticeTTL(ttl time.Duration) Option {
	return func(b *Board) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

func WithConcurrency(n int) Option {
	return func(b *Board) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// Board - единственный владелец состояния. Все изменения проходят через него.
type Board struct {
	repo        Repository
	now         func() time.Time
	ttl         time.Duration
	concurrency int

	mu       sync.Mutex
	state    State
	issued   uint64
	applied  uint64
	inFlight int
}

func New(repo Repository, opts ...Option) *Board {
	b := &Board{
		repo:        repo,
		now:         time.Now,
		ttl:         DefaultNoticeTTL,
		concurrency: DefaultConcurrency,
		state:       State{Subtasks: map[uuid.UUID][]*task.Task{}},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State возвращает снимок состояния с учётом истёкших сообщений.
func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = b.state.ExpireNotice(b.now())
	return b.state
}

// Apply применяет переход к состоянию и возвращает результат.
func (b *Board) Apply(tr Transition) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = tr(b.state.ExpireNotice(b.now()))
	return b.state
}

func (b *Board) notify(kind NoticeKind, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = b.state.WithNotice(kind, text, b.now().Add(b.ttl))
}

// fail логирует ошибку и показывает сообщение. Загруженные списки не трогает.
func (b *Board) fail(op, text string, err error, fields ...zap.Field) error {
	logger.Error("BOARD: "+op, err, fields...)
	b.notify(NoticeError, text)
	return err
}

// Refresh загружает активные и удалённые задачи, затем подзадачи.
// Ответ, пришедший позже более нового применённого обновления, отбрасывается.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.issued++
	b.inFlight++
	seq := b.issued
	b.state.Loading = true
	b.mu.Unlock()

	var active, deleted []*task.Task
	var deletedErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		active, err = b.repo.ListTasks(gctx)
		return err
	})
	g.Go(func() error {
		deleted, deletedErr = b.repo.ListDeleted(gctx)
		if deletedErr != nil {
			logger.Warn("BOARD: Не удалось загрузить удалённые задачи", zap.Error(deletedErr))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("BOARD: Не удалось загрузить задачи", err, zap.Uint64("seq", seq))

		b.mu.Lock()
		defer b.mu.Unlock()
		b.finish()
		if seq < b.applied {
			return nil
		}
		b.state = b.state.WithNotice(NoticeError, msgFetchFailed, b.now().Add(b.ttl))
		return fmt.Errorf("загрузка задач: %w", err)
	}

	// при ошибке корзины подзадачи берутся для прежнего списка удалённых
	if deletedErr != nil {
		b.mu.Lock()
		deleted = b.state.Deleted
		b.mu.Unlock()
	}
	inView := make([]*task.Task, 0, len(active)+len(deleted))
	inView = append(append(inView, active...), deleted...)
	subtasks := GroupSubtasks(ctx, inView, b.repo.ListSubtasks, b.concurrency)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.finish()
	if seq < b.applied {
		logger.Debug("BOARD: Устаревший ответ отброшен",
			zap.Uint64("seq", seq),
			zap.Uint64("applied", b.applied))
		return nil
	}

	b.applied = seq
	b.state.Tasks = active
	if deletedErr == nil {
		b.state.Deleted = deleted
	}
	b.state.Subtasks = subtasks
	return nil
}

// finish вызывается под b.mu
func (b *Board) finish() {
	b.inFlight--
	b.state.Loading = b.inFlight > 0
}

// validate проверяет срок локально, до обращения к серверу.
func validate(fields task.Fields) error {
	if fields.DueDate == nil || strings.TrimSpace(*fields.DueDate) == "" {
		return nil
	}
	if _, err := task.ParseDueDate(strings.TrimSpace(*fields.DueDate), time.Local); err != nil {
		return &client.ParseError{Op: "dueDate", Err: err}
	}
	return nil
}

// Submit создаёт или обновляет задачу в зависимости от открытой формы.
func (b *Board) Submit(ctx context.Context, fields task.Fields) (*task.Task, error) {
	form := b.State().Form
	if form.IsEdit() {
		return b.Update(ctx, form.Editing.UUID, fields)
	}
	if form.IsSubtask() {
		parentID := *form.ParentID
		fields.ParentTaskID = &parentID
	}
	return b.Create(ctx, fields)
}

func (b *Board) Create(ctx context.Context, fields task.Fields) (*task.Task, error) {
	if err := validate(fields); err != nil {
		return nil, b.fail("Неверные поля задачи", msgCreateFailed, err)
	}

	created, err := b.repo.CreateTask(ctx, fields)
	if err != nil {
		return nil, b.fail("Не удалось создать задачу", msgCreateFailed, err)
	}

	text := msgCreated
	if fields.ParentTaskID != nil {
		text = msgSubCreated
	}
	b.succeed(ctx, text)
	return created, nil
}

func (b *Board) Update(ctx context.Context, id uuid.UUID, fields task.Fields) (*task.Task, error) {
	if err := validate(fields); err != nil {
		return nil, b.fail("Неверные поля задачи", msgUpdateFailed, err, zap.String("task_id", id.String()))
	}

	updated, err := b.repo.UpdateTask(ctx, id, fields)
	if err != nil {
		return nil, b.fail("Не удалось обновить задачу", msgUpdateFailed, err, zap.String("task_id", id.String()))
	}

	b.succeed(ctx, msgUpdated)
	return updated, nil
}

func (b *Board) Delete(ctx context.Context, id uuid.UUID) error {
	if err := b.repo.DeleteTask(ctx, id); err != nil {
		return b.fail("Не удалось удалить задачу", msgDeleteFailed, err, zap.String("task_id", id.String()))
	}
	b.succeed(ctx, msgDeleted)
	return nil
}

func (b *Board) Restore(ctx context.Context, id uuid.UUID) error {
	if err := b.repo.RestoreTask(ctx, id); err != nil {
		return b.fail("Не удалось восстановить задачу", msgRestoreFailed, err, zap.String("task_id", id.String()))
	}
	b.succeed(ctx, msgRestored)
	return nil
}

// ToggleStatus отправляет задачу с переключённым статусом как полное обновление.
func (b *Board) ToggleStatus(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	current, ok := b.State().Find(id)
	if !ok {
		return nil, b.fail("Задача для переключения не найдена", msgToggleFailed,
			fmt.Errorf("%w: %s", ErrUnknownTask, id), zap.String("task_id", id.String()))
	}

	toggled := ToggleStatus(*current)
	updated, err := b.repo.UpdateTask(ctx, id, task.FieldsOf(toggled))
	if err != nil {
		return nil, b.fail("Не удалось переключить статус", msgToggleFailed, err, zap.String("task_id", id.String()))
	}

	b.succeed(ctx, msgToggled)
	return updated, nil
}

// succeed закрывает форму, показывает сообщение и перезагружает списки.
// Ошибка перезагрузки уже отражена в сообщении и на результат операции не влияет.
func (b *Board) succeed(ctx context.Context, text string) {
	b.mu.Lock()
	b.state = b.state.CloseForm().WithNotice(NoticeSuccess, text, b.now().Add(b.ttl))
	b.mu.Unlock()

	_ = b.Refresh(ctx)
}
