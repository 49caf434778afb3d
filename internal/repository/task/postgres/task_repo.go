package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

type Storage struct {
	pool       *pgxpool.Pool
	connString string
}

const selectColumns = `uuid,
				title,
				description,
				status,
				priority,
				category,
				due_date,
				parent_task_id,
				created_at,
				updated_at,
				deleted_at,
				version,
				flag`

func New(ctx context.Context, connString string, poolCfg *PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			config.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			config.MinConns = poolCfg.MinConns
		}
		if poolCfg.MaxConnIdleTime > 0 {
			config.MaxConnIdleTime = poolCfg.MaxConnIdleTime
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool, connString: connString}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func warnIfSlow(start time.Time, threshold time.Duration, op string) {
	if elapsed := time.Since(start); elapsed > threshold {
		logger.Warn("Repository: Медленный запрос", zap.String("operation", op), zap.Duration("ms", elapsed))
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	t := &task.Task{}
	var due *time.Time

	err := row.Scan(
		&t.UUID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.Category,
		&due,
		&t.ParentTaskID,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.DeletedAt,
		&t.Version,
		&t.Flag,
	)
	if err != nil {
		return nil, err
	}
	if due != nil {
		t.DueDate = task.FormatDueDate(*due)
	}
	return t, nil
}

// в БД срок хранится как DATE
func dueDateArg(due *string) (*time.Time, error) {
	if due == nil {
		return nil, nil
	}
	d, err := task.ParseDueDate(*due, time.UTC)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer warnIfSlow(start, 50*time.Millisecond, "create")

	due, err := dueDateArg(taskToCreate.DueDate)
	if err != nil {
		return fmt.Errorf("добавление задачи: %w", err)
	}

	query := `INSERT INTO tasks
				(uuid, title, description, status, priority, category, due_date, parent_task_id, created_at, flag, version)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), $9, 1)
				RETURNING created_at, version`

	err = s.pool.QueryRow(ctx, query,
		taskToCreate.UUID,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.Status,
		taskToCreate.Priority,
		taskToCreate.Category,
		due,
		taskToCreate.ParentTaskID,
		task.FlagActive,
	).Scan(&taskToCreate.CreatedAt, &taskToCreate.Version)

	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}
	taskToCreate.Flag = task.FlagActive
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer warnIfSlow(start, 100*time.Millisecond, "get_by_id")

	query := `SELECT ` + selectColumns + `
				FROM tasks
				WHERE uuid = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()
	defer warnIfSlow(start, 100*time.Millisecond, "update")

	due, err := dueDateArg(taskToUpdate.DueDate)
	if err != nil {
		return fmt.Errorf("обновление задачи: %w", err)
	}

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				status = $3,
				priority = $4,
				category = $5,
				due_date = $6,
				version = version + 1,
				updated_at = NOW()
			WHERE uuid = $7 AND version = $8
			RETURNING updated_at, version`

	err = s.pool.QueryRow(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.Status,
		taskToUpdate.Priority,
		taskToUpdate.Category,
		due,
		taskToUpdate.UUID,
		taskToUpdate.Version,
	).Scan(&taskToUpdate.UpdatedAt, &taskToUpdate.Version)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Warn("Repository: Конфликт версий при обновлении задачи",
				zap.String("task_id", taskToUpdate.UUID.String()),
				zap.Int("expected_version", taskToUpdate.Version))
			return repo.ErrVersionConflict
		}
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}
	return nil
}

// мягкое удаление задачи
func (s *Storage) DeleteSoft(ctx context.Context, taskToDelete *task.Task) error {
	query := `UPDATE tasks
				SET deleted_at = NOW(),
				updated_at = NOW(),
				flag = $1,
				version = version + 1
			WHERE uuid = $2 AND version = $3
			RETURNING updated_at, deleted_at, version`

	return s.setFlag(ctx, query, taskToDelete, task.FlagDeleted, "мягкое удаление")
}

// восстановление мягко удалённой задачи
func (s *Storage) Restore(ctx context.Context, taskToRestore *task.Task) error {
	query := `UPDATE tasks
				SET deleted_at = NULL,
				updated_at = NOW(),
				flag = $1,
				version = version + 1
			WHERE uuid = $2 AND version = $3
			RETURNING updated_at, deleted_at, version`

	return s.setFlag(ctx, query, taskToRestore, task.FlagActive, "восстановление")
}

func (s *Storage) setFlag(ctx context.Context, query string, target *task.Task, flag task.Flag, op string) error {
	start := time.Now()
	defer warnIfSlow(start, 100*time.Millisecond, op)

	err := s.pool.QueryRow(ctx, query, flag, target.UUID, target.Version).
		Scan(&target.UpdatedAt, &target.DeletedAt, &target.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Warn("Repository: Конфликт версий",
				zap.String("operation", op),
				zap.String("task_id", target.UUID.String()),
				zap.Int("expected_version", target.Version))
			return repo.ErrVersionConflict
		}
		logger.Error("Repository: Ошибка смены флага", err, zap.String("operation", op))
		return fmt.Errorf("%s: %w", op, err)
	}
	target.Flag = flag
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// buildListQuery собирает WHERE из непустых полей запроса.
func buildListQuery(q task.Query) (string, []any) {
	conds := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Flag != "" {
		conds = append(conds, "flag = "+arg(q.Flag))
	}
	if q.TopLevelOnly {
		conds = append(conds, "parent_task_id IS NULL")
	}
	if q.ParentID != nil {
		conds = append(conds, "parent_task_id = "+arg(*q.ParentID))
	}
	if q.Status != nil {
		conds = append(conds, "status = "+arg(*q.Status))
	}
	if q.Category != nil {
		conds = append(conds, "category = "+arg(*q.Category))
	}
	if q.Keyword != "" {
		p := arg("%" + q.Keyword + "%")
		conds = append(conds, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}
	if q.DueFrom != nil {
		conds = append(conds, "due_date >= "+arg(dateOnly(*q.DueFrom)))
	}
	if q.DueTo != nil {
		conds = append(conds, "due_date <= "+arg(dateOnly(*q.DueTo)))
	}

	query := `SELECT ` + selectColumns + ` FROM tasks`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if q.Flag == task.FlagDeleted {
		query += " ORDER BY deleted_at DESC NULLS LAST, created_at DESC"
	} else {
		query += " ORDER BY created_at DESC"
	}
	return query, args
}

func (s *Storage) List(ctx context.Context, q task.Query) ([]*task.Task, error) {
	start := time.Now()
	defer warnIfSlow(start, 200*time.Millisecond, "list")

	query, args := buildListQuery(q)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования задачи", err)
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}
