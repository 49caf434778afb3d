package neo4j

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
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// время хранится строкой фиксированной ширины в UTC, чтобы ORDER BY сортировал хронологически
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Storage struct {
	driver   neo4j.DriverWithContext
	database string
}

func New(ctx context.Context, uri, username, password, database string) (*Storage, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		logger.Error("Repository: Ошибка создания драйвера Neo4j", err)
		return nil, fmt.Errorf("создание драйвера: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		logger.Error("Repository: Neo4j недоступен", err)
		return nil, fmt.Errorf("проверка соединения: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к Neo4j", zap.String("uri", uri))
	return &Storage{driver: driver, database: database}, nil
}

func (s *Storage) Close(ctx context.Context) {
	if err := s.driver.Close(ctx); err != nil {
		logger.Error("Repository: Ошибка закрытия драйвера Neo4j", err)
		return
	}
	logger.Info("Repository: Закрытие соединения Neo4j")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		logger.Error("Repository: Neo4j недоступен", err)
		return fmt.Errorf("проверка соединения: %w", err)
	}
	return nil
}

func (s *Storage) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// EnsureSchema создаёт ограничение уникальности id задачи.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, "CREATE CONSTRAINT task_id IF NOT EXISTS FOR (t:Task) REQUIRE t.id IS UNIQUE", nil)
		return nil, err
	})
	if err != nil {
		logger.Error("Repository: Не удалось создать ограничения Neo4j", err)
		return fmt.Errorf("создание схемы: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func optString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func optTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func propString(props map[string]any, key string) string {
	v, _ := props[key].(string)
	return v
}

func propStringPtr(props map[string]any, key string) *string {
	v, ok := props[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func propTimePtr(props map[string]any, key string) (*time.Time, error) {
	v, ok := props[key].(string)
	if !ok {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return nil, fmt.Errorf("свойство %s: %w", key, err)
	}
	return &t, nil
}

func recordToTask(record *neo4j.Record) (*task.Task, error) {
	raw, ok := record.Get("t")
	if !ok {
		return nil, errors.New("в записи нет узла задачи")
	}
	node, ok := raw.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("неожиданный тип узла %T", raw)
	}
	props := node.Props

	id, err := uuid.Parse(propString(props, "id"))
	if err != nil {
		return nil, fmt.Errorf("id задачи: %w", err)
	}

	t := &task.Task{
		UUID:        id,
		Title:       propString(props, "title"),
		Description: propStringPtr(props, "description"),
		Status:      task.Status(propString(props, "status")),
		Priority:    task.Priority(propString(props, "priority")),
		Category:    task.Category(propString(props, "category")),
		DueDate:     propStringPtr(props, "dueDate"),
		Flag:        task.Flag(propString(props, "flag")),
	}
	if v, ok := props["version"].(int64); ok {
		t.Version = int(v)
	}

	created, err := propTimePtr(props, "createdAt")
	if err != nil {
		return nil, err
	}
	if created != nil {
		t.CreatedAt = *created
	}
	if t.UpdatedAt, err = propTimePtr(props, "updatedAt"); err != nil {
		return nil, err
	}
	if t.DeletedAt, err = propTimePtr(props, "deletedAt"); err != nil {
		return nil, err
	}

	if parent, ok := record.Get("parentId"); ok && parent != nil {
		pid, err := uuid.Parse(parent.(string))
		if err != nil {
			return nil, fmt.Errorf("id родителя: %w", err)
		}
		t.ParentTaskID = &pid
	}
	return t, nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			"CREATE (t:Task {id: $id, title: $title, description: $description, status: $status, "+
				"priority: $priority, category: $category, dueDate: $dueDate, createdAt: $createdAt, "+
				"version: 1, flag: $flag})",
			map[string]any{
				"id":          taskToCreate.UUID.String(),
				"title":       taskToCreate.Title,
				"description": optString(taskToCreate.Description),
				"status":      string(taskToCreate.Status),
				"priority":    string(taskToCreate.Priority),
				"category":    string(taskToCreate.Category),
				"dueDate":     optString(taskToCreate.DueDate),
				"createdAt":   formatTime(now),
				"flag":        string(task.FlagActive),
			},
		)
		if err != nil {
			return nil, err
		}

		if taskToCreate.ParentTaskID != nil {
			res, err := tx.Run(ctx,
				"MATCH (child:Task {id: $childID}), (parent:Task {id: $parentID}) "+
					"CREATE (child)-[:HAS_PARENT]->(parent) RETURN parent.id",
				map[string]any{
					"childID":  taskToCreate.UUID.String(),
					"parentID": taskToCreate.ParentTaskID.String(),
				},
			)
			if err != nil {
				return nil, err
			}
			if _, err := res.Single(ctx); err != nil {
				return nil, fmt.Errorf("родительская задача %s: %w", taskToCreate.ParentTaskID, repo.ErrNotFound)
			}
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err)
		return fmt.Errorf("добавление задачи: %w", err)
	}

	taskToCreate.CreatedAt = now
	taskToCreate.Flag = task.FlagActive
	taskToCreate.Version = 1
	return nil
}

const returnTask = " OPTIONAL MATCH (t)-[:HAS_PARENT]->(p:Task) RETURN t, p.id AS parentId"

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (t:Task {id: $id})"+returnTask, map[string]any{"id": id.String()})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, repo.ErrNotFound
		}
		return recordToTask(res.Record())
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err)
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return result.(*task.Task), nil
}

// checkVersion выполняется в той же транзакции, что и запись
func checkVersion(ctx context.Context, tx neo4j.ManagedTransaction, id uuid.UUID, version int) error {
	res, err := tx.Run(ctx, "MATCH (t:Task {id: $id}) RETURN t.version AS version", map[string]any{"id": id.String()})
	if err != nil {
		return err
	}
	if !res.Next(ctx) {
		if err := res.Err(); err != nil {
			return err
		}
		return repo.ErrNotFound
	}
	current, _ := res.Record().Get("version")
	if v, ok := current.(int64); !ok || int(v) != version {
		return repo.ErrVersionConflict
	}
	return nil
}

func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := checkVersion(ctx, tx, taskToUpdate.UUID, taskToUpdate.Version); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id}) SET t.title = $title, t.description = $description, "+
				"t.status = $status, t.priority = $priority, t.category = $category, t.dueDate = $dueDate, "+
				"t.updatedAt = $updatedAt, t.version = t.version + 1",
			map[string]any{
				"id":          taskToUpdate.UUID.String(),
				"title":       taskToUpdate.Title,
				"description": optString(taskToUpdate.Description),
				"status":      string(taskToUpdate.Status),
				"priority":    string(taskToUpdate.Priority),
				"category":    string(taskToUpdate.Category),
				"dueDate":     optString(taskToUpdate.DueDate),
				"updatedAt":   formatTime(now),
			},
		)
		return nil, err
	})
	if err != nil {
		return s.writeError(err, "обновление", taskToUpdate)
	}

	taskToUpdate.UpdatedAt = &now
	taskToUpdate.Version++
	return nil
}

func (s *Storage) writeError(err error, op string, target *task.Task) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return repo.ErrNotFound
	case errors.Is(err, repo.ErrVersionConflict):
		logger.Warn("Repository: Конфликт версий",
			zap.String("operation", op),
			zap.String("task_id", target.UUID.String()),
			zap.Int("expected_version", target.Version))
		return repo.ErrVersionConflict
	}
	logger.Error("Repository: Ошибка записи в Neo4j", err, zap.String("operation", op))
	return fmt.Errorf("%s: %w", op, err)
}

// мягкое удаление задачи
func (s *Storage) DeleteSoft(ctx context.Context, taskToDelete *task.Task) error {
	return s.setFlag(ctx, taskToDelete, task.FlagDeleted, "мягкое удаление")
}

// восстановление мягко удалённой задачи
func (s *Storage) Restore(ctx context.Context, taskToRestore *task.Task) error {
	return s.setFlag(ctx, taskToRestore, task.FlagActive, "восстановление")
}

func (s *Storage) setFlag(ctx context.Context, target *task.Task, flag task.Flag, op string) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	now := time.Now().UTC().Truncate(time.Microsecond)
	var deletedAt *time.Time
	if flag == task.FlagDeleted {
		deletedAt = &now
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := checkVersion(ctx, tx, target.UUID, target.Version); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id}) SET t.flag = $flag, t.deletedAt = $deletedAt, "+
				"t.updatedAt = $updatedAt, t.version = t.version + 1",
			map[string]any{
				"id":        target.UUID.String(),
				"flag":      string(flag),
				"deletedAt": optTime(deletedAt),
				"updatedAt": formatTime(now),
			},
		)
		return nil, err
	})
	if err != nil {
		return s.writeError(err, op, target)
	}

	target.Flag = flag
	target.DeletedAt = deletedAt
	target.UpdatedAt = &now
	target.Version++
	return nil
}

func buildListQuery(q task.Query) (string, map[string]any) {
	conds := []string{}
	params := map[string]any{}

	if q.Flag != "" {
		conds = append(conds, "t.flag = $flag")
		params["flag"] = string(q.Flag)
	}
	if q.TopLevelOnly {
		conds = append(conds, "NOT (t)-[:HAS_PARENT]->(:Task)")
	}
	if q.ParentID != nil {
		conds = append(conds, "(t)-[:HAS_PARENT]->(:Task {id: $parentId})")
		params["parentId"] = q.ParentID.String()
	}
	if q.Status != nil {
		conds = append(conds, "t.status = $status")
		params["status"] = string(*q.Status)
	}
	if q.Category != nil {
		conds = append(conds, "t.category = $category")
		params["category"] = string(*q.Category)
	}
	if q.Keyword != "" {
		conds = append(conds, "(toLower(t.title) CONTAINS $keyword OR toLower(coalesce(t.description, '')) CONTAINS $keyword)")
		params["keyword"] = strings.ToLower(q.Keyword)
	}
	if q.DueFrom != nil {
		conds = append(conds, "t.dueDate >= $dueFrom")
		params["dueFrom"] = q.DueFrom.Format(task.DateLayout)
	}
	if q.DueTo != nil {
		conds = append(conds, "t.dueDate <= $dueTo")
		params["dueTo"] = q.DueTo.Format(task.DateLayout)
	}

	query := "MATCH (t:Task)"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += returnTask
	if q.Flag == task.FlagDeleted {
		query += " ORDER BY t.deletedAt DESC, t.createdAt DESC"
	} else {
		query += " ORDER BY t.createdAt DESC"
	}
	return query, params
}

func (s *Storage) List(ctx context.Context, q task.Query) ([]*task.Task, error) {
	start := time.Now()
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query, params := buildListQuery(q)
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		tasks := []*task.Task{}
		for res.Next(ctx) {
			t, err := recordToTask(res.Record())
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return tasks, nil
	})
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return result.([]*task.Task), nil
}
