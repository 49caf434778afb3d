package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	rep "taskManager/internal/repository"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

type TaskService struct {
	repo TaskRepository
}

func NewTaskService(repo TaskRepository) *TaskService {
	return &TaskService{
		repo: repo,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

// getTask переводит ошибки репозитория в бизнес-ошибки
func (s *TaskService) getTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
			return nil, NewNotFound(TaskResource, id.String())
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

func writeError(id uuid.UUID, err error, op string) error {
	switch {
	case errors.Is(err, rep.ErrVersionConflict):
		return newVersionConflict(id.String(), err)
	case errors.Is(err, rep.ErrNotFound):
		return NewNotFound(TaskResource, id.String())
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *TaskService) list(ctx context.Context, q task.Query) ([]*task.Task, error) {
	tasks, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return tasks, nil
}

// ListTasks - активные задачи верхнего уровня, новые первыми
func (s *TaskService) ListTasks(ctx context.Context) ([]*task.Task, error) {
	return s.list(ctx, task.Query{Flag: task.FlagActive, TopLevelOnly: true})
}

// ListDeleted - мягко удалённые задачи, недавно удалённые первыми
func (s *TaskService) ListDeleted(ctx context.Context) ([]*task.Task, error) {
	return s.list(ctx, task.Query{Flag: task.FlagDeleted})
}

func (s *TaskService) ListSubtasks(ctx context.Context, parentID uuid.UUID) ([]*task.Task, error) {
	return s.list(ctx, task.Query{Flag: task.FlagActive, ParentID: &parentID})
}

func (s *TaskService) ListByStatus(ctx context.Context, status task.Status) ([]*task.Task, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("неизвестный статус %q", status))
	}
	return s.list(ctx, task.Query{Flag: task.FlagActive, Status: &status})
}

func (s *TaskService) ListByCategory(ctx context.Context, category task.Category) ([]*task.Task, error) {
	if !category.Valid() {
		return nil, NewValidationError("category", fmt.Sprintf("неизвестная категория %q", category))
	}
	return s.list(ctx, task.Query{Flag: task.FlagActive, Category: &category})
}

func (s *TaskService) Search(ctx context.Context, keyword string) ([]*task.Task, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, NewValidationError("keyword", "пустая строка поиска")
	}
	return s.list(ctx, task.Query{Flag: task.FlagActive, Keyword: keyword})
}

// ListDueBetween - активные задачи со сроком в диапазоне [from, to] включительно
func (s *TaskService) ListDueBetween(ctx context.Context, from, to time.Time) ([]*task.Task, error) {
	if to.Before(from) {
		return nil, NewValidationError("to", "конец диапазона раньше начала")
	}
	return s.list(ctx, task.Query{Flag: task.FlagActive, DueFrom: &from, DueTo: &to})
}

func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsDeleted() {
		return nil, NewBusinessError(CodeTaskDeleted, "Задача удалена", ToDetail("id", id.String()))
	}
	return t, nil
}

// normalizeFields проверяет и приводит к каноническому виду поля задачи
func normalizeFields(f task.Fields) (task.Fields, error) {
	f = f.WithDefaults()

	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return f, NewValidationError("title", "заголовок обязателен")
	}
	if utf8.RuneCountInString(f.Title) > task.MaxTitleLength {
		return f, NewValidationError("title", fmt.Sprintf("заголовок длиннее %d символов", task.MaxTitleLength))
	}

	if !f.Status.Valid() {
		return f, NewValidationError("status", fmt.Sprintf("неизвестный статус %q", f.Status))
	}
	if !f.Priority.Valid() {
		return f, NewValidationError("priority", fmt.Sprintf("неизвестный приоритет %q", f.Priority))
	}
	if !f.Category.Valid() {
		return f, NewValidationError("category", fmt.Sprintf("неизвестная категория %q", f.Category))
	}

	if f.DueDate != nil && strings.TrimSpace(*f.DueDate) != "" {
		due, err := task.ParseDueDate(strings.TrimSpace(*f.DueDate), time.UTC)
		if err != nil {
			return f, NewValidationError("dueDate", err.Error())
		}
		f.DueDate = task.FormatDueDate(due)
	} else {
		f.DueDate = nil
	}
	return f, nil
}

// checkParent допускает только один уровень вложенности
func (s *TaskService) checkParent(ctx context.Context, parentID uuid.UUID) error {
	parent, err := s.repo.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewValidationError("parentTaskId", "родительская задача не найдена")
		}
		return fmt.Errorf("получение родительской задачи: %w", err)
	}
	if parent.IsDeleted() {
		return NewValidationError("parentTaskId", "родительская задача удалена")
	}
	if !parent.IsTopLevel() {
		return NewValidationError("parentTaskId", "подзадача не может иметь подзадач")
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, fields task.Fields) (*task.Task, error) {
	fields, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}

	if fields.ParentTaskID != nil {
		if err := s.checkParent(ctx, *fields.ParentTaskID); err != nil {
			return nil, err
		}
	}

	newTask := &task.Task{UUID: uuid.New()}
	newTask.Apply(fields.Options()...)
	newTask.Apply(task.WithParent(fields.ParentTaskID))

	if err := s.repo.Create(ctx, newTask); err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	logger.Info("Service: Задача создана", zap.String("task_id", newTask.UUID.String()))
	return newTask, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id uuid.UUID, fields task.Fields) (*task.Task, error) {
	fields, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}

	existing, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.IsDeleted() {
		return nil, NewBusinessError(CodeTaskDeleted, "Нельзя изменить удалённую задачу", ToDetail("id", id.String()))
	}

	if fields.ParentTaskID != nil && (existing.ParentTaskID == nil || *existing.ParentTaskID != *fields.ParentTaskID) {
		return nil, NewValidationError("parentTaskId", "родительскую задачу нельзя изменить")
	}

	existing.Apply(fields.Options()...)
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, writeError(id, err, "обновление задачи")
	}
	return existing, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	existing, err := s.getTask(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsDeleted() {
		return NewBusinessError(CodeAlreadyDeleted, "Задача уже удалена", ToDetail("id", id.String()))
	}

	if err := s.repo.DeleteSoft(ctx, existing); err != nil {
		return writeError(id, err, "удаление задачи")
	}

	logger.Info("Service: Задача удалена", zap.String("task_id", id.String()))
	return nil
}

func (s *TaskService) RestoreTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	existing, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.IsDeleted() {
		return nil, NewBusinessError(CodeNotDeleted, "Задача не удалена", ToDetail("id", id.String()))
	}

	if err := s.repo.Restore(ctx, existing); err != nil {
		return nil, writeError(id, err, "восстановление задачи")
	}

	logger.Info("Service: Задача восстановлена", zap.String("task_id", id.String()))
	return existing, nil
}
