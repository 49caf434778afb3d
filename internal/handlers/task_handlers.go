package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const serviceName = "task-manager"

type TaskHandler struct {
	TaskService TaskService
	now         func() time.Time
}

func NewTaskHandler(taskService TaskService) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
		now:         time.Now,
	}
}

func (s *TaskHandler) writeTask(w http.ResponseWriter, code int, t *task.Task) {
	responseWithJSON(w, code, toPayload("task", dto.FromTask(t, s.now())))
}

func (s *TaskHandler) writeTasks(w http.ResponseWriter, r *http.Request, start time.Time, tasks []*task.Task, err error, operation string) {
	if err != nil {
		handleServiceError(w, r, err, operation)
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.String("operation", operation),
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("tasks", dto.FromTaskList(tasks, s.now())),
		toPayload("count", len(tasks)),
	)
}

func (s *TaskHandler) badID(w http.ResponseWriter, r *http.Request, err error) {
	logger.Warn("HTTP: Не удалось получить id",
		zap.Error(err),
		zap.String("client_ip", r.RemoteAddr))

	responseWithError(w, http.StatusBadRequest, "VALIDATION_ERROR", "неверный id: "+err.Error())
}

// decodeFields проверяет Content-Type и разбирает тело запроса
func decodeFields(w http.ResponseWriter, r *http.Request) (task.Fields, bool) {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type должен быть application/json")
		return task.Fields{}, false
	}

	var request dto.TaskRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "VALIDATION_ERROR", "неверное тело запроса: "+err.Error())
		return task.Fields{}, false
	}

	fields, err := request.ToFields()
	if err != nil {
		var fieldErr *dto.FieldError
		if errors.As(err, &fieldErr) {
			logger.Warn("HTTP: Ошибка валидации",
				zap.String("field", fieldErr.Field),
				zap.String("error", fieldErr.Reason),
				zap.String("client_ip", r.RemoteAddr))

			responseWithJSON(w, http.StatusBadRequest,
				toPayload("error", "VALIDATION_ERROR"),
				toPayload("message", fieldErr.Error()),
				toPayload("details", map[string]any{"field": fieldErr.Field, "reason": fieldErr.Reason}),
			)
			return task.Fields{}, false
		}
		responseWithError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return task.Fields{}, false
	}
	return fields, true
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Сервис нездоров", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unhealthy"),
			toPayload("service", serviceName),
			toPayload("message", err.Error()),
		)
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", serviceName),
	)
}

// GET /tasks
func (s *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tasks, err := s.TaskService.ListTasks(r.Context())
	s.writeTasks(w, r, start, tasks, err, "list_tasks")
}

// GET /tasks/deleted
func (s *TaskHandler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tasks, err := s.TaskService.ListDeleted(r.Context())
	s.writeTasks(w, r, start, tasks, err, "list_deleted")
}

// GET /tasks/search?keyword=
func (s *TaskHandler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tasks, err := s.TaskService.Search(r.Context(), r.URL.Query().Get("keyword"))
	s.writeTasks(w, r, start, tasks, err, "search")
}

// GET /tasks/status/{status}
func (s *TaskHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	status, err := task.ParseStatus(chi.URLParam(r, "status"))
	if err != nil {
		logger.Warn("HTTP: Неверное значение параметра", zap.String("param", "status"), zap.Error(err))
		responseWithError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	tasks, err := s.TaskService.ListByStatus(r.Context(), status)
	s.writeTasks(w, r, start, tasks, err, "list_by_status")
}

// GET /tasks/category/{category}
func (s *TaskHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	category, err := task.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		logger.Warn("HTTP: Неверное значение параметра", zap.String("param", "category"), zap.Error(err))
		responseWithError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	tasks, err := s.TaskService.ListByCategory(r.Context(), category)
	s.writeTasks(w, r, start, tasks, err, "list_by_category")
}

// GET /tasks/due?from=&to=
func (s *TaskHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	from, err := parseDateParam(r, "from")
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "VALIDATION_ERROR", "from: "+err.Error())
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "VALIDATION_ERROR", "to: "+err.Error())
		return
	}

	tasks, err := s.TaskService.ListDueBetween(r.Context(), from, to)
	s.writeTasks(w, r, start, tasks, err, "list_due")
}

// GET /tasks/{id}/subtasks
func (s *TaskHandler) ListSubtasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseID(r)
	if err != nil {
		s.badID(w, r, err)
		return
	}

	tasks, err := s.TaskService.ListSubtasks(r.Context(), id)
	s.writeTasks(w, r, start, tasks, err, "list_subtasks")
}

// POST /tasks
func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}

	logger.Info("HTTP: Вызов сервиса создания задач")
	created, err := s.TaskService.CreateTask(r.Context(), fields)
	if err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	s.writeTask(w, http.StatusCreated, created)
}

// GET /tasks/{id}
func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseID(r)
	if err != nil {
		s.badID(w, r, err)
		return
	}

	found, err := s.TaskService.GetTask(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	logger.Info("HTTP_OUT: Задача получена",
		zap.String("task_id", found.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	s.writeTask(w, http.StatusOK, found)
}

// PUT /tasks/{id}
func (s *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseID(r)
	if err != nil {
		s.badID(w, r, err)
		return
	}

	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}

	logger.Info("HTTP: запрос к сервису обновления данных")
	updated, err := s.TaskService.UpdateTask(r.Context(), id, fields)
	if err != nil {
		handleServiceError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	s.writeTask(w, http.StatusOK, updated)
}

// DELETE /tasks/{id}
func (s *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseID(r)
	if err != nil {
		s.badID(w, r, err)
		return
	}

	logger.Info("HTTP: Обращение к сервису для удаления задачи")
	if err := s.TaskService.DeleteTask(r.Context(), id); err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

// PUT /tasks/{id}/restore
func (s *TaskHandler) RestoreTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseID(r)
	if err != nil {
		s.badID(w, r, err)
		return
	}

	restored, err := s.TaskService.RestoreTask(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "restore_task")
		return
	}

	logger.Info("HTTP_OUT: Задача восстановлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	s.writeTask(w, http.StatusOK, restored)
}
