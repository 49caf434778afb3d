package worker

import (
	"context"
	"fmt"
	"taskManager/internal/board"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/service"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	defaultInterval  = 5 * time.Minute
	defaultBatchSize = 100
)

// OverdueWorker периодически считает просроченные активные задачи.
// Задачи он не меняет: просрочка вычисляется при чтении.
type OverdueWorker struct {
	repo      service.TaskRepository
	interval  time.Duration
	batchSize int
	now       func() time.Time

	overdue prometheus.Gauge
	checks  *prometheus.CounterVec
}

func NewOverdueWorker(repo service.TaskRepository, reg prometheus.Registerer, interval *time.Duration, batchSize *int) *OverdueWorker {
	intervalToSet := defaultInterval
	if interval != nil && *interval > 0 {
		intervalToSet = *interval
	}

	batchToSet := defaultBatchSize
	if batchSize != nil && *batchSize > 0 {
		batchToSet = *batchSize
	}

	factory := promauto.With(reg)
	return &OverdueWorker{
		repo:      repo,
		interval:  intervalToSet,
		batchSize: batchToSet,
		now:       time.Now,
		overdue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskmanager",
			Name:      "tasks_overdue",
			Help:      "Число активных незавершённых задач с истёкшим сроком.",
		}),
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskmanager",
			Name:      "overdue_checks_total",
			Help:      "Запуски фоновой проверки по результату.",
		}, []string{"result"}),
	}
}

func (w *OverdueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ticker.C:
			logger.Info("Worker: Фоновая проверка задач на просроченность", zap.Time("started_at", w.now()))
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Фоновая проверка останавливается")
			return
		}
	}
}

// Check возвращает число просроченных задач, -1 при ошибке чтения.
func (w *OverdueWorker) Check(ctx context.Context) int {
	start := time.Now()

	tasks, err := w.getAllActiveTasks(ctx)
	if err != nil {
		w.checks.WithLabelValues("error").Inc()
		logger.Warn("Worker: ошибка получения задач", zap.Error(err))
		return -1
	}

	now := w.now()
	overdueCount := 0
	sample := make([]string, 0, w.batchSize)
	for _, t := range tasks {
		if !board.IsOverdue(t.DueDate, t.Status, now) {
			continue
		}
		overdueCount++
		if len(sample) < w.batchSize {
			sample = append(sample, t.UUID.String())
		}
	}

	w.overdue.Set(float64(overdueCount))
	w.checks.WithLabelValues("ok").Inc()

	logger.Info(
		"Worker: Завершение проверки задач",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", len(tasks)),
		zap.Int("overdue", overdueCount),
	)
	if overdueCount > 0 {
		logger.Debug("Worker: Просроченные задачи", zap.Strings("task_ids", sample))
	}
	return overdueCount
}

func (w *OverdueWorker) getAllActiveTasks(ctx context.Context) ([]*task.Task, error) {
	tasks, err := w.repo.List(ctx, task.Query{Flag: task.FlagActive})
	if err != nil {
		return nil, fmt.Errorf("получение активных задач: %w", err)
	}
	return tasks, nil
}
