package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"taskManager/internal/config"
	"taskManager/internal/handlers"
	"taskManager/internal/logger"
	"taskManager/internal/repository/task/inmemory"
	graph "taskManager/internal/repository/task/neo4j"
	"taskManager/internal/repository/task/postgres"
	"taskManager/internal/service"
	"taskManager/internal/worker"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type App struct {
	config     *config.Config
	server     *http.Server
	handler    http.Handler
	registry   *prometheus.Registry
	repository service.TaskRepository
	service    *service.TaskService
	worker     *worker.OverdueWorker
	shutdowns  []func(ctx context.Context) // функции для graceful shutdown, вызываются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(ctx context.Context), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func(context.Context) {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initRepository(ctx); err != nil {
		return err
	}
	a.service = service.NewTaskService(a.repository)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := handlers.NewRouter(handlers.NewTaskHandler(a.service), handlers.RouterConfig{
		RequestTimeout: a.config.Server.RequestTimeout,
		RateLimitRPM:   a.config.Server.RateLimitRPM,
		AllowedOrigins: a.config.Server.AllowedOrigins,
		Registry:       a.registry,
	})
	a.handler = otelhttp.NewHandler(router, "task-manager")

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.handler,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	if a.config.Worker.Enabled {
		interval := a.config.Worker.Interval
		batch := a.config.Worker.BatchSize
		a.worker = worker.NewOverdueWorker(a.repository, a.registry, &interval, &batch)
	}

	logger.Info("Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.String("addr", a.server.Addr),
		zap.Bool("worker", a.worker != nil))
	return nil
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.Repository.Type {
	case config.RepoPostgres:
		db := a.config.Database
		storage, err := postgres.New(ctx, db.URL, &postgres.PoolConfig{
			MaxConns:        db.MaxConnections,
			MinConns:        db.MinConnections,
			MaxConnIdleTime: db.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("подключение к postgres: %w", err)
		}
		if db.MigrateOnStartup {
			if err := storage.Migrate(ctx); err != nil {
				storage.Close()
				return fmt.Errorf("миграции postgres: %w", err)
			}
		}
		a.repository = storage
		a.shutdowns = append(a.shutdowns, func(context.Context) {
			logger.Info("Закрытие пула postgres...")
			storage.Close()
		})

	case config.RepoNeo4j:
		n := a.config.Neo4j
		storage, err := graph.New(ctx, n.URI, n.Username, n.Password, n.Database)
		if err != nil {
			return fmt.Errorf("подключение к neo4j: %w", err)
		}
		if err := storage.EnsureSchema(ctx); err != nil {
			storage.Close(ctx)
			return fmt.Errorf("схема neo4j: %w", err)
		}
		a.repository = storage
		a.shutdowns = append(a.shutdowns, func(ctx context.Context) {
			logger.Info("Закрытие драйвера neo4j...")
			storage.Close(ctx)
		})

	case config.RepoInMemory:
		a.repository = inmemory.NewTaskStorage()

	default:
		return fmt.Errorf("неизвестный тип репозитория %q", a.config.Repository.Type)
	}
	return nil
}

// Handler - корневой обработчик, доступен после Init.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run запускает сервер и воркер и блокируется до отмены ctx или ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	if a.server == nil {
		return errors.New("приложение не инициализировано")
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if a.worker != nil {
		go a.worker.Start(workerCtx)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Получен сигнал остановки")
	case err := <-serverErr:
		if err != nil {
			logger.Error("Сервер остановлен с ошибкой", err)
			runErr = fmt.Errorf("http сервер: %w", err)
		}
	}

	stopWorker()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()
	a.Shutdown(shutdownCtx)
	return runErr
}

func (a *App) Shutdown(ctx context.Context) {
	if a.server != nil {
		start := time.Now()
		if err := a.server.Shutdown(ctx); err != nil {
			logger.Error("Ошибка остановки сервера", err)
		} else {
			logger.Info("Сервер остановлен", zap.Duration("ms", time.Since(start)))
		}
	}

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i](ctx)
	}
	a.shutdowns = nil
}
