package postgres_test

import (
	"context"
	"fmt"
	"taskManager/internal/models/task"
	"taskManager/internal/repository"
	"taskManager/internal/repository/task/postgres"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestSuite для интеграционных тестов с PostgreSQL
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	ctx        context.Context
	connString string
}

func strPtr(s string) *string { return &s }

func newTask(title string) *task.Task {
	return &task.Task{
		UUID:     uuid.New(),
		Title:    title,
		Status:   task.StatusPending,
		Priority: task.PriorityMedium,
		Category: task.CategoryPersonal,
	}
}

// SetupSuite запускается один раз перед всеми тестами
func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	s.storage, err = postgres.New(s.ctx, s.connString, nil)
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.storage.Migrate(s.ctx))
}

// TearDownSuite очищает после всех тестов
func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		s.container.Terminate(s.ctx)
	}
}

// SetupTest очищает таблицу перед каждым тестом
func (s *PostgresTestSuite) SetupTest() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	if err != nil {
		s.T().Logf("Не удалось подключиться для очистки: %v", err)
		return
	}
	defer conn.Close(s.ctx)

	if _, err = conn.Exec(s.ctx, "DELETE FROM tasks"); err != nil {
		s.T().Logf("Не удалось очистить таблицу: %v", err)
	}
}

// TestPostgresTestSuite запускает suite
func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func (s *PostgresTestSuite) TestStorage_Migrate_Idempotent() {
	require.NoError(s.T(), s.storage.Migrate(s.ctx))
}

// TestStorage_Create тестирует создание задачи
func (s *PostgresTestSuite) TestStorage_Create() {
	taskToCreate := newTask("Test Task")
	taskToCreate.Description = strPtr("Test Description")
	taskToCreate.DueDate = strPtr("2024-05-10")

	err := s.storage.Create(s.ctx, taskToCreate)
	require.NoError(s.T(), err)
	assert.False(s.T(), taskToCreate.CreatedAt.IsZero())

	retrievedTask, err := s.storage.GetByID(s.ctx, taskToCreate.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Test Task", retrievedTask.Title)
	assert.Equal(s.T(), "Test Description", retrievedTask.DescriptionOrEmpty())
	require.NotNil(s.T(), retrievedTask.DueDate)
	assert.Equal(s.T(), "2024-05-10", *retrievedTask.DueDate)
	assert.Equal(s.T(), task.FlagActive, retrievedTask.Flag)
	assert.Equal(s.T(), 1, retrievedTask.Version)
	assert.Nil(s.T(), retrievedTask.ParentTaskID)
}

// TestStorage_GetByID тестирует получение задачи по ID
func (s *PostgresTestSuite) TestStorage_GetByID() {
	taskToCreate := newTask("Test Get Task")
	require.NoError(s.T(), s.storage.Create(s.ctx, taskToCreate))

	retrievedTask, err := s.storage.GetByID(s.ctx, taskToCreate.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), taskToCreate.UUID, retrievedTask.UUID)

	_, err = s.storage.GetByID(s.ctx, uuid.New())
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

// TestStorage_Update тестирует обновление задачи
func (s *PostgresTestSuite) TestStorage_Update() {
	taskToCreate := newTask("Original Title")
	require.NoError(s.T(), s.storage.Create(s.ctx, taskToCreate))

	taskToCreate.Title = "Updated Title"
	taskToCreate.Description = strPtr("Updated Description")
	taskToCreate.Status = task.StatusInProgress
	taskToCreate.DueDate = strPtr("2024-06-01")
	require.NoError(s.T(), s.storage.Update(s.ctx, taskToCreate))

	retrievedTask, err := s.storage.GetByID(s.ctx, taskToCreate.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Updated Title", retrievedTask.Title)
	assert.Equal(s.T(), "Updated Description", retrievedTask.DescriptionOrEmpty())
	assert.Equal(s.T(), task.StatusInProgress, retrievedTask.Status)
	assert.Equal(s.T(), "2024-06-01", *retrievedTask.DueDate)
	assert.NotNil(s.T(), retrievedTask.UpdatedAt)
	assert.Equal(s.T(), 2, retrievedTask.Version)
}

// TestStorage_Update_VersionConflict тестирует конфликт версий
func (s *PostgresTestSuite) TestStorage_Update_VersionConflict() {
	taskToCreate := newTask("Test Task")
	require.NoError(s.T(), s.storage.Create(s.ctx, taskToCreate))

	task1, err := s.storage.GetByID(s.ctx, taskToCreate.UUID)
	require.NoError(s.T(), err)
	task2, err := s.storage.GetByID(s.ctx, taskToCreate.UUID)
	require.NoError(s.T(), err)

	task1.Title = "Updated by task1"
	require.NoError(s.T(), s.storage.Update(s.ctx, task1))

	task2.Title = "Updated by task2"
	err = s.storage.Update(s.ctx, task2)
	assert.ErrorIs(s.T(), err, repository.ErrVersionConflict)
}

// TestStorage_DeleteSoftAndRestore тестирует мягкое удаление и восстановление
func (s *PostgresTestSuite) TestStorage_DeleteSoftAndRestore() {
	taskToCreate := newTask("Task to delete")
	require.NoError(s.T(), s.storage.Create(s.ctx, taskToCreate))

	require.NoError(s.T(), s.storage.DeleteSoft(s.ctx, taskToCreate))

	retrievedTask, err := s.storage.GetByID(s.ctx, taskToCreate.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), task.FlagDeleted, retrievedTask.Flag)
	assert.NotNil(s.T(), retrievedTask.DeletedAt)
	assert.Equal(s.T(), 2, retrievedTask.Version)

	require.NoError(s.T(), s.storage.Restore(s.ctx, retrievedTask))

	restored, err := s.storage.GetByID(s.ctx, taskToCreate.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), task.FlagActive, restored.Flag)
	assert.Nil(s.T(), restored.DeletedAt)
	assert.Equal(s.T(), 3, restored.Version)
}

// TestStorage_List тестирует выборки по запросу
func (s *PostgresTestSuite) TestStorage_List() {
	parent := newTask("Buy Milk")
	parent.DueDate = strPtr("2024-05-10")
	require.NoError(s.T(), s.storage.Create(s.ctx, parent))

	sub := newTask("sub")
	sub.ParentTaskID = &parent.UUID
	require.NoError(s.T(), s.storage.Create(s.ctx, sub))

	// created_at у быстрых последовательных вставок может совпасть
	time.Sleep(10 * time.Millisecond)

	work := newTask("Report")
	work.Category = task.CategoryWork
	work.Status = task.StatusCompleted
	work.Description = strPtr("quarterly GROCERIES budget")
	work.DueDate = strPtr("2024-06-01")
	require.NoError(s.T(), s.storage.Create(s.ctx, work))

	gone := newTask("Deleted Task")
	require.NoError(s.T(), s.storage.Create(s.ctx, gone))
	require.NoError(s.T(), s.storage.DeleteSoft(s.ctx, gone))

	completed := task.StatusCompleted
	workCategory := task.CategoryWork
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		query  task.Query
		titles []string
	}{
		{
			name:   "top-level active, newest first",
			query:  task.Query{Flag: task.FlagActive, TopLevelOnly: true},
			titles: []string{"Report", "Buy Milk"},
		},
		{
			name:   "subtasks of parent",
			query:  task.Query{Flag: task.FlagActive, ParentID: &parent.UUID},
			titles: []string{"sub"},
		},
		{
			name:   "deleted",
			query:  task.Query{Flag: task.FlagDeleted},
			titles: []string{"Deleted Task"},
		},
		{
			name:   "by status",
			query:  task.Query{Flag: task.FlagActive, Status: &completed},
			titles: []string{"Report"},
		},
		{
			name:   "by category",
			query:  task.Query{Flag: task.FlagActive, Category: &workCategory},
			titles: []string{"Report"},
		},
		{
			name:   "keyword",
			query:  task.Query{Flag: task.FlagActive, Keyword: "groceries"},
			titles: []string{"Report"},
		},
		{
			name:   "due range",
			query:  task.Query{Flag: task.FlagActive, DueFrom: &from, DueTo: &to},
			titles: []string{"Buy Milk"},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			tasks, err := s.storage.List(s.ctx, tt.query)
			require.NoError(s.T(), err)

			titles := make([]string, 0, len(tasks))
			for _, t := range tasks {
				titles = append(titles, t.Title)
			}
			assert.Equal(s.T(), tt.titles, titles)
		})
	}
}

// TestStorage_HealthCheck тестирует проверку здоровья
func (s *PostgresTestSuite) TestStorage_HealthCheck() {
	require.NoError(s.T(), s.storage.HealthCheck(s.ctx))
}

// Unit тесты (без базы данных)
func TestStorage_New(t *testing.T) {
	tests := []struct {
		name       string
		connString string
	}{
		{name: "invalid connection string", connString: "invalid"},
		{name: "unreachable host", connString: "postgres://u:p@127.0.0.1:1/db?connect_timeout=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			_, err := postgres.New(ctx, tt.connString, nil)
			assert.Error(t, err)
		})
	}
}
