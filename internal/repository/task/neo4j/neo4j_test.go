package neo4j_test

import (
	"context"
	"fmt"
	"taskManager/internal/models/task"
	"taskManager/internal/repository"
	graph "taskManager/internal/repository/task/neo4j"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Neo4jTestSuite struct {
	suite.Suite
	container testcontainers.Container
	storage   *graph.Storage
	ctx       context.Context
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

func (s *Neo4jTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "neo4j:5",
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "neo4j/password123",
		},
		WaitingFor: wait.ForLog("Started.").WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(s.ctx, "7687")
	require.NoError(s.T(), err)

	uri := fmt.Sprintf("neo4j://%s:%s", host, port.Port())
	s.storage, err = graph.New(s.ctx, uri, "neo4j", "password123", "")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.storage.EnsureSchema(s.ctx))
}

func (s *Neo4jTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close(s.ctx)
	}
	if s.container != nil {
		s.container.Terminate(s.ctx)
	}
}

func TestNeo4jTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(Neo4jTestSuite))
}

func (s *Neo4jTestSuite) TestStorage_CreateAndGet() {
	parent := newTask("Plan trip")
	parent.Description = strPtr("summer")
	parent.DueDate = strPtr("2024-07-01")
	require.NoError(s.T(), s.storage.Create(s.ctx, parent))
	assert.Equal(s.T(), 1, parent.Version)

	sub := newTask("Book hotel")
	sub.ParentTaskID = &parent.UUID
	require.NoError(s.T(), s.storage.Create(s.ctx, sub))

	got, err := s.storage.GetByID(s.ctx, sub.UUID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), got.ParentTaskID)
	assert.Equal(s.T(), parent.UUID, *got.ParentTaskID)

	got, err = s.storage.GetByID(s.ctx, parent.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "summer", got.DescriptionOrEmpty())
	assert.Equal(s.T(), "2024-07-01", *got.DueDate)
	assert.Nil(s.T(), got.ParentTaskID)

	subs, err := s.storage.List(s.ctx, task.Query{Flag: task.FlagActive, ParentID: &parent.UUID})
	require.NoError(s.T(), err)
	require.Len(s.T(), subs, 1)
	assert.Equal(s.T(), "Book hotel", subs[0].Title)

	_, err = s.storage.GetByID(s.ctx, uuid.New())
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

func (s *Neo4jTestSuite) TestStorage_UpdateVersionConflict() {
	t := newTask("Versioned")
	require.NoError(s.T(), s.storage.Create(s.ctx, t))

	stale, err := s.storage.GetByID(s.ctx, t.UUID)
	require.NoError(s.T(), err)

	t.Status = task.StatusCompleted
	require.NoError(s.T(), s.storage.Update(s.ctx, t))
	assert.Equal(s.T(), 2, t.Version)

	stale.Title = "stale"
	assert.ErrorIs(s.T(), s.storage.Update(s.ctx, stale), repository.ErrVersionConflict)
	assert.ErrorIs(s.T(), s.storage.Update(s.ctx, newTask("ghost")), repository.ErrNotFound)
}

func (s *Neo4jTestSuite) TestStorage_DeleteSoftAndRestore() {
	t := newTask("Disposable")
	require.NoError(s.T(), s.storage.Create(s.ctx, t))

	require.NoError(s.T(), s.storage.DeleteSoft(s.ctx, t))

	deleted, err := s.storage.List(s.ctx, task.Query{Flag: task.FlagDeleted})
	require.NoError(s.T(), err)
	ids := []uuid.UUID{}
	for _, d := range deleted {
		ids = append(ids, d.UUID)
	}
	assert.Contains(s.T(), ids, t.UUID)

	require.NoError(s.T(), s.storage.Restore(s.ctx, t))
	got, err := s.storage.GetByID(s.ctx, t.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), task.FlagActive, got.Flag)
	assert.Nil(s.T(), got.DeletedAt)
	assert.Equal(s.T(), 3, got.Version)
}

func (s *Neo4jTestSuite) TestStorage_HealthCheck() {
	require.NoError(s.T(), s.storage.HealthCheck(s.ctx))
}
