package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// ограничение на размер читаемого тела ответа
const maxBodySize = 4 << 20

type Option func(*Client)

// WithRetries задаёт число повторов идемпотентных запросов при сетевых ошибках.
func WithRetries(n uint64) Option {
	return func(c *Client) {
		c.retries = n
	}
}

func WithBackoff(initial, maxInterval time.Duration) Option {
	return func(c *Client) {
		c.initialInterval = initial
		c.maxInterval = maxInterval
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithHTTPClient подменяет транспорт, например на httptest.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// Client - HTTP клиент сервиса задач.
type Client struct {
	baseURL         string
	http            *http.Client
	retries         uint64
	initialInterval time.Duration
	maxInterval     time.Duration
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		retries:         3,
		initialInterval: 200 * time.Millisecond,
		maxInterval:     2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type taskEnvelope struct {
	Task *task.Task `json:"task"`
}

type listEnvelope struct {
	Tasks []*task.Task `json:"tasks"`
	Count *int         `json:"count"`
}

type errorEnvelope struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func (c *Client) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = c.maxInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, c.retries), ctx)
}

// retryable: сетевой сбой или временная недоступность сервера
func retryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		switch serverErr.Status {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// get выполняет GET с повторами
func (c *Client) get(ctx context.Context, op, path string, out any) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := c.do(ctx, op, http.MethodGet, path, nil, http.StatusOK, out)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("CLIENT: Повтор запроса",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	return backoff.RetryNotify(operation, c.newBackoff(ctx), notify)
}

// do выполняет один запрос и разбирает тело ответа в out, если он не nil.
func (c *Client) do(ctx context.Context, op, method, path string, body any, expected int, out any) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &ParseError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("CLIENT: Запрос не выполнен",
			zap.String("operation", op),
			zap.String("request_id", requestID),
			zap.Error(err))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	logger.Debug("CLIENT: Ответ получен",
		zap.String("operation", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("ms", time.Since(start)))

	if resp.StatusCode != expected {
		serverErr := &ServerError{Op: op, Status: resp.StatusCode}
		var envelope errorEnvelope
		if json.Unmarshal(raw, &envelope) == nil {
			serverErr.Code = envelope.Error
			serverErr.Message = envelope.Message
			serverErr.Details = envelope.Details
		}
		return serverErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{Op: op, Err: err}
	}
	return nil
}

func (c *Client) taskCall(ctx context.Context, op, method, path string, body any, expected int) (*task.Task, error) {
	var envelope taskEnvelope
	var err error
	if method == http.MethodGet {
		err = c.get(ctx, op, path, &envelope)
	} else {
		err = c.do(ctx, op, method, path, body, expected, &envelope)
	}
	if err != nil {
		return nil, err
	}
	if envelope.Task == nil {
		return nil, &ParseError{Op: op, Err: errors.New("в ответе нет поля task")}
	}
	return envelope.Task, nil
}

func (c *Client) list(ctx context.Context, op, path string) ([]*task.Task, error) {
	var envelope listEnvelope
	if err := c.get(ctx, op, path, &envelope); err != nil {
		return nil, err
	}
	if envelope.Tasks == nil {
		return nil, &ParseError{Op: op, Err: errors.New("в ответе нет поля tasks")}
	}
	if envelope.Count != nil && *envelope.Count != len(envelope.Tasks) {
		return nil, &ParseError{Op: op, Err: fmt.Errorf("count=%d, получено задач %d", *envelope.Count, len(envelope.Tasks))}
	}
	return envelope.Tasks, nil
}

func (c *Client) ListTasks(ctx context.Context) ([]*task.Task, error) {
	return c.list(ctx, "list_tasks", "/tasks")
}

func (c *Client) ListDeleted(ctx context.Context) ([]*task.Task, error) {
	return c.list(ctx, "list_deleted", "/tasks/deleted")
}

func (c *Client) ListSubtasks(ctx context.Context, parentID uuid.UUID) ([]*task.Task, error) {
	return c.list(ctx, "list_subtasks", "/tasks/"+parentID.String()+"/subtasks")
}

func (c *Client) Search(ctx context.Context, keyword string) ([]*task.Task, error) {
	return c.list(ctx, "search", "/tasks/search?keyword="+url.QueryEscape(keyword))
}

func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return c.taskCall(ctx, "get_task", http.MethodGet, "/tasks/"+id.String(), nil, http.StatusOK)
}

func (c *Client) CreateTask(ctx context.Context, fields task.Fields) (*task.Task, error) {
	return c.taskCall(ctx, "create_task", http.MethodPost, "/tasks", fields, http.StatusCreated)
}

func (c *Client) UpdateTask(ctx context.Context, id uuid.UUID, fields task.Fields) (*task.Task, error) {
	return c.taskCall(ctx, "update_task", http.MethodPut, "/tasks/"+id.String(), fields, http.StatusOK)
}

func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, "delete_task", http.MethodDelete, "/tasks/"+id.String(), nil, http.StatusNoContent, nil)
}

func (c *Client) RestoreTask(ctx context.Context, id uuid.UUID) error {
	_, err := c.taskCall(ctx, "restore_task", http.MethodPut, "/tasks/"+id.String()+"/restore", nil, http.StatusOK)
	return err
}

// Health проверяет доступность сервиса.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, http.StatusOK, nil)
}
