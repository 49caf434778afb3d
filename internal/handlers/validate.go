package handlers

import (
	"errors"
	"mime"
	"net/http"
	"taskManager/internal/models/task"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, errors.New("id не может быть пустым")
	}
	return id, nil
}

// parseDateParam читает обязательный query-параметр в формате YYYY-MM-DD
func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, errors.New("параметр обязателен")
	}
	return time.ParseInLocation(task.DateLayout, raw, time.UTC)
}
