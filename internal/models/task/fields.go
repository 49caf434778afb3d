package task

import (
	"time"

	"github.com/google/uuid"
)

// Fields - изменяемая часть задачи, одинаковая для создания и обновления.
type Fields struct {
	Title        string     `json:"title" yaml:"title"`
	Description  *string    `json:"description,omitempty" yaml:"description,omitempty"`
	Status       Status     `json:"status,omitempty" yaml:"status,omitempty"`
	Priority     Priority   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Category     Category   `json:"category,omitempty" yaml:"category,omitempty"`
	DueDate      *string    `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	ParentTaskID *uuid.UUID `json:"parentTaskId,omitempty" yaml:"parentTaskId,omitempty"`
}

// FieldsOf снимает изменяемые поля с существующей задачи.
func FieldsOf(t Task) Fields {
	return Fields{
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		Category:     t.Category,
		DueDate:      t.DueDate,
		ParentTaskID: t.ParentTaskID,
	}
}

// WithDefaults заполняет пустые перечисления значениями по умолчанию.
func (f Fields) WithDefaults() Fields {
	if f.Status == "" {
		f.Status = DefaultStatus
	}
	if f.Priority == "" {
		f.Priority = DefaultPriority
	}
	if f.Category == "" {
		f.Category = DefaultCategory
	}
	return f
}

// Options переводит поля в опции обновления. Родитель сюда не входит:
// он задаётся только при создании.
func (f Fields) Options() []TaskOption {
	return []TaskOption{
		WithTitle(f.Title),
		WithDescription(f.Description),
		WithStatus(f.Status),
		WithPriority(f.Priority),
		WithCategory(f.Category),
		WithDueDate(f.DueDate),
	}
}

// Query описывает выборку из репозитория. Нулевые значения не фильтруют.
type Query struct {
	Flag         Flag
	TopLevelOnly bool
	ParentID     *uuid.UUID
	Status       *Status
	Category     *Category
	Keyword      string
	DueFrom      *time.Time
	DueTo        *time.Time
}
