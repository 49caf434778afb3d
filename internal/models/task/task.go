package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	UUID         uuid.UUID  `json:"id" db:"uuid"`
	Title        string     `json:"title" db:"title"`
	Description  *string    `json:"description,omitempty" db:"description"`
	Status       Status     `json:"status" db:"status"`
	Priority     Priority   `json:"priority" db:"priority"`
	Category     Category   `json:"category" db:"category"`
	DueDate      *string    `json:"dueDate,omitempty" db:"due_date"`
	ParentTaskID *uuid.UUID `json:"parentTaskId,omitempty" db:"parent_task_id"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty" db:"updated_at,omitempty"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty" db:"deleted_at,omitempty"`
	Version      int        `json:"version" db:"version"`
	Flag         Flag       `json:"flag" db:"flag"`
}

type Status string
type Priority string
type Category string
type Flag string

const StatusPending Status = "PENDING"
const StatusInProgress Status = "IN_PROGRESS"
const StatusCompleted Status = "COMPLETED"

const PriorityLow Priority = "LOW"
const PriorityMedium Priority = "MEDIUM"
const PriorityHigh Priority = "HIGH"
const PriorityUrgent Priority = "URGENT"

const CategoryWork Category = "WORK"
const CategoryPersonal Category = "PERSONAL"
const CategoryUrgent Category = "URGENT"
const CategoryShopping Category = "SHOPPING"
const CategoryHealth Category = "HEALTH"
const CategoryEducation Category = "EDUCATION"

const FlagActive Flag = "active"
const FlagDeleted Flag = "deleted"

// значения по умолчанию для незаданных полей
const (
	DefaultStatus   = StatusPending
	DefaultPriority = PriorityMedium
	DefaultCategory = CategoryPersonal
)

const MaxTitleLength = 200

// DateLayout - формат срока выполнения на проводе и в хранилищах
const DateLayout = "2006-01-02"

var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
var Categories = []Category{CategoryWork, CategoryPersonal, CategoryUrgent, CategoryShopping, CategoryHealth, CategoryEducation}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("неизвестный статус %q", s)
	}
	return status, nil
}

func ParsePriority(s string) (Priority, error) {
	priority := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !priority.Valid() {
		return "", fmt.Errorf("неизвестный приоритет %q", s)
	}
	return priority, nil
}

func ParseCategory(s string) (Category, error) {
	category := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !category.Valid() {
		return "", fmt.Errorf("неизвестная категория %q", s)
	}
	return category, nil
}

// ParseDueDate читает дату как YYYY-MM-DD (полночь в loc) либо как RFC3339.
func ParseDueDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("неверный формат даты %q", s)
	}
	return t, nil
}

// FormatDueDate приводит момент времени к формату DateLayout.
func FormatDueDate(t time.Time) *string {
	s := t.Format(DateLayout)
	return &s
}

func (t *Task) IsTopLevel() bool {
	return t.ParentTaskID == nil
}

func (t *Task) IsDeleted() bool {
	return t.Flag == FlagDeleted
}

// DescriptionOrEmpty возвращает описание либо пустую строку.
func (t *Task) DescriptionOrEmpty() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}
