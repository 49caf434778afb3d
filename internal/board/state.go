package board

import (
	"time"

	"taskManager/internal/models/task"

	"github.com/google/uuid"
)

type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota
	NoticeError
)

// Notice - временное сообщение пользователю.
type Notice struct {
	Kind      NoticeKind
	Text      string
	ExpiresAt time.Time
}

// Form описывает открытую форму: создание, подзадача или редактирование.
type Form struct {
	Visible  bool
	Editing  *task.Task
	ParentID *uuid.UUID
}

func (f Form) IsEdit() bool {
	return f.Visible && f.Editing != nil
}

func (f Form) IsSubtask() bool {
	return f.Visible && f.Editing == nil && f.ParentID != nil
}

type Stats struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
}

// State - всё, что видит пользователь. Переходы возвращают новое значение,
// срезы внутри считаются неизменяемыми и только заменяются целиком.
type State struct {
	Tasks       []*task.Task
	Deleted     []*task.Task
	Subtasks    map[uuid.UUID][]*task.Task
	Criteria    Criteria
	ShowDeleted bool
	Form        Form
	Notice      *Notice
	Loading     bool
}

// Transition - функция перехода состояния.
type Transition func(State) State

func (s State) WithSearch(term string) State {
	s.Criteria.SearchTerm = term
	return s
}

// WithStatus с nil снимает фильтр
func (s State) WithStatus(status *task.Status) State {
	s.Criteria.Status = status
	return s
}

func (s State) WithCategory(category *task.Category) State {
	s.Criteria.Category = category
	return s
}

func (s State) WithPriority(priority *task.Priority) State {
	s.Criteria.Priority = priority
	return s
}

func (s State) ClearFilters() State {
	s.Criteria = Criteria{}
	return s
}

func (s State) QuickPending() State {
	status := task.StatusPending
	return s.WithStatus(&status)
}

func (s State) QuickUrgent() State {
	category := task.CategoryUrgent
	return s.WithCategory(&category)
}

func (s State) QuickHighPriority() State {
	priority := task.PriorityHigh
	return s.WithPriority(&priority)
}

func (s State) OpenCreateForm() State {
	s.Form = Form{Visible: true}
	return s
}

func (s State) OpenSubtaskForm(parentID uuid.UUID) State {
	s.Form = Form{Visible: true, ParentID: &parentID}
	return s
}

func (s State) OpenEditForm(t *task.Task) State {
	s.Form = Form{Visible: true, Editing: t}
	return s
}

func (s State) CloseForm() State {
	s.Form = Form{}
	return s
}

func (s State) ToggleDeletedView() State {
	s.ShowDeleted = !s.ShowDeleted
	return s
}

func (s State) WithNotice(kind NoticeKind, text string, expiresAt time.Time) State {
	s.Notice = &Notice{Kind: kind, Text: text, ExpiresAt: expiresAt}
	return s
}

// ExpireNotice убирает сообщение, срок которого истёк к моменту now.
func (s State) ExpireNotice(now time.Time) State {
	if s.Notice != nil && !now.Before(s.Notice.ExpiresAt) {
		s.Notice = nil
	}
	return s
}

// Visible - отфильтрованный активный или удалённый список, смотря что показано.
func (s State) Visible() []*task.Task {
	if s.ShowDeleted {
		return Filter(s.Deleted, s.Criteria)
	}
	return Filter(s.Tasks, s.Criteria)
}

func (s State) SubtasksOf(id uuid.UUID) []*task.Task {
	return s.Subtasks[id]
}

// Find ищет задачу среди активных задач и их подзадач.
func (s State) Find(id uuid.UUID) (*task.Task, bool) {
	for _, t := range s.Tasks {
		if t.UUID == id {
			return t, true
		}
	}
	for _, subtasks := range s.Subtasks {
		for _, t := range subtasks {
			if t.UUID == id {
				return t, true
			}
		}
	}
	return nil, false
}

// Stats считается по активным задачам верхнего уровня без учёта фильтров.
func (s State) Stats() Stats {
	stats := Stats{Total: len(s.Tasks)}
	for _, t := range s.Tasks {
		switch t.Status {
		case task.StatusPending:
			stats.Pending++
		case task.StatusInProgress:
			stats.InProgress++
		case task.StatusCompleted:
			stats.Completed++
		}
	}
	return stats
}
