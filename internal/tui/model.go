package tui

import (
	"context"
	"time"

	"taskManager/internal/board"
	"taskManager/internal/models/task"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// период проверки истечения сообщений
const tickInterval = 500 * time.Millisecond

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeForm
	modeConfirmDelete
)

type refreshedMsg struct{ err error }
type actionDoneMsg struct{ err error }
type tickMsg time.Time

// row - строка списка: задача верхнего уровня или раскрытая подзадача
type row struct {
	task *task.Task
	sub  bool
}

// Model - модель bubbletea поверх доски задач.
type Model struct {
	ctx   context.Context
	board *board.Board
	now   func() time.Time

	state    board.State
	rows     []row
	cursor   int
	expanded map[uuid.UUID]bool
	mode     mode

	search    textinput.Model
	title     textinput.Model
	due       textinput.Model
	formFocus int

	width  int
	height int
}

func New(ctx context.Context, b *board.Board) Model {
	search := textinput.New()
	search.Placeholder = "поиск"
	search.Prompt = "/ "
	search.CharLimit = 100

	title := textinput.New()
	title.Placeholder = "заголовок"
	title.Prompt = "Title: "
	title.CharLimit = task.MaxTitleLength

	due := textinput.New()
	due.Placeholder = "YYYY-MM-DD"
	due.Prompt = "Due:   "
	due.CharLimit = 25

	m := Model{
		ctx:      ctx,
		board:    b,
		now:      time.Now,
		expanded: map[uuid.UUID]bool{},
		search:   search,
		title:    title,
		due:      due,
	}
	m.sync()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) refresh() tea.Cmd {
	b, ctx := m.board, m.ctx
	return func() tea.Msg {
		return refreshedMsg{err: b.Refresh(ctx)}
	}
}

// action выполняет операцию доски вне цикла обновления
func (m Model) action(fn func(ctx context.Context, b *board.Board) error) tea.Cmd {
	b, ctx := m.board, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{err: fn(ctx, b)}
	}
}

// sync перечитывает состояние доски и пересобирает строки
func (m *Model) sync() {
	m.state = m.board.State()

	m.rows = make([]row, 0, len(m.rows))
	for _, t := range m.state.Visible() {
		m.rows = append(m.rows, row{task: t})
		if !m.expanded[t.UUID] {
			continue
		}
		for _, sub := range m.state.SubtasksOf(t.UUID) {
			m.rows = append(m.rows, row{task: sub, sub: true})
		}
	}

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (*task.Task, bool) {
	if len(m.rows) == 0 {
		return nil, false
	}
	return m.rows[m.cursor].task, true
}

// apply применяет переход к доске и обновляет снимок
func (m *Model) apply(tr board.Transition) {
	m.board.Apply(tr)
	m.sync()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		m.sync()
		return m, tick()

	case refreshedMsg, actionDoneMsg:
		m.sync()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		default:
			return m.updateNormal(msg)
		}
	}
	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case " ", "space", "enter":
		if t, ok := m.selected(); ok && t.IsTopLevel() {
			m.expanded[t.UUID] = !m.expanded[t.UUID]
			m.sync()
		}

	case "/":
		m.mode = modeSearch
		m.search.SetValue(m.state.Criteria.SearchTerm)
		return m, m.search.Focus()

	case "s":
		m.apply(func(s board.State) board.State { return s.WithStatus(next(task.Statuses, s.Criteria.Status)) })
	case "c":
		m.apply(func(s board.State) board.State { return s.WithCategory(next(task.Categories, s.Criteria.Category)) })
	case "p":
		m.apply(func(s board.State) board.State { return s.WithPriority(next(task.Priorities, s.Criteria.Priority)) })
	case "1":
		m.apply(board.State.QuickPending)
	case "2":
		m.apply(board.State.QuickUrgent)
	case "3":
		m.apply(board.State.QuickHighPriority)
	case "0":
		m.apply(board.State.ClearFilters)

	case "D":
		m.cursor = 0
		m.apply(board.State.ToggleDeletedView)

	case "r":
		return m, m.refresh()

	case "x":
		t, ok := m.selected()
		if !ok || m.state.ShowDeleted {
			return m, nil
		}
		id := t.UUID
		return m, m.action(func(ctx context.Context, b *board.Board) error {
			_, err := b.ToggleStatus(ctx, id)
			return err
		})

	case "d":
		if _, ok := m.selected(); !ok {
			return m, nil
		}
		if m.state.ShowDeleted {
			t, _ := m.selected()
			if !t.IsDeleted() {
				return m, nil
			}
			id := t.UUID
			return m, m.action(func(ctx context.Context, b *board.Board) error {
				return b.Restore(ctx, id)
			})
		}
		m.mode = modeConfirmDelete

	case "a":
		m.apply(board.State.OpenCreateForm)
		return m, m.openForm(nil)

	case "A":
		t, ok := m.selected()
		if !ok || !t.IsTopLevel() || m.state.ShowDeleted {
			return m, nil
		}
		parentID := t.UUID
		m.expanded[parentID] = true
		m.apply(func(s board.State) board.State { return s.OpenSubtaskForm(parentID) })
		return m, m.openForm(nil)

	case "e":
		t, ok := m.selected()
		if !ok || m.state.ShowDeleted {
			return m, nil
		}
		m.apply(func(s board.State) board.State { return s.OpenEditForm(t) })
		return m, m.openForm(t)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.mode = modeNormal
		m.search.Blur()
		if msg.String() == "esc" {
			m.search.SetValue("")
			m.apply(func(s board.State) board.State { return s.WithSearch("") })
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	term := m.search.Value()
	m.cursor = 0
	m.apply(func(s board.State) board.State { return s.WithSearch(term) })
	return m, cmd
}

func (m *Model) openForm(editing *task.Task) tea.Cmd {
	m.mode = modeForm
	m.formFocus = 0
	m.title.SetValue("")
	m.due.SetValue("")
	if editing != nil {
		m.title.SetValue(editing.Title)
		if editing.DueDate != nil {
			m.due.SetValue(*editing.DueDate)
		}
	}
	m.due.Blur()
	return m.title.Focus()
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.apply(board.State.CloseForm)
		return m, nil

	case "tab", "shift+tab":
		m.formFocus = 1 - m.formFocus
		if m.formFocus == 0 {
			m.due.Blur()
			return m, m.title.Focus()
		}
		m.title.Blur()
		return m, m.due.Focus()

	case "enter":
		fields := m.formFields()
		m.mode = modeNormal
		m.title.Blur()
		m.due.Blur()
		return m, m.action(func(ctx context.Context, b *board.Board) error {
			_, err := b.Submit(ctx, fields)
			return err
		})
	}

	var cmd tea.Cmd
	if m.formFocus == 0 {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.due, cmd = m.due.Update(msg)
	}
	return m, cmd
}

// formFields собирает поля из формы; при редактировании остальные поля берутся из задачи
func (m Model) formFields() task.Fields {
	var fields task.Fields
	if m.state.Form.IsEdit() {
		fields = task.FieldsOf(*m.state.Form.Editing)
	}
	fields.Title = m.title.Value()
	due := m.due.Value()
	fields.DueDate = &due
	return fields
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeNormal
	if msg.String() != "y" && msg.String() != "Y" {
		return m, nil
	}
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	id := t.UUID
	return m, m.action(func(ctx context.Context, b *board.Board) error {
		return b.Delete(ctx, id)
	})
}

// next перебирает значения по кругу: nil, первое, ..., последнее, nil
func next[T comparable](values []T, current *T) *T {
	if current == nil {
		v := values[0]
		return &v
	}
	for i, v := range values {
		if v == *current && i+1 < len(values) {
			n := values[i+1]
			return &n
		}
	}
	return nil
}

// Run запускает интерактивный режим и блокируется до выхода.
func Run(ctx context.Context, b *board.Board) error {
	p := tea.NewProgram(New(ctx, b), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
