package cli

import (
	"fmt"
	"time"

	"taskManager/internal/board"
	"taskManager/internal/models/task"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// fieldFlags - флаги полей задачи, общие для add и edit
type fieldFlags struct {
	title       string
	description string
	status      string
	priority    string
	category    string
	due         string
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "заголовок")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "описание")
	cmd.Flags().StringVarP(&f.status, "status", "s", "", "статус: PENDING, IN_PROGRESS, COMPLETED")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "приоритет: LOW, MEDIUM, HIGH, URGENT")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "категория: WORK, PERSONAL, URGENT, SHOPPING, HEALTH, EDUCATION")
	cmd.Flags().StringVar(&f.due, "due", "", "срок в формате YYYY-MM-DD")
}

// apply переносит в fields только явно заданные флаги
func (f *fieldFlags) apply(cmd *cobra.Command, fields task.Fields) (task.Fields, error) {
	changed := cmd.Flags().Changed

	if changed("title") {
		fields.Title = f.title
	}
	if changed("description") {
		d := f.description
		fields.Description = &d
	}
	if changed("status") {
		status, err := task.ParseStatus(f.status)
		if err != nil {
			return fields, err
		}
		fields.Status = status
	}
	if changed("priority") {
		priority, err := task.ParsePriority(f.priority)
		if err != nil {
			return fields, err
		}
		fields.Priority = priority
	}
	if changed("category") {
		category, err := task.ParseCategory(f.category)
		if err != nil {
			return fields, err
		}
		fields.Category = category
	}
	if changed("due") {
		due := f.due
		fields.DueDate = &due
	}
	return fields, nil
}

// filterFlags - фильтры списка
type filterFlags struct {
	search   string
	status   string
	category string
	priority string
	pending  bool
	urgent   bool
	high     bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "q", "", "поиск по заголовку и описанию")
	cmd.Flags().StringVarP(&f.status, "status", "s", "", "фильтр по статусу")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "фильтр по категории")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "фильтр по приоритету")
	cmd.Flags().BoolVar(&f.pending, "pending", false, "только задачи в ожидании")
	cmd.Flags().BoolVar(&f.urgent, "urgent", false, "только срочная категория")
	cmd.Flags().BoolVar(&f.high, "high", false, "только высокий приоритет")
}

func (f *filterFlags) transition() (board.Transition, error) {
	var status *task.Status
	if f.status != "" {
		s, err := task.ParseStatus(f.status)
		if err != nil {
			return nil, err
		}
		status = &s
	}
	var category *task.Category
	if f.category != "" {
		c, err := task.ParseCategory(f.category)
		if err != nil {
			return nil, err
		}
		category = &c
	}
	var priority *task.Priority
	if f.priority != "" {
		p, err := task.ParsePriority(f.priority)
		if err != nil {
			return nil, err
		}
		priority = &p
	}

	return func(s board.State) board.State {
		s = s.WithSearch(f.search).WithStatus(status).WithCategory(category).WithPriority(priority)
		if f.pending {
			s = s.QuickPending()
		}
		if f.urgent {
			s = s.QuickUrgent()
		}
		if f.high {
			s = s.QuickHighPriority()
		}
		return s
	}, nil
}

func newListCommand(e *env) *cobra.Command {
	var filters filterFlags
	var deleted bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Список задач верхнего уровня с подзадачами",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, err := filters.transition()
			if err != nil {
				return err
			}
			if err := e.board.Refresh(cmd.Context()); err != nil {
				return err
			}

			state := e.board.Apply(func(s board.State) board.State {
				s = tr(s)
				if s.ShowDeleted != deleted {
					s = s.ToggleDeletedView()
				}
				return s
			})

			subtasks := state.Subtasks
			if deleted {
				subtasks = nil
			}
			return writeTasks(e.out, e.output, viewsOf(state.Visible(), subtasks, time.Now()))
		},
	}
	filters.register(cmd)
	cmd.Flags().BoolVar(&deleted, "deleted", false, "показать удалённые задачи")
	return cmd
}

// printResult печатает задачу и сообщение доски
func (e *env) printResult(t *task.Task) error {
	if e.output != outputTable {
		return writeStructured(e.out, e.output, toView(t, time.Now()))
	}
	writeNotice(e.out, e.board.State())
	fmt.Fprintf(e.out, "%s  %s\n", t.UUID, t.Title)
	return nil
}

func newAddCommand(e *env) *cobra.Command {
	var flags fieldFlags
	var parent string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Создать задачу или подзадачу",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := flags.apply(cmd, task.Fields{})
			if err != nil {
				return err
			}

			if parent != "" {
				if err := e.board.Refresh(cmd.Context()); err != nil {
					return err
				}
				parentID, err := resolveID(e.board.State(), parent)
				if err != nil {
					return err
				}
				e.board.Apply(func(s board.State) board.State { return s.OpenSubtaskForm(parentID) })
			} else {
				e.board.Apply(board.State.OpenCreateForm)
			}

			created, err := e.board.Submit(cmd.Context(), fields)
			if err != nil {
				return err
			}
			return e.printResult(created)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&parent, "parent", "", "id родительской задачи")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// loadAndResolve перезагружает доску и разбирает id из аргумента
func (e *env) loadAndResolve(cmd *cobra.Command, arg string) (uuid.UUID, error) {
	if err := e.board.Refresh(cmd.Context()); err != nil {
		return uuid.Nil, err
	}
	return resolveID(e.board.State(), arg)
}

func newEditCommand(e *env) *cobra.Command {
	var flags fieldFlags

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Изменить поля задачи",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := e.loadAndResolve(cmd, args[0])
			if err != nil {
				return err
			}

			current, ok := e.board.State().Find(id)
			if !ok {
				if current, err = e.client.GetTask(cmd.Context(), id); err != nil {
					return err
				}
			}

			fields, err := flags.apply(cmd, task.FieldsOf(*current))
			if err != nil {
				return err
			}

			e.board.Apply(func(s board.State) board.State { return s.OpenEditForm(current) })
			updated, err := e.board.Submit(cmd.Context(), fields)
			if err != nil {
				return err
			}
			return e.printResult(updated)
		},
	}
	flags.register(cmd)
	return cmd
}

func newToggleCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Переключить статус: завершена или в ожидании",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := e.loadAndResolve(cmd, args[0])
			if err != nil {
				return err
			}
			updated, err := e.board.ToggleStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			return e.printResult(updated)
		},
	}
}

func newDeleteCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Переместить задачу в удалённые",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := e.loadAndResolve(cmd, args[0])
			if err != nil {
				return err
			}
			if err := e.board.Delete(cmd.Context(), id); err != nil {
				return err
			}
			writeNotice(e.out, e.board.State())
			return nil
		},
	}
}

func newRestoreCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "restore ID",
		Short: "Восстановить удалённую задачу",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := e.loadAndResolve(cmd, args[0])
			if err != nil {
				return err
			}
			if err := e.board.Restore(cmd.Context(), id); err != nil {
				return err
			}
			writeNotice(e.out, e.board.State())
			return nil
		},
	}
}

type statsView struct {
	Total      int `json:"total" yaml:"total"`
	Pending    int `json:"pending" yaml:"pending"`
	InProgress int `json:"inProgress" yaml:"inProgress"`
	Completed  int `json:"completed" yaml:"completed"`
	Deleted    int `json:"deleted" yaml:"deleted"`
}

func newStatsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Сводка по статусам",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.board.Refresh(cmd.Context()); err != nil {
				return err
			}
			state := e.board.State()
			stats := state.Stats()

			if e.output != outputTable {
				return writeStructured(e.out, e.output, statsView{
					Total:      stats.Total,
					Pending:    stats.Pending,
					InProgress: stats.InProgress,
					Completed:  stats.Completed,
					Deleted:    len(state.Deleted),
				})
			}
			fmt.Fprintln(e.out, renderStats(stats))
			fmt.Fprintf(e.out, "%-12s %d\n", "Deleted:", len(state.Deleted))
			return nil
		},
	}
}
