package cli

import (
	"fmt"
	"io"
	"strings"

	"taskManager/internal/board"
	"taskManager/internal/client"
	"taskManager/internal/config"
	"taskManager/internal/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// env - общее окружение подкоманд, заполняется в PersistentPreRunE.
type env struct {
	out        io.Writer
	configPath string
	server     string
	output     string

	cfg    *config.Config
	client *client.Client
	board  *board.Board
}

func (e *env) setup(cmd *cobra.Command, _ []string) error {
	switch e.output {
	case outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("неизвестный формат вывода %q: допустимы table, json, yaml", e.output)
	}

	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	if e.server != "" {
		cfg.Client.BaseURL = e.server
	}
	e.cfg = cfg

	if cfg.Logging.File != "" {
		if err := logger.InitFile(cfg.Logging.File); err != nil {
			return fmt.Errorf("инициализация логгера: %w", err)
		}
	}

	e.client = client.New(cfg.Client.BaseURL,
		client.WithTimeout(cfg.Client.Timeout),
		client.WithRetries(cfg.Client.Retries),
	)
	e.board = board.New(e.client,
		board.WithConcurrency(cfg.Client.SubtaskConcurrency),
		board.WithNoticeTTL(cfg.Client.NoticeTTL),
	)
	return nil
}

// NewRootCommand собирает дерево команд taskctl. Вывод идёт в out.
func NewRootCommand(out io.Writer) *cobra.Command {
	e := &env{out: out}

	root := &cobra.Command{
		Use:               "taskctl",
		Short:             "Клиент сервиса задач",
		Long:              "taskctl показывает и изменяет задачи сервиса: список с фильтрами, подзадачи, корзину и интерактивный режим.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: e.setup,
		PersistentPostRun: func(*cobra.Command, []string) { logger.Sync() },
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&e.configPath, "config", "", "путь к config.yml")
	root.PersistentFlags().StringVar(&e.server, "server", "", "адрес сервиса, перекрывает client.base_url")
	root.PersistentFlags().StringVarP(&e.output, "output", "o", outputTable, "формат вывода: table, json, yaml")

	root.AddCommand(
		newListCommand(e),
		newAddCommand(e),
		newEditCommand(e),
		newToggleCommand(e),
		newDeleteCommand(e),
		newRestoreCommand(e),
		newStatsCommand(e),
		newTUICommand(e),
	)
	return root
}

// resolveID принимает полный id или однозначный префикс среди загруженных задач.
func resolveID(state board.State, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}

	prefix := strings.ToLower(arg)
	var found []uuid.UUID
	seen := map[uuid.UUID]bool{}
	check := func(id uuid.UUID) {
		if !seen[id] && strings.HasPrefix(id.String(), prefix) {
			seen[id] = true
			found = append(found, id)
		}
	}
	for _, t := range state.Tasks {
		check(t.UUID)
	}
	for _, t := range state.Deleted {
		check(t.UUID)
	}
	for _, subtasks := range state.Subtasks {
		for _, t := range subtasks {
			check(t.UUID)
		}
	}

	switch len(found) {
	case 0:
		return uuid.Nil, fmt.Errorf("задача %q не найдена", arg)
	case 1:
		return found[0], nil
	default:
		return uuid.Nil, fmt.Errorf("префикс %q неоднозначен: подходят %d задач", arg, len(found))
	}
}
