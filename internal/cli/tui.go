package cli

import (
	"taskManager/internal/tui"

	"github.com/spf13/cobra"
)

func newTUICommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Интерактивный режим",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return tui.Run(cmd.Context(), e.board)
		},
	}
}
