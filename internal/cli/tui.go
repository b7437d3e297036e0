package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/nowtask/internal/app"
)

func newTUICommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, st)
		},
	}
}

// runTUI runs the Bubble Tea program until the user quits.
func runTUI(cmd *cobra.Command, st *state) error {
	env := st.env
	stopConfig := watchConfig(env)
	defer stopConfig()
	defer env.Watcher.Stop()

	ctx := cmd.Context()
	p := tea.NewProgram(
		app.New(env.Service, env.Watcher, app.WithSettings(env.Config, env.ConfigPath)),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	env.Logger.Info("tui started")
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return err
}
