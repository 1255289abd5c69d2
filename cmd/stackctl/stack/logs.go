package stack

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStackLogsCmd(locator LocatorProvider) *cobra.Command {
	var env string
	var follow bool

	logsCmd := &cobra.Command{
		Use:   "logs [services...]",
		Short: "Show service logs, all services when none are named",
		RunE: func(cmd *cobra.Command, args []string) error {
			stackFactory, err := newStackFactory(locator, env)
			if err != nil {
				return err
			}

			orchestratorSvc, _, err := stackFactory.NewOrchestrator()
			if err != nil {
				return err
			}

			if err := orchestratorSvc.Logs(cmd.Context(), args, follow, os.Stdout); err != nil {
				return fmt.Errorf("streaming logs: %w", err)
			}

			return nil
		},
	}

	logsCmd.Flags().StringVar(&env, "env", "", "Target environment")
	logsCmd.Flags().BoolVar(&follow, "follow", false, "Follow log output of a single service")

	return logsCmd
}
