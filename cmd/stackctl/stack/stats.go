package stack

import (
	"os"

	"github.com/spf13/cobra"
)

func newStackStatsCmd(locator LocatorProvider) *cobra.Command {
	var env string

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show a resource usage snapshot of the stack's containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			stackFactory, err := newStackFactory(locator, env)
			if err != nil {
				return err
			}

			orchestratorSvc, _, err := stackFactory.NewOrchestrator()
			if err != nil {
				return err
			}

			return orchestratorSvc.Stats(cmd.Context(), os.Stdout)
		},
	}

	statsCmd.Flags().StringVar(&env, "env", "", "Target environment")

	return statsCmd
}
