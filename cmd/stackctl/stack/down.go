package stack

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStackDownCmd(locator LocatorProvider) *cobra.Command {
	var env string
	var removeVolumes bool

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Stop and remove all services in reverse dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			stackFactory, err := newStackFactory(locator, env)
			if err != nil {
				return err
			}

			orchestratorSvc, _, err := stackFactory.NewOrchestrator()
			if err != nil {
				return err
			}

			if err := orchestratorSvc.Down(cmd.Context(), removeVolumes); err != nil {
				return fmt.Errorf("taking stack down: %w", err)
			}

			return nil
		},
	}

	downCmd.Flags().StringVar(&env, "env", "", "Target environment")
	downCmd.Flags().BoolVar(&removeVolumes, "volumes", false, "Also remove named volumes, deleting database state")

	return downCmd
}
