package stack

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStackUpCmd(locator LocatorProvider) *cobra.Command {
	var env string

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Start all services in dependency order with health gating",
		RunE: func(cmd *cobra.Command, args []string) error {
			stackFactory, err := newStackFactory(locator, env)
			if err != nil {
				return err
			}

			orchestratorSvc, _, err := stackFactory.NewOrchestrator()
			if err != nil {
				return err
			}

			if err := orchestratorSvc.Up(cmd.Context()); err != nil {
				return fmt.Errorf("bringing stack up: %w", err)
			}

			return nil
		},
	}

	upCmd.Flags().StringVar(&env, "env", "", "Target environment")

	return upCmd
}
