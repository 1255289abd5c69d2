package stack

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStackSeedCmd(locator LocatorProvider) *cobra.Command {
	var env, serviceID string

	seedCmd := &cobra.Command{
		Use:   "seed [seed-file]",
		Short: "Stream a seed file into a service's seed command, gated on the service being healthy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if serviceID == "" {
				return fmt.Errorf("must provide a service name")
			}

			fileOverride := ""
			if len(args) == 1 {
				fileOverride = args[0]
			}

			stackFactory, err := newStackFactory(locator, env)
			if err != nil {
				return err
			}

			orchestratorSvc, _, err := stackFactory.NewOrchestrator()
			if err != nil {
				return err
			}

			if err := orchestratorSvc.Seed(cmd.Context(), serviceID, fileOverride); err != nil {
				return fmt.Errorf("seeding service %s: %w", serviceID, err)
			}

			return nil
		},
	}

	seedCmd.Flags().StringVar(&serviceID, "name", "", "Service to seed")
	seedCmd.Flags().StringVar(&env, "env", "", "Target environment")

	return seedCmd
}
