package stack

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStackExecCmd(locator LocatorProvider) *cobra.Command {
	var env, serviceID string

	execCmd := &cobra.Command{
		Use:   "exec -- <command> [args...]",
		Short: "Run a command inside a running service container",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if serviceID == "" {
				return fmt.Errorf("must provide a service name")
			}

			stackFactory, err := newStackFactory(locator, env)
			if err != nil {
				return err
			}

			orchestratorSvc, _, err := stackFactory.NewOrchestrator()
			if err != nil {
				return err
			}

			return orchestratorSvc.Exec(cmd.Context(), serviceID, args, os.Stdin, os.Stdout, os.Stderr)
		},
	}

	execCmd.Flags().StringVar(&serviceID, "name", "", "Service to exec into")
	execCmd.Flags().StringVar(&env, "env", "", "Target environment")

	return execCmd
}
