package stack

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStackPsCmd(locator LocatorProvider) *cobra.Command {
	var env string

	psCmd := &cobra.Command{
		Use:   "ps",
		Short: "Show the container state of every service",
		RunE: func(cmd *cobra.Command, args []string) error {
			stackFactory, err := newStackFactory(locator, env)
			if err != nil {
				return err
			}

			orchestratorSvc, _, err := stackFactory.NewOrchestrator()
			if err != nil {
				return err
			}

			statuses, err := orchestratorSvc.Ps(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing services: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tCONTAINER\tSTATUS")
			for _, status := range statuses {
				fmt.Fprintf(w, "%s\t%s\t%s\n", status.Service, status.Container, status.Status)
			}

			return w.Flush()
		},
	}

	psCmd.Flags().StringVar(&env, "env", "", "Target environment")

	return psCmd
}
