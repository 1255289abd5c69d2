package stack

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/AnotherFullstackDev/stack-ctl/internal/doctor"
	"github.com/spf13/cobra"
)

func newStackDoctorCmd(locator LocatorProvider) *cobra.Command {
	var env string

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose common stack problems: taken host ports, stale images, localhost refs",
		RunE: func(cmd *cobra.Command, args []string) error {
			stackFactory, err := newStackFactory(locator, env)
			if err != nil {
				return err
			}

			doctorSvc, err := stackFactory.NewDoctor()
			if err != nil {
				return err
			}

			findings, err := doctorSvc.Diagnose(cmd.Context())
			if err != nil {
				return fmt.Errorf("running diagnostics: %w", err)
			}

			if len(findings) == 0 {
				fmt.Println("no problems found")
				return nil
			}

			errors := 0
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SEVERITY\tSERVICE\tCHECK\tPROBLEM")
			for _, finding := range findings {
				if finding.Severity == doctor.SeverityError {
					errors++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", finding.Severity, finding.Service, finding.Check, finding.Message)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if errors > 0 {
				return fmt.Errorf("%d problems need fixing before the stack can run", errors)
			}

			return nil
		},
	}

	doctorCmd.Flags().StringVar(&env, "env", "", "Target environment")

	return doctorCmd
}
