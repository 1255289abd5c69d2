package stack

import (
	"fmt"

	"github.com/AnotherFullstackDev/stack-ctl/internal/factories"
	"github.com/spf13/cobra"
)

// LocatorProvider hands out the shared services locator built by the root
// command. The locator exists only after flag parsing, hence the
// indirection.
type LocatorProvider func() *factories.SharedServicesLocator

func NewStackCmd(locator LocatorProvider) *cobra.Command {
	stackCmd := &cobra.Command{
		Use:   "stack",
		Short: "Run the stack: bring services up in dependency order, inspect and tear them down",
	}

	stackCmd.AddCommand(
		newStackUpCmd(locator),
		newStackDownCmd(locator),
		newStackPsCmd(locator),
		newStackLogsCmd(locator),
		newStackExecCmd(locator),
		newStackStatsCmd(locator),
		newStackSeedCmd(locator),
		newStackDoctorCmd(locator),
	)

	return stackCmd
}

// newStackFactory applies the optional environment overlay before wiring
// the stack machinery.
func newStackFactory(locator LocatorProvider, env string) (*factories.StackFactory, error) {
	shared := locator()

	if env != "" {
		envSpecificConfig, err := shared.Config.WithEnvironment(env)
		if err != nil {
			return nil, fmt.Errorf("loading environment specific config: %w", err)
		}
		shared = shared.WithConfig(envSpecificConfig)
	}

	return factories.NewStackFactory(shared), nil
}
