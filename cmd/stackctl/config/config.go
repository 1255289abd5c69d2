package config

import (
	"fmt"

	"github.com/AnotherFullstackDev/stack-ctl/internal/factories"
	"github.com/spf13/cobra"
)

// LocatorProvider hands out the shared services locator built by the root
// command after flag parsing.
type LocatorProvider func() *factories.SharedServicesLocator

func NewConfigCmd(locator LocatorProvider) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and inspect the stack file",
	}

	configCmd.AddCommand(
		newConfigValidateCmd(locator),
		newConfigRenderCmd(locator),
	)

	return configCmd
}

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
