package service

import (
	"fmt"

	"github.com/AnotherFullstackDev/stack-ctl/internal/factories"
	"github.com/spf13/cobra"
)

func newServiceBuildCmd(locator LocatorProvider) *cobra.Command {
	var serviceID, env string

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build a service's container image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serviceID == "" {
				return fmt.Errorf("must provide a service name")
			}

			shared := locator()
			if env != "" {
				envSpecificConfig, err := shared.Config.WithEnvironment(env)
				if err != nil {
					return fmt.Errorf("loading environment specific config: %w", err)
				}
				shared = shared.WithConfig(envSpecificConfig)
			}

			serviceFactory := factories.NewServiceFactory(serviceID, shared)

			imageSvc, err := serviceFactory.NewImageService()
			if err != nil {
				return fmt.Errorf("getting image for service %s: %w", serviceID, err)
			}

			if err := imageSvc.BuildImage(cmd.Context()); err != nil {
				return fmt.Errorf("building image for service %s: %w", serviceID, err)
			}

			return nil
		},
	}

	buildCmd.Flags().StringVar(&serviceID, "name", "", "Service to build")
	buildCmd.Flags().StringVar(&env, "env", "", "Target environment")

	return buildCmd
}
