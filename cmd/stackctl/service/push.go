package service

import (
	"fmt"

	"github.com/AnotherFullstackDev/stack-ctl/internal/factories"
	"github.com/spf13/cobra"
)

func newServicePushCmd(locator LocatorProvider) *cobra.Command {
	var serviceID, env string
	var skipBuild bool

	pushCmd := &cobra.Command{
		Use:   "push",
		Short: "Build a service's image and push it to its configured registry",
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

			ctx := cmd.Context()

			if !skipBuild {
				if err := imageSvc.BuildImage(ctx); err != nil {
					return fmt.Errorf("building image for service %s: %w", serviceID, err)
				}
			}

			if err := imageSvc.PushImage(ctx); err != nil {
				return fmt.Errorf("pushing image for service %s: %w", serviceID, err)
			}

			return nil
		},
	}

	pushCmd.Flags().StringVar(&serviceID, "name", "", "Service to push")
	pushCmd.Flags().StringVar(&env, "env", "", "Target environment")
	pushCmd.Flags().BoolVar(&skipBuild, "skip-build", false, "Push the image already present in the local daemon")

	return pushCmd
}
