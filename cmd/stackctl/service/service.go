package service

import (
	"github.com/AnotherFullstackDev/stack-ctl/internal/factories"
	"github.com/spf13/cobra"
)

// LocatorProvider hands out the shared services locator built by the root
// command after flag parsing.
type LocatorProvider func() *factories.SharedServicesLocator

func NewServiceCmd(locator LocatorProvider) *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Build and publish per-service container images",
	}

	serviceCmd.AddCommand(
		newServiceBuildCmd(locator),
		newServicePushCmd(locator),
	)

	return serviceCmd
}
