package config

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigValidateCmd(locator LocatorProvider) *cobra.Command {
	var env string

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the stack file for consistency problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			stackFactory, err := newStackFactory(locator, env)
			if err != nil {
				return err
			}

			spec, err := stackFactory.NewSpec()
			if err != nil {
				return err
			}

			fmt.Printf("stack '%s' is valid: %d services, %d networks, %d volumes\n",
				spec.Name, len(spec.Services), len(spec.Networks), len(spec.Volumes))

			return nil
		},
	}

	validateCmd.Flags().StringVar(&env, "env", "", "Target environment")

	return validateCmd
}
