package config

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigRenderCmd(locator LocatorProvider) *cobra.Command {
	var env string

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Print the effective stack spec after environment overlays and placeholder resolution",
		RunE: func(cmd *cobra.Command, args []string) error {
			stackFactory, err := newStackFactory(locator, env)
			if err != nil {
				return err
			}

			spec, err := stackFactory.NewSpec()
			if err != nil {
				return err
			}

			rendered, err := spec.RenderYAML()
			if err != nil {
				return fmt.Errorf("rendering stack spec: %w", err)
			}

			fmt.Print(rendered)

			return nil
		},
	}

	renderCmd.Flags().StringVar(&env, "env", "", "Target environment")

	return renderCmd
}
