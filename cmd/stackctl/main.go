package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	configcmd "github.com/AnotherFullstackDev/stack-ctl/cmd/stackctl/config"
	"github.com/AnotherFullstackDev/stack-ctl/cmd/stackctl/service"
	"github.com/AnotherFullstackDev/stack-ctl/cmd/stackctl/stack"
	"github.com/AnotherFullstackDev/stack-ctl/internal/config"
	"github.com/AnotherFullstackDev/stack-ctl/internal/engine"
	"github.com/AnotherFullstackDev/stack-ctl/internal/factories"
	"github.com/AnotherFullstackDev/stack-ctl/internal/keyring"
	"github.com/AnotherFullstackDev/stack-ctl/internal/lib"
	"github.com/AnotherFullstackDev/stack-ctl/internal/placeholders"
	"github.com/AnotherFullstackDev/stack-ctl/internal/placeholders/git"
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "stackctl",
	Short: "Stackctl builds and runs multi-service container stacks from a declarative stack file.",
}

var (
	configFile string
	locator    *factories.SharedServicesLocator
)

func getLocator() *factories.SharedServicesLocator {
	return locator
}

func main() {
	setupLogging()

	RootCmd.PersistentFlags().StringVarP(&configFile, "file", "f", config.DefaultConfigFile, "Path to the stack file")

	RootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfigFromPath(configFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		gitInfo, err := git.NewRepositoryInfoService(".")
		if err != nil {
			slog.Debug("no git repository detected, git placeholders unavailable", "error", err)
		}

		locator = factories.NewSharedServicesLocator(
			cfg,
			engine.NewCLIEngine(""),
			keyring.MustNewService("stackctl"),
			placeholders.NewService(gitInfo),
		)

		return nil
	}

	RootCmd.AddCommand(
		stack.NewStackCmd(getLocator),
		service.NewServiceCmd(getLocator),
		configcmd.NewConfigCmd(getLocator),
	)

	if err := RootCmd.Execute(); err != nil {
		log.Fatal(fmt.Errorf("error executing command: %w", err))
	}
}

func setupLogging() {
	level := slog.LevelInfo

	switch strings.ToLower(os.Getenv(lib.LogLevelEnv)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
