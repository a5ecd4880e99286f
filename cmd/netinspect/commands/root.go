// Package commands wires the netinspect CLI: configuration loading, logger
// construction and the subcommands that drive inspection runs.
package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/netinspect/netinspect/pkg/config"
	"github.com/netinspect/netinspect/pkg/logging"
)

const cliExecutable = "netinspect"

// runtimeDeps carries the state built in PersistentPreRunE and consumed by
// the subcommands.
type runtimeDeps struct {
	cfg       config.Config
	logger    zerolog.Logger
	logCloser func() error
}

// NewCommand constructs the top-level netinspect CLI command.
func NewCommand() *cobra.Command {
	var (
		configFile     string
		verbosityCount int
		deps           runtimeDeps
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Netinspect runs unattended health-check inspections on network devices",
		Long: `Netinspect connects to switches, routers and firewalls over SSH or Telnet,
runs each device's health-check command list and stores one plain-text
report per device.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			manager := config.NewManager()
			if err := manager.Load(cmd.Flags(), configFile); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			deps.cfg = manager.Get()

			// -v overrides the configured level: 1 => debug, 2+ => trace.
			level := deps.cfg.Log.Level
			switch {
			case verbosityCount == 1:
				level = "debug"
			case verbosityCount >= 2:
				level = "trace"
			}

			logger, closer, err := logging.New(logging.Options{
				Level:  level,
				Format: deps.cfg.Log.Format,
				File:   deps.cfg.Log.File,
			})
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}
			deps.logger = logger
			deps.logCloser = closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if deps.logCloser != nil {
				return deps.logCloser()
			}
			return nil
		},
	}

	cmd.SilenceUsage = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().CountVarP(&verbosityCount, "verbosity", "v", "Increase logging verbosity (repeatable)")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newRunCommand(&deps))
	cmd.AddCommand(newTemplateCommand())

	return cmd
}
