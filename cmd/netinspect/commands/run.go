package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netinspect/netinspect/cmd/netinspect/internal/format"
	"github.com/netinspect/netinspect/pkg/dispatch"
	"github.com/netinspect/netinspect/pkg/inspect"
	"github.com/netinspect/netinspect/pkg/inventory"
	"github.com/netinspect/netinspect/pkg/profile"
	"github.com/netinspect/netinspect/pkg/report"
	"github.com/netinspect/netinspect/pkg/session"
)

func newRunCommand(deps *runtimeDeps) *cobra.Command {
	var inventoryPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inspect every device in the inventory",
		Long: `Loads the device inventory, connects to each device concurrently and
writes one report per device into the result directory. Unreachable or
failing devices produce an error log instead; they never stop the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.cfg
			logger := deps.logger

			if inventoryPath == "" {
				inventoryPath = cfg.Inspect.Inventory
			}

			registry := profile.Default()

			devices, err := inventory.Load(inventoryPath, registry, logger)
			if err != nil {
				return fmt.Errorf("load inventory: %w", err)
			}
			if len(devices) == 0 {
				return fmt.Errorf("inventory %s contains no usable devices", inventoryPath)
			}

			store := report.NewStore(cfg.Inspect.ResultDir, logger)
			if err := store.CleanOld(cfg.Inspect.KeepRuns); err != nil {
				logger.Warn().Err(err).Msg("old report cleanup failed")
			}
			if err := store.Init(); err != nil {
				return fmt.Errorf("prepare result directory: %w", err)
			}

			connector := session.NewConnector(registry, logger)
			executor := inspect.NewExecutor(connector, registry, store, logger)

			dispatcher := dispatch.NewDispatcher(executor, cfg.Inspect.Workers, logger)
			if cfg.Inspect.PingPrecheck {
				dispatcher = dispatcher.WithPrecheck(dispatch.NewPrecheck(logger))
			}

			outcomes := dispatcher.RunAll(cmd.Context(), devices)

			succeeded := 0
			for _, o := range outcomes {
				if o.Success {
					succeeded++
				}
			}
			logger.Info().
				Int("devices", len(outcomes)).
				Int("succeeded", succeeded).
				Int("failed", len(outcomes)-succeeded).
				Str("result_dir", cfg.Inspect.ResultDir).
				Msg("all inspection tasks completed")

			fmt.Fprint(cmd.OutOrStdout(), format.RunSummary(outcomes, cfg.Inspect.ResultDir))
			return nil
		},
	}

	cmd.Flags().StringVarP(&inventoryPath, "inventory", "i", "", "Device inventory YAML (defaults to inspect.inventory)")

	return cmd
}
