package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denniswebb/mediacms/src/features/watching"
	"github.com/spf13/cobra"
)

func newScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Import files by listing the watch directories on an interval",
		Long: "Scan takes full directory listings instead of waiting for filesystem " +
			"notifications. Use it on network mounts where notifications are unreliable, " +
			"or with --once for cron-style batch ingestion.",
		RunE: runScan,
	}

	cmd.Flags().Bool("once", false, "Run a single listing pass and exit")
	cmd.Flags().Duration("interval", 0, "Delay between listings (overrides the configured scan interval)")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval != 0 && interval < time.Second {
		return fmt.Errorf("--interval must be at least 1s, got %s", interval)
	}
	interval = interval.Round(time.Second)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()
	a.startServer()

	if interval > 0 {
		a.cfg.SetScanInterval(interval)
	}

	once, _ := cmd.Flags().GetBool("once")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")

	return a.service.Run(ctx, watching.Options{
		Mode:   watching.ModeScan,
		Once:   once,
		DryRun: dryRun,
		Force:  force,
	})
}
