package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/denniswebb/mediacms/src/features/config"
	"github.com/denniswebb/mediacms/src/features/logging"
	"github.com/denniswebb/mediacms/src/features/watching"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch directories continuously and import new files",
		RunE:  runContinuous,
	}

	cmd.Flags().Bool("test", false, "Validate configuration and watch directories, then exit")

	return cmd
}

func runContinuous(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	if testOnly, _ := cmd.Flags().GetBool("test"); testOnly {
		return validateOnly(cmd, configPath)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()
	a.startServer()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")

	return a.service.Run(ctx, watching.Options{
		Mode:   watching.ModeContinuous,
		DryRun: dryRun,
		Force:  force,
	})
}

// validateOnly checks the configuration and every watch directory without
// starting the pipeline. Exit status reflects the report.
func validateOnly(cmd *cobra.Command, configPath string) error {
	cfgManager, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}
	slog.SetDefault(logging.SetupLogger(cfgManager))

	report := cfgManager.ValidateEnvironment()
	out := cmd.OutOrStdout()
	for _, spec := range report.Valid {
		fmt.Fprintf(out, "ok\t%s\t%s (owner=%s, recursive=%t)\n", spec.Name, spec.Path, spec.Owner, spec.Recursive)
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(out, "warn\t%s\n", warning)
	}
	for _, cfgErr := range report.Errors {
		fmt.Fprintf(out, "error\t%s\n", cfgErr)
	}

	if !report.OK() {
		return fmt.Errorf("%d watch director(ies) failed validation", len(report.Errors))
	}
	fmt.Fprintf(out, "configuration valid: %d watch director(ies)\n", len(report.Valid))
	return nil
}
