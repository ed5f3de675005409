package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// NewRootCommand creates the root cobra command. Exported so tests can
// drive it with SetArgs.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "mediacms-watch",
		Short:        "Directory watcher that ingests media files into MediaCMS",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Report what would be imported without uploading or recording")
	rootCmd.PersistentFlags().Bool("force", false, "Import files even when their content was already imported")

	rootCmd.AddCommand(
		newRunCommand(),
		newScanCommand(),
	)

	return rootCmd
}
