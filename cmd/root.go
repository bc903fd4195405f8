package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the gmailnotify application
var rootCmd = &cobra.Command{
	Use:   "gmailnotify",
	Short: "Sweeps a Gmail inbox and reports to Telegram",
	Long: `gmailnotify connects to a Gmail inbox over IMAP and, for every message:
  - deletes it when the sender is on the delete list
  - adds it to a Telegram summary when the sender is on the notify list
  - saves its attachments when the sender is on the attachment list

Settings are read from GMAILNOTIFY_* environment variables and an optional
.env file in the working directory.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gmailnotify version %s\n" .Version}}`)

	// If no subcommand is provided, run the pipeline by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "run")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())
}
