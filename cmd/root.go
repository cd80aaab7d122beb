package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the scheduler application
var rootCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Books meetings with Blag over Google Calendar",
	Long: `scheduler lets guests authenticate with their Google account, see the
hours this week during which both they and Blag are free, and book one of
those slots as a calendar event.`,
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
	rootCmd.SetVersionTemplate(`{{printf "scheduler version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
