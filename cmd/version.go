package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the scheduler version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("scheduler version %s\n", version)
		},
	}
}
