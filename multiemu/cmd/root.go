// Package cmd provides the command-line interface of multiemu.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "multiemu",
	Short: "multiemu runs machines assembled from emulated components.",
	Long: `multiemu runs machines assembled from emulated components. ` +
		`Machines are described in YAML files that list their address ` +
		`spaces and the components attached to them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It exits through atexit so that recorders are flushed.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
