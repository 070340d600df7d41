// Package cmd provides the command-line interface of rvcore.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rvcore",
	Short: "rvcore emulates the memory system of a RISC-V core.",
	Long: `rvcore emulates the memory system of a RISC-V core. It can ` +
		`translate addresses through guest page tables, replay software TLB ` +
		`installs and run a machine built from a configuration file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
