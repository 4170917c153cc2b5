package internal

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var verbose bool

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "cyext"})

var rootCmd = &cobra.Command{
	Use:   "cyext",
	Short: "cyext prepares native extension builds",
	Long: `cyext reads the [cython_extensions] section of pyproject.toml, completes each
extension with pkg-config and compiler flags, and regenerates C/C++ sources
from Cython when they are out of date.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt)); err != nil {
		os.Exit(1)
	}
}
