package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goplus/cyext/pkgs/pkgconfig"
)

var flagsDirs []string

var flagsCmd = &cobra.Command{
	Use:   "flags [package...]",
	Short: "Print the pkg-config flags of packages",
	Long: `Flags queries pkg-config for the compile and link flags of the given
packages. Each --dir is appended to PKG_CONFIG_PATH for the query.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFlags,
}

func init() {
	flagsCmd.Flags().StringArrayVar(&flagsDirs, "dir", nil, "Extra pkg-config search directory (repeatable)")
	rootCmd.AddCommand(flagsCmd)
}

func runFlags(cmd *cobra.Command, args []string) error {
	tool := pkgconfig.New("")
	tool.SetLogger(logger)
	flags, err := tool.Flags(cmd.Context(), args, flagsDirs)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "cflags: %s\n", strings.Join(flags.CompileFlags, " "))
	fmt.Fprintf(out, "libs: %s\n", strings.Join(flags.LinkFlags, " "))
	return nil
}
