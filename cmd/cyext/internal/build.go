package internal

import (
	"github.com/spf13/cobra"
)

var (
	buildSetup     string
	buildTranslate string
	buildCompiler  string
	buildOutput    string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Print the extension descriptors",
	Long: `Build completes every extension declared in pyproject.toml and prints the
descriptors. Generated sources are refreshed first when translation is decided:
CYTHONIZE wins over --translate, which wins over the staleness check.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildSetup, "setup", defaultSetupFile, "Setup script next to pyproject.toml")
	buildCmd.Flags().StringVar(&buildTranslate, "translate", "auto", "Translate Cython sources: auto, true or false")
	buildCmd.Flags().StringVar(&buildCompiler, "compiler", "", "Compiler flag family: unix or msvc (default: host)")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", formatJSON, "Output format: json or yaml")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	translate, err := parseTranslate(buildTranslate)
	if err != nil {
		return err
	}
	proj, err := loadProject(buildSetup, buildCompiler)
	if err != nil {
		return err
	}
	exts, err := proj.builder.Build(cmd.Context(), proj.exts, translate)
	if err != nil {
		return err
	}
	return writeExtensions(cmd.OutOrStdout(), buildOutput, exts)
}
