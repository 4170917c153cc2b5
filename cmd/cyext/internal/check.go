package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/goplus/cyext/internal/build"
)

var checkSetup string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show which generated sources are stale",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkSetup, "setup", defaultSetupFile, "Setup script next to pyproject.toml")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	proj, err := loadProject(checkSetup, "")
	if err != nil {
		return err
	}
	mappings, err := proj.builder.Check(proj.exts)
	if err != nil {
		return err
	}
	decision, err := proj.builder.Decide(proj.exts, nil)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderCheck(mappings, decision))
	return nil
}

var (
	nameStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	pathStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	freshStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	staleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Italic(true)
)

func renderCheck(mappings []build.Mapping, decision bool) string {
	var sb strings.Builder
	if len(mappings) == 0 {
		sb.WriteString(hintStyle.Render("no Cython sources declared"))
		sb.WriteString("\n")
	}

	width := 0
	for _, m := range mappings {
		width = max(width, len(m.Extension))
	}
	for _, m := range mappings {
		status := freshStyle.Render("up to date")
		if !m.UpToDate {
			status = staleStyle.Render("stale")
		}
		fmt.Fprintf(&sb, "%s  %s  %s\n",
			nameStyle.Render(fmt.Sprintf("%-*s", width, m.Extension)),
			pathStyle.Render(m.Source+" -> "+m.Output),
			status)
	}

	if decision {
		sb.WriteString(hintStyle.Render("build would translate all extensions"))
	} else {
		sb.WriteString(hintStyle.Render("build would reuse the generated sources"))
	}
	sb.WriteString("\n")
	return sb.String()
}
