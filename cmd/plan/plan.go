package plan

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/configsync/cmd/util"
	"github.com/sidkik/configsync/pkg/sync"
)

// Mocked out for unit testing.
var (
	syncFs        afero.Fs  = afero.NewOsFs()
	resolveConfig           = util.ResolveConfig
	stdout        io.Writer = os.Stdout
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// New creates a new `plan` command.
func New() *cobra.Command {
	var roots util.RootFlags
	cobraCmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what `configsync run` would do",
		Long: "Evaluate every configuration unit against the legacy and current\n" +
			"configuration directories, and print the decision a run would make.\n" +
			"Nothing is written.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(roots); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	cobraCmd.Flags().StringVar(&roots.Legacy, "legacy", "", "The legacy configuration directory")
	cobraCmd.Flags().StringVar(&roots.Canonical, "canonical", "", "The current configuration directory")
	return cobraCmd
}

func run(flags util.RootFlags) error {
	_, roots, err := resolveConfig(flags)
	if err != nil {
		return err
	}

	result := sync.New(syncFs, roots, sync.Options{DryRun: true}).Run()
	if len(result.Outcomes) == 0 {
		fmt.Fprintf(stdout, "Nothing to migrate: %s doesn't exist.\n", roots.Legacy)
		return nil
	}

	fmt.Fprintln(stdout, render(result))
	fmt.Fprintf(stdout, "%d of %d units would change %s.\n",
		result.Changed, len(result.Outcomes), roots.Canonical)
	return nil
}

func render(result sync.Result) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PATH", "POLICY", "ACTION", "REASON").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, o := range result.Outcomes {
		reason := o.Decision.Reason
		if o.Err != nil {
			reason = o.Err.Error()
		}
		t.Row(o.Unit.Path, o.Unit.Policy.String(), o.Decision.Action.String(), reason)
	}
	return t.String()
}
