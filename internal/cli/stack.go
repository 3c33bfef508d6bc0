package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/model"
)

// stackCommand creates the stack command.
func (c *CLI) stackCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "stack CONFIG",
		Short: "Stack periodic ghosts onto the packed bed without building the model",
		Long: `Stack reads the packed bed and the container from the configuration and
adds a periodic image of every bead cut by a container wall. The stacked
packing is written with --packing (or output.packing), and the provenance
of every ghost with --provenance.`,
		Example: `  packmesh stack case.yaml --packing stacked.xyzd
  packmesh stack case.yaml -p xyz --provenance ghosts.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd.Flags(), args[0])
			if err != nil {
				return err
			}
			if len(cfg.ColumnAxes()) == 0 {
				printWarning("container is not periodic; nothing to stack")
			}

			runner, err := c.newRunner(flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Cache.Close()

			prog := newProgress(loggerFromContext(cmd.Context()), args[0])
			var result *model.Result
			err = c.withSpinner(cmd.Context(), "Reading packed bed...", "Stacking failed", func() (err error) {
				result, err = runner.Stack(cmd.Context(), cfg)
				return err
			})
			if err != nil {
				return err
			}
			prog.done("Stacked bed", "beads", result.Stats.Beads, "ghosts", result.Stats.Ghosts)

			printSuccess("Stacked %s with %s", result.Container, cfg.Container.StackMethod)
			printStats(result.Stats.Beads, result.Stats.Ghosts, result.CacheInfo.StackHit)
			if result.Stack != nil {
				printDetail("%d beads cut along %s", len(result.Stack.Cuts), geom.FormatAxes(cfg.ColumnAxes()))
			}
			for _, f := range result.Files {
				printFile(f)
			}
			printNextStep("Build the model", "packmesh build "+filepath.Base(args[0]))
			return nil
		},
	}

	flags.register(cmd.Flags())
	return cmd
}
