package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/packmesh/pkg/column"
	"github.com/matzehuels/packmesh/pkg/config"
	"github.com/matzehuels/packmesh/pkg/model"
)

// runFlags are the config overrides shared by build and stack.
type runFlags struct {
	output      string
	packing     string
	provenance  string
	periodicity string
	stackMethod string
	noCache     bool
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.output, "output", "o", "", "model output file (overrides output.filename)")
	fs.StringVar(&f.packing, "packing", "", "write the stacked packing here (overrides output.packing)")
	fs.StringVar(&f.provenance, "provenance", "", "write the stacking provenance graph, .dot or .svg (overrides output.provenance)")
	fs.StringVarP(&f.periodicity, "periodicity", "p", "", "periodic axes, a subset of xyz (overrides container.periodicity)")
	fs.StringVar(&f.stackMethod, "stack-method", "", "planecut, volumecut or all (overrides container.stack_method)")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable the stacking cache")
}

// load reads the configuration and applies the flags that were set.
func (f *runFlags) load(fs *pflag.FlagSet, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if fs.Changed("output") {
		cfg.Output.Filename = f.output
	}
	if fs.Changed("packing") {
		cfg.Output.Packing = f.packing
	}
	if fs.Changed("provenance") {
		cfg.Output.Provenance = f.provenance
	}
	if fs.Changed("periodicity") {
		cfg.Container.Periodicity = strings.ToLower(f.periodicity)
	}
	if fs.Changed("stack-method") {
		cfg.Container.StackMethod = f.stackMethod
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "build CONFIG",
		Short: "Build the column model described by a configuration file",
		Long: `Build reads the packed bed, stacks periodic ghosts, fragments the beads
against the container (and the linked inlet and outlet sections), pairs the
periodic surfaces, sets up meshing and writes the model.

The configuration is TOML (.toml) or YAML (.yaml, .yml).`,
		Example: `  packmesh build case.yaml
  packmesh build case.toml -p xy -o column.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd.Flags(), args[0])
			if err != nil {
				return err
			}
			return c.runBuild(cmd, args[0], cfg, flags.noCache)
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

func (c *CLI) runBuild(cmd *cobra.Command, path string, cfg *config.Config, noCache bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(noCache)
	if err != nil {
		return err
	}
	defer runner.Cache.Close()

	prog := newProgress(logger, path)
	var result *model.Result
	err = c.withSpinner(ctx, "Reading packed bed...", "Build failed", func() (err error) {
		result, err = runner.Execute(ctx, cfg)
		return err
	})
	if err != nil {
		return err
	}
	prog.done("Built model", "sections", len(result.Sections), "ghosts", result.Stats.Ghosts)

	printSuccess("Built %d section(s)", len(result.Sections))
	printStats(result.Stats.Beads, result.Stats.Ghosts, result.CacheInfo.StackHit)
	for _, s := range result.Sections {
		printKeyValue(s.Name, sectionLine(s))
	}
	for _, f := range result.Files {
		printFile(f)
	}
	return nil
}

func sectionLine(s column.Summary) string {
	line := fmt.Sprintf("%d particles · inlet %d · outlet %d · walls %d · particle surfaces %d",
		s.Particles, s.Surfaces["inlet"], s.Surfaces["outlet"], s.Surfaces["walls"], s.Surfaces["particles"])
	for _, axis := range []string{"x", "y", "z"} {
		if n, ok := s.Periodic[axis]; ok {
			line += fmt.Sprintf(" · %s pairs %d", axis, n)
		}
	}
	return line
}
