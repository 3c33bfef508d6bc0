package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/packing"
)

// execute runs the root command with args and a silent logger.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

// writeCase writes a two-bead packing next to a YAML config and returns the
// config path and its directory.
func writeCase(t *testing.T, body string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	recs := []packing.Record{{X: 0, Y: 2, Z: 2, D: 1}, {X: 2, Y: 2, Z: 2, D: 1}}
	if err := packing.WriteFile(filepath.Join(dir, "packing.xyzd"), packing.MustParseFormat("<d"), recs); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "case.yaml")
	if err := os.WriteFile(path, []byte(strings.ReplaceAll(body, "$DIR", dir)), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

const caseYAML = `
container:
  size: [0, 0, 0, 4, 4, 4]
output:
  filename: $DIR/out.json
`

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, log.InfoLevel).RootCommand()
	var got []string
	for _, cmd := range root.Commands() {
		got = append(got, cmd.Name())
	}
	want := []string{"build", "cache", "completion", "info", "stack", "version"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("subcommands mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCommand(t *testing.T) {
	path, dir := writeCase(t, caseYAML)
	buf := captureOutput(t)

	stacked := filepath.Join(dir, "stacked.xyzd")
	if err := execute(t, "build", path, "--no-cache", "-p", "x", "--packing", stacked); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{filepath.Join(dir, "out.json"), filepath.Join(dir, "out_column.json"), stacked} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}
	for _, want := range []string{"Built 1 section(s)", "2 beads", "1 ghosts", "x pairs 2"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output lacks %q:\n%s", want, buf.String())
		}
	}
}

func TestBuildCommandRejectsConfig(t *testing.T) {
	path, _ := writeCase(t, caseYAML)
	captureOutput(t)

	err := execute(t, "build", path, "--no-cache", "--stack-method", "random")
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("build with a bad stack method = %v, want CONFIGURATION", err)
	}
	if err := execute(t, "build"); err == nil {
		t.Error("build without a config succeeded")
	}
}

func TestStackCommand(t *testing.T) {
	path, dir := writeCase(t, caseYAML)
	buf := captureOutput(t)

	dot := filepath.Join(dir, "stack.dot")
	if err := execute(t, "stack", path, "--no-cache", "-p", "xy", "--provenance", dot); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.json")); !os.IsNotExist(err) {
		t.Errorf("stack wrote the model: %v", err)
	}
	data, err := os.ReadFile(dot)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "digraph") {
		t.Errorf("provenance is not a graph:\n%s", data)
	}
	for _, want := range []string{"1 beads cut along xy", "packmesh build case.yaml"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output lacks %q:\n%s", want, buf.String())
		}
	}
}

func TestInfoCommand(t *testing.T) {
	_, dir := writeCase(t, caseYAML)
	buf := captureOutput(t)

	if err := execute(t, "info", filepath.Join(dir, "packing.xyzd")); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"beads", "bead volume", "box 0.6509", "radial reach", "3.32843", "volume 7.06858", "cylinder 0.8519"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("info output lacks %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := execute(t, "info", filepath.Join(dir, "packing.xyzd"), "--center"); err != nil {
		t.Fatal(err)
	}
	// Centered, the beads sit at x = -1 and 1 on the z axis.
	var reach string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "radial reach") {
			reach = line
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(reach), " 1.5") {
		t.Errorf("centered radial reach line = %q, want 1.5", reach)
	}

	if err := execute(t, "info", filepath.Join(dir, "packing.xyzd"), "--format", "<q"); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("info with a bad format = %v, want CONFIGURATION", err)
	}
}

func TestRunFlagsOverride(t *testing.T) {
	path, _ := writeCase(t, caseYAML)

	var f runFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs)
	if err := fs.Parse([]string{"-p", "XY", "--stack-method", "volumecut", "-o", "model.json"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := f.load(fs, path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Container.Periodicity != "xy" || cfg.Container.StackMethod != "volumecut" || cfg.Output.Filename != "model.json" {
		t.Errorf("overrides not applied: %+v %+v", cfg.Container, cfg.Output)
	}
	if cfg.Output.Packing != "" {
		t.Errorf("unset flag overrode output.packing: %q", cfg.Output.Packing)
	}
}

func TestVersionCommand(t *testing.T) {
	buf := captureOutput(t)
	if err := execute(t, "version"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "packmesh") {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish"} {
		t.Run(shell, func(t *testing.T) {
			buf := captureOutput(t)
			if err := execute(t, "completion", shell); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), "packmesh") {
				t.Errorf("%s completion does not mention packmesh", shell)
			}
		})
	}
	captureOutput(t)
	if err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("completion accepted an unknown shell")
	}
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"coded chain",
			errors.Wrap(errors.ErrCodeIO, errors.New(errors.ErrCodeConfiguration, "packing is empty"), "read beads.xyzd"),
			"read beads.xyzd: packing is empty [IO]",
		},
		{
			"pairing diagnostic",
			&errors.PairingError{
				Axis:       "x",
				Diagnostic: "out_column_periodic_x.json",
				Err:        errors.New(errors.ErrCodePeriodicPairing, "column: 3 surfaces on the lower x wall, 2 on the upper"),
			},
			"column: 3 surfaces on the lower x wall, 2 on the upper (diagnostic: out_column_periodic_x.json) [PERIODIC_PAIRING]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			PrintError(&buf, tt.err)
			if !strings.HasSuffix(strings.TrimSpace(buf.String()), tt.want) {
				t.Errorf("PrintError() = %q, want suffix %q", buf.String(), tt.want)
			}
		})
	}
}
