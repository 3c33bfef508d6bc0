package bed

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/bead"
	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/kernel/analytic"
	"github.com/matzehuels/packmesh/pkg/packing"
)

func writePacking(t *testing.T, recs []packing.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "packing.xyzd")
	if err := packing.WriteFile(path, packing.MustParseFormat("<d"), recs); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadSelection(t *testing.T) {
	recs := []packing.Record{
		{X: 0, Y: 0, Z: 0.5, D: 1},
		{X: 1, Y: 0, Z: 1.5, D: 1},
		{X: 2, Y: 0, Z: 2.5, D: 1},
	}
	path := writePacking(t, recs)
	f := packing.MustParseFormat("<d")

	tests := []struct {
		name   string
		params Params
		want   []bead.Bead
	}{
		{
			name:   "all",
			params: DefaultParams(),
			want:   []bead.Bead{bead.New(0, 0, 0.5, 0.5), bead.New(1, 0, 1.5, 0.5), bead.New(2, 0, 2.5, 0.5)},
		},
		{
			name:   "count",
			params: Params{Scaling: 1, ParticleScaling: 1, Count: 2},
			want:   []bead.Bead{bead.New(0, 0, 0.5, 0.5), bead.New(1, 0, 1.5, 0.5)},
		},
		{
			name:   "window in model units",
			params: Params{Scaling: 2, ParticleScaling: 1, ZBot: 2, ZTop: 4, Count: -1},
			want:   []bead.Bead{bead.New(2, 0, 3, 1)},
		},
		{
			name:   "particle scaling",
			params: Params{Scaling: 1, ParticleScaling: 0.5, Count: 1},
			want:   []bead.Bead{bead.New(0, 0, 0.5, 0.25)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Read(path, f, tt.params)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, b.Beads().All()); diff != "" {
				t.Errorf("beads mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadEmptyWindowIsConfigurationError(t *testing.T) {
	path := writePacking(t, []packing.Record{{X: 0, Y: 0, Z: 5, D: 1}})
	p := DefaultParams()
	p.ZBot, p.ZTop = 0, 1
	_, err := Read(path, packing.MustParseFormat("<d"), p)
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Fatalf("Read() error = %v, want CONFIGURATION", err)
	}
}

func TestReadUnreadable(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing"), packing.MustParseFormat("<d"), DefaultParams())
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Fatalf("Read() error = %v, want CONFIGURATION", err)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{"defaults", func(*Params) {}, false},
		{"zero scaling", func(p *Params) { p.Scaling = 0 }, true},
		{"negative particle scaling", func(p *Params) { p.ParticleScaling = -1 }, true},
		{"inverted window", func(p *Params) { p.ZBot, p.ZTop = 2, 1 }, true},
		{"inverted window ignored with count", func(p *Params) { p.ZBot, p.ZTop, p.Count = 2, 1, 3 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBoundsAndDerived(t *testing.T) {
	b, err := FromBeads([]bead.Bead{bead.New(0, 0, 1, 1), bead.New(4, 2, 3, 0.5)})
	if err != nil {
		t.Fatal(err)
	}
	got := b.Bounds()
	want := Bounds{
		Min:  r3.Vec{X: -1, Y: -1, Z: 0},
		Max:  r3.Vec{X: 4.5, Y: 2.5, Z: 3.5},
		RMin: 0.5, RMax: 1, RAvg: 0.75,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Bounds mismatch (-want +got):\n%s", diff)
	}
	if b.R() != 2.75 || b.Height() != 3.5 {
		t.Errorf("R() = %v, Height() = %v", b.R(), b.Height())
	}
	wantVol := 4.0/3*math.Pi + 4.0/3*math.Pi*0.125
	if math.Abs(b.BeadVolume()-wantVol) > 1e-12 {
		t.Errorf("BeadVolume() = %v, want %v", b.BeadVolume(), wantVol)
	}
}

func TestFromBeadsEmpty(t *testing.T) {
	if _, err := FromBeads(nil); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Fatalf("FromBeads(nil) = %v, want CONFIGURATION", err)
	}
}

func TestMoveToCenter(t *testing.T) {
	k := analytic.New()
	b, _ := FromBeads([]bead.Bead{bead.New(10, 10, 5, 1), bead.New(14, 12, 7, 1)})
	if err := b.Generate(k); err != nil {
		t.Fatal(err)
	}
	if err := b.MoveToCenter(k); err != nil {
		t.Fatal(err)
	}
	bounds := b.Bounds()
	want := r3.Box{Min: r3.Vec{X: -3, Y: -2, Z: 0}, Max: r3.Vec{X: 3, Y: 2, Z: 4}}
	if bounds.Box() != want {
		t.Errorf("bounds after MoveToCenter = %v, want %v", bounds.Box(), want)
	}
	if err := k.Synchronize(); err != nil {
		t.Fatal(err)
	}
	com, err := k.CenterOfMass(b.DimTags()[0])
	if err != nil {
		t.Fatal(err)
	}
	if com != (r3.Vec{X: -2, Y: -1, Z: 1}) {
		t.Errorf("kernel sphere moved to %v", com)
	}
}

func TestRecordsRaw(t *testing.T) {
	recs := []packing.Record{{X: 1, Y: 2, Z: 3, D: 0.5}}
	p := Params{Scaling: 2, ParticleScaling: 0.5, Count: -1, ZBot: math.Inf(-1), ZTop: math.Inf(1)}
	b, err := FromRecords(recs, p)
	if err != nil {
		t.Fatal(err)
	}
	opt := cmpopts.EquateApprox(0, 1e-12)
	if diff := cmp.Diff(recs, b.Records(true), opt); diff != "" {
		t.Errorf("raw records mismatch (-want +got):\n%s", diff)
	}
	model := []packing.Record{{X: 2, Y: 4, Z: 6, D: 0.5}}
	if diff := cmp.Diff(model, b.Records(false), opt); diff != "" {
		t.Errorf("model records mismatch (-want +got):\n%s", diff)
	}

	path := filepath.Join(t.TempDir(), "out", "stacked.xyzd")
	f := packing.MustParseFormat(">d")
	if err := b.WritePacking(path, f, true); err != nil {
		t.Fatal(err)
	}
	back, err := FromRecords(mustRead(t, path, f), p)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(b.Beads().All(), back.Beads().All(), opt); diff != "" {
		t.Errorf("written packing does not read back (-want +got):\n%s", diff)
	}
}

func mustRead(t *testing.T, path string, f packing.Format) []packing.Record {
	t.Helper()
	recs, err := packing.ReadFile(path, f)
	if err != nil {
		t.Fatal(err)
	}
	return recs
}

func TestSizeFields(t *testing.T) {
	k := analytic.New()
	b, _ := FromBeads([]bead.Bead{bead.New(0, 0, 0, 1), bead.New(3, 0, 0, 2)})
	if err := b.Generate(k); err != nil {
		t.Fatal(err)
	}
	fields, err := b.SizeFields(k, 0.1, 0.5, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 {
		t.Fatalf("SizeFields returned %d fields, want 2", len(fields))
	}
	id, _ := b.Beads().Identity(1)
	if id.Anchor == 0 {
		t.Error("bead 1 has no anchor point")
	}
	again, err := b.SizeFields(k, 0.1, 0.5, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if id2, _ := b.Beads().Identity(1); id2.Anchor != id.Anchor || len(again) != 2 {
		t.Errorf("second SizeFields call re-anchored: %d -> %d", id.Anchor, id2.Anchor)
	}
}
