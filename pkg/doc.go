// Package pkg provides the core libraries of packmesh.
//
// # Overview
//
// packmesh turns a packing of spherical beads into a solid column model
// ready for meshing. Beads crossing a periodic container wall get ghost
// images on the opposite side, the beads are fragmented against the
// container, and the resulting surfaces are classified, periodically paired
// and grouped. The pkg directory is organized into four areas:
//
//  1. Geometry - [geom], [bead], [packing] and [container]
//  2. Modeling - [bed] (stacking) and [column] (sections)
//  3. Geometry kernels - [kernel] and its [kernel/analytic] backend
//  4. Orchestration - [config], [model], [cache], [observability] and
//     [render/provenance]
//
// # Architecture
//
// The data flow of one run:
//
//	packing file + configuration
//	         ↓
//	    [bed] package (read, select, scale, stack ghosts)
//	         ↓
//	    [column] package (fragment, classify, pair, group)
//	         ↓
//	    [kernel] (mesh setup + write)
//	         ↓
//	    model file, one file per section, stacked packing, provenance graph
//
// # Quick Start
//
// Build the model described by a configuration file:
//
//	import (
//	    "context"
//	    "fmt"
//	    "github.com/matzehuels/packmesh/pkg/config"
//	    "github.com/matzehuels/packmesh/pkg/model"
//	)
//
//	cfg, _ := config.Load("case.yaml")
//	runner := model.NewRunner(nil, nil, nil, nil)
//	result, _ := runner.Execute(context.Background(), cfg)
//	for _, s := range result.Sections {
//	    fmt.Println(s)
//	}
//
// # Main Packages
//
// ## Geometry
//
// [geom] - Axes, the six container walls and their normals, and box helpers
// used by stacking and surface pairing.
//
// [packing] - The binary x, y, z, diameter record format with configurable
// byte order and width.
//
// [container] - Box and cylinder containers, their sections and their
// creation in a kernel.
//
// ## Modeling
//
// [bed] - The packed bed: bead selection, scaling, centering and the plane
// cut and volume cut stacking methods. Every cut bead gets 2^k-1 ghosts for
// the k walls cutting it.
//
// [column] - One fragmented section: volume separation, surface
// classification, periodic pairing and the fixed physical groups.
//
// ## Orchestration
//
// [model] - The run pipeline used by the CLI. Ensures consistent stage order,
// caching and logging.
//
// [cache] - Stacking results keyed by the bed and container, stored on disk.
//
// [render/provenance] - The ghost provenance of a stacking pass as DOT or SVG.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/bed/...                # Specific package
//	go test -run Property ./pkg/...      # Property tests only
//
// [geom]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/geom
// [bead]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/bead
// [packing]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/packing
// [container]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/container
// [bed]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/bed
// [column]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/column
// [kernel]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/kernel
// [kernel/analytic]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/kernel/analytic
// [config]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/config
// [model]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/model
// [cache]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/observability
// [render/provenance]: https://pkg.go.dev/github.com/matzehuels/packmesh/pkg/render/provenance
package pkg
