package model

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/packmesh/pkg/bed"
	"github.com/matzehuels/packmesh/pkg/cache"
	"github.com/matzehuels/packmesh/pkg/config"
	"github.com/matzehuels/packmesh/pkg/container"
	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/observability"
	"github.com/matzehuels/packmesh/pkg/packing"
	"github.com/matzehuels/packmesh/pkg/render/provenance"
)

// keyFormat encodes beads for hashing independently of the input format.
var keyFormat = packing.MustParseFormat("<d")

// stack adds the periodic ghosts, replaying a cached result when one exists
// for the same beads, container and method. Plane and volume cuts scan all
// six walls whatever the periodicity; only the "all" method is restricted to
// the column axes.
func (r *Runner) stack(ctx context.Context, cfg *config.Config, b *bed.PackedBed, c *container.Container, logger *log.Logger) (*bed.StackReport, bool, error) {
	method := cfg.StackMethod()
	axes := cfg.ColumnAxes()

	bedHash, err := cache.HashEncoded(func(w io.Writer) error {
		return packing.Encode(w, keyFormat, b.Records(false))
	})
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "encode beads for cache key")
	}
	opts := cache.StackKeyOpts{Container: c.SizeVector(), Method: string(method)}
	if method == bed.All {
		opts.Axes = geom.FormatAxes(axes)
	}
	key := r.Keyer.StackKey(bedHash, opts)

	var cached bed.StackReport
	hit, err := cache.GetJSON(ctx, r.Cache, key, &cached)
	if err != nil {
		logger.Warn("ignoring stacking cache entry", "error", err)
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, "stack")
		if err := b.ApplyGhosts(r.Kernel, &cached); err != nil {
			return nil, true, err
		}
		return &cached, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "stack")

	observability.Stage().OnStackStart(ctx, string(method), b.Len())
	start := time.Now()
	report, err := b.Stack(r.Kernel, c, method, axes)
	if err != nil {
		observability.Stage().OnStackComplete(ctx, string(method), 0, time.Since(start), err)
		return nil, false, err
	}
	observability.Stage().OnStackComplete(ctx, string(method), report.GhostCount(), time.Since(start), nil)

	if data, err := json.Marshal(report); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLStack); err != nil {
			logger.Warn("could not cache stacking result", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "stack", len(data))
		}
	}
	return report, false, nil
}

// writeStackOutputs writes the stacked packing and the provenance graph when
// they are configured, and returns the written paths.
func writeStackOutputs(cfg *config.Config, b *bed.PackedBed, report *bed.StackReport) ([]string, error) {
	var files []string
	if p := cfg.Output.Packing; p != "" {
		if err := b.WritePacking(p, cfg.Format(), false); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "write packing %s", p)
		}
		files = append(files, p)
	}
	if p := cfg.Output.Provenance; p != "" && report != nil {
		data := []byte(provenance.ToDOT(report, b.Beads().All(), provenance.Options{Detailed: true}))
		if strings.EqualFold(filepath.Ext(p), ".svg") {
			svg, err := provenance.RenderSVG(string(data))
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeIO, err, "render provenance")
			}
			data = svg
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "write provenance %s", p)
		}
		files = append(files, p)
	}
	return files, nil
}
