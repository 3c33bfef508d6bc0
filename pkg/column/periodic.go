package column

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/kernel"
)

// MatchPeriodicSurfaces pairs every left surface with the unique right
// surface whose bounding box, ignoring axis, matches within the column
// tolerance, and registers the right surfaces as periodic copies of the left
// ones translated by d along axis.
//
// Unequal counts, an unmatched surface or an ambiguous match fail with a
// *errors.PairingError after the offending surfaces were written to
// <prefix>_periodic_<axis>.json.
func (c *Column) MatchPeriodicSurfaces(left, right []int, axis geom.Axis, d float64) error {
	if err := c.k.Synchronize(); err != nil {
		return errors.Wrap(errors.ErrCodeKernel, err, "synchronize")
	}
	if len(left) != len(right) {
		return c.pairingError(axis, left, right, "%s: %d surfaces on the lower %s wall, %d on the upper", c.opts.Name, len(left), axis, len(right))
	}
	lboxes, err := c.maskedBoxes(left, axis)
	if err != nil {
		return err
	}
	rboxes, err := c.maskedBoxes(right, axis)
	if err != nil {
		return err
	}

	slaves := make([]int, len(left))
	used := make([]bool, len(right))
	for i, lb := range lboxes {
		match := -1
		for j, rb := range rboxes {
			if !geom.BoxesClose(lb, rb, c.opts.Tolerance) {
				continue
			}
			if match >= 0 {
				return c.pairingError(axis, []int{left[i]}, []int{right[match], right[j]},
					"%s: surface %d matches both %d and %d along %s", c.opts.Name, left[i], right[match], right[j], axis)
			}
			match = j
		}
		if match < 0 {
			return c.pairingError(axis, []int{left[i]}, right,
				"%s: surface %d has no partner along %s", c.opts.Name, left[i], axis)
		}
		if used[match] {
			return c.pairingError(axis, []int{left[i]}, []int{right[match]},
				"%s: surface %d is already paired along %s", c.opts.Name, right[match], axis)
		}
		used[match] = true
		slaves[i] = right[match]
	}

	t := kernel.Translation(geom.Set(r3.Vec{}, axis, d))
	if err := c.k.SetPeriodic(2, slaves, left, t); err != nil {
		return errors.Wrap(errors.ErrCodeKernel, err, "%s: set periodic along %s", c.opts.Name, axis)
	}
	c.pairs[axis] = len(left)
	c.opts.Logger.Debug("paired periodic surfaces", "section", c.opts.Name, "axis", axis, "pairs", len(left), "translation", d)
	return nil
}

func (c *Column) maskedBoxes(tags []int, axis geom.Axis) ([]r3.Box, error) {
	out := make([]r3.Box, len(tags))
	for i, t := range tags {
		bb, err := c.k.BoundingBox(kernel.DimTag{Dim: 2, Tag: t})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernel, err, "%s: bounds of surface %d", c.opts.Name, t)
		}
		out[i] = geom.MaskAxis(bb, axis)
	}
	return out, nil
}

// pairingError dumps the offending surfaces, when a prefix is set, and
// returns the pairing failure.
func (c *Column) pairingError(axis geom.Axis, left, right []int, format string, args ...any) error {
	perr := &errors.PairingError{
		Axis:  axis.String(),
		Left:  left,
		Right: right,
		Err:   errors.New(errors.ErrCodePeriodicPairing, format, args...),
	}
	if c.opts.DiagnosticPrefix == "" {
		return perr
	}
	path := fmt.Sprintf("%s_periodic_%s.json", c.opts.DiagnosticPrefix, axis)
	dump := append(kernel.Surfaces(left...), kernel.Surfaces(right...)...)
	if err := c.k.WriteEntities(path, dump); err != nil {
		c.opts.Logger.Warn("could not write pairing diagnostic", "path", path, "error", err)
		return perr
	}
	perr.Diagnostic = path
	c.opts.Logger.Error("periodic pairing failed", "section", c.opts.Name, "axis", axis, "diagnostic", path)
	return perr
}

// PairWalls pairs the opposite walls of every axis in axes: x- with x+, y-
// with y+, and the inlet with the outlet for z. The translation along each
// axis is the matching component of extents.
func (c *Column) PairWalls(axes []geom.Axis, extents r3.Vec) error {
	for _, a := range axes {
		lo, hi := c.walls[geom.WallOf(a, false)], c.walls[geom.WallOf(a, true)]
		if err := c.MatchPeriodicSurfaces(lo, hi, a, geom.Component(extents, a)); err != nil {
			return err
		}
	}
	return nil
}

// Pairs returns the number of registered pairs per axis.
func (c *Column) Pairs() map[geom.Axis]int {
	out := make(map[geom.Axis]int, len(c.pairs))
	for a, n := range c.pairs {
		out[a] = n
	}
	return out
}
