package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/packmesh/pkg/bed"
	"github.com/matzehuels/packmesh/pkg/container"
	"github.com/matzehuels/packmesh/pkg/packing"
)

// infoCommand creates the info command.
func (c *CLI) infoCommand() *cobra.Command {
	var (
		format  string
		scaling float64
		center  bool
	)

	cmd := &cobra.Command{
		Use:   "info PACKING",
		Short: "Summarize a packing file",
		Long: `Info reads a binary packing of x, y, z, diameter records and prints the
bead count, the bounds and the derived bed quantities. Porosities are given
for the bounding box of the beads and for the enclosing cylinder around the
z axis. Radial quantities are measured from the z axis; --center moves the
bed there first.`,
		Example: `  packmesh info packing.xyzd
  packmesh info packing.xyzd --format ">f" --scaling 1e-3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := packing.ParseFormat(format)
			if err != nil {
				return err
			}
			p := bed.DefaultParams()
			p.Scaling = scaling
			b, err := bed.Read(args[0], f, p)
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("read packing", "path", args[0], "format", f)
			if center {
				if err := b.MoveToCenter(nil); err != nil {
					return err
				}
			}

			var reach float64
			for _, bd := range b.Beads().All() {
				reach = max(reach, bd.PosXY()+bd.R)
			}

			bounds := b.Bounds()
			box := container.Auto(bounds.Box())
			printTitle(args[0])
			printKeyValue("beads", fmt.Sprintf("%d", b.Len()))
			printKeyValue("min", fmt.Sprintf("%.6g %.6g %.6g", bounds.Min.X, bounds.Min.Y, bounds.Min.Z))
			printKeyValue("max", fmt.Sprintf("%.6g %.6g %.6g", bounds.Max.X, bounds.Max.Y, bounds.Max.Z))
			printKeyValue("radius", fmt.Sprintf("min %.6g · avg %.6g · max %.6g", bounds.RMin, bounds.RAvg, bounds.RMax))
			printKeyValue("bed radius", fmt.Sprintf("%.6g", b.R()))
			printKeyValue("height", fmt.Sprintf("%.6g", b.Height()))
			printKeyValue("bead volume", fmt.Sprintf("%.6g", b.BeadVolume()))
			printKeyValue("radial reach", fmt.Sprintf("%.6g", reach))
			printKeyValue("cylinder", fmt.Sprintf("volume %.6g", b.CylinderVolume()))
			printKeyValue("porosity", fmt.Sprintf("box %.4f · cylinder %.4f",
				1-b.BeadVolume()/box.Volume(), 1-b.BeadVolume()/b.CylinderVolume()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "<d", "record format: byte order (<, >, =) and d or f")
	cmd.Flags().Float64Var(&scaling, "scaling", 1, "scale coordinates and radii")
	cmd.Flags().BoolVar(&center, "center", false, "move the bed onto the z axis, bottom at z=0")
	return cmd
}
