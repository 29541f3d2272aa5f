package cli

import (
	"fmt"

	"github.com/jarlab/jarlab/internal/dosing"
	"github.com/jarlab/jarlab/internal/reagent"
	"github.com/spf13/cobra"
)

func newCalcCmd() *cobra.Command {
	var (
		ppm     float64
		volumeL float64
	)

	cmd := &cobra.Command{
		Use:   "calc <kind> <name>",
		Short: "Dose calculator for one reagent",
		Long: `Show the volume of prepared solution per ppm of a reagent and, with --ppm,
the volume to add to a sample of --volume litres.

Example:
  jarlab calc coagulant "Ferric chloride (FeCl3)" --ppm 50 --volume 1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := reagent.ParseKind(args[0])
			if err != nil {
				return err
			}
			if volumeL <= 0 {
				return fmt.Errorf("--volume must be positive")
			}

			list, _ := catalog().Store(kind).Load()
			r, ok := reagent.Find(list, args[1])
			if !ok {
				return fmt.Errorf("%w: %s", reagent.ErrNotFound, args[1])
			}

			out := cmd.OutOrStdout()
			perPPM := r.VolumePerPPM()
			fmt.Fprintf(out, "%s (%s)\n", r.Name, kind)
			fmt.Fprintf(out, "  Dose per ppm:  %.4f %s\n", perPPM, r.DoseUnit())
			if cmd.Flags().Changed("ppm") {
				fmt.Fprintf(out, "  Dose for %g ppm in %g L: %.4f\n", ppm, volumeL, dosing.CommercialVolume(ppm, perPPM, volumeL))
				fmt.Fprintf(out, "  Active material: %.2f ppm\n", r.ActivePPM(ppm))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&ppm, "ppm", 0, "commercial dose (ppm)")
	cmd.Flags().Float64Var(&volumeL, "volume", dosing.DefaultWaterVolume, "sample volume (L)")
	return cmd
}
