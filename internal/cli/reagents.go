package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jarlab/jarlab/internal/reagent"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newReagentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reagents",
		Short: "Manage the coagulant and flocculant lists",
		Long: `Manage the reagent lists stored as coagulants.json and flocculants.json
in the config directory. The "None" entry is built in and cannot be changed.

Examples:
  jarlab reagents list
  jarlab reagents add coagulant --name "PAC 18" --density 1.37 --active 18 --price 0.9
  jarlab reagents update flocculant PolyDADMAC --price 3.5
  jarlab reagents delete coagulant`,
	}

	cmd.AddCommand(newReagentsListCmd(), newReagentsAddCmd(), newReagentsUpdateCmd(), newReagentsDeleteCmd())
	return cmd
}

func newReagentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [kind]",
		Short: "Show the reagent lists",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := []reagent.Kind{reagent.KindCoagulant, reagent.KindFlocculant}
			if len(args) == 1 {
				kind, err := reagent.ParseKind(args[0])
				if err != nil {
					return err
				}
				kinds = []reagent.Kind{kind}
			}

			c := catalog()
			for i, kind := range kinds {
				list, err := c.Store(kind).Load()
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v (showing built-in defaults)\n", err)
				}
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				printReagents(cmd.OutOrStdout(), kind, list)
			}
			return nil
		},
	}
}

func printReagents(out io.Writer, kind reagent.Kind, list []reagent.Reagent) {
	fmt.Fprintf(out, "%ss:\n", strings.ToUpper(string(kind[:1]))+string(kind[1:]))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATE\tDILUTION\tDENSITY\tACTIVE %\tPRICE/kg\tDOSE PER ppm")
	for _, r := range list {
		state := string(r.State)
		if state == "" {
			state = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\t%.2f\t%.4f %s\n",
			r.Name, state, r.Dilution, r.Density, r.ActivePct, r.PricePerKg, r.VolumePerPPM(), r.DoseUnit())
	}
	w.Flush()
}

// reagentFlags binds the definition fields. Only flags the user sets are
// applied by apply.
type reagentFlags struct {
	name      string
	state     string
	dilution  float64
	density   float64
	activePct float64
	price     float64
}

func (f *reagentFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "reagent name")
	cmd.Flags().StringVar(&f.state, "state", "", "flocculant state (liquid or solid)")
	cmd.Flags().Float64Var(&f.dilution, "dilution", 1, "dilution factor (> 0)")
	cmd.Flags().Float64Var(&f.density, "density", 1, "density (kg/L)")
	cmd.Flags().Float64Var(&f.activePct, "active", 100, "active fraction (%)")
	cmd.Flags().Float64Var(&f.price, "price", 0, "price per kg")
}

func (f *reagentFlags) apply(cmd *cobra.Command, r *reagent.Reagent) {
	changed := cmd.Flags().Changed
	if changed("name") {
		r.Name = f.name
	}
	if changed("state") {
		r.State = reagent.State(strings.ToLower(f.state))
	}
	if changed("dilution") {
		r.Dilution = f.dilution
	}
	if changed("density") {
		r.Density = f.density
	}
	if changed("active") {
		r.ActivePct = f.activePct
	}
	if changed("price") {
		r.PricePerKg = f.price
	}
}

func newReagentsAddCmd() *cobra.Command {
	var flags reagentFlags

	cmd := &cobra.Command{
		Use:   "add <kind>",
		Short: "Add a reagent definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := reagent.ParseKind(args[0])
			if err != nil {
				return err
			}
			if flags.name == "" {
				return fmt.Errorf("--name is required")
			}

			r := reagent.Reagent{Dilution: 1, Density: 1, ActivePct: 100}
			flags.apply(cmd, &r)

			fs := catalog().Store(kind)
			if _, err := fs.Add(r); err != nil {
				return fmt.Errorf("failed to add %s: %w", kind, err)
			}
			logger.Info("reagent added", zap.String("kind", string(kind)), zap.String("name", r.Name))
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s '%s' to %s\n", kind, strings.TrimSpace(r.Name), fs.Path)
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

func newReagentsUpdateCmd() *cobra.Command {
	var flags reagentFlags

	cmd := &cobra.Command{
		Use:   "update <kind> [name]",
		Short: "Change a reagent definition",
		Long: `Change the fields given as flags and keep the others. Without a name the
reagent is picked from a list.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := reagent.ParseKind(args[0])
			if err != nil {
				return err
			}

			fs := catalog().Store(kind)
			list, _ := fs.Load()

			name, err := reagentArg(args, kind, list)
			if err != nil {
				return err
			}
			r, ok := reagent.Find(list, name)
			if !ok {
				return fmt.Errorf("%w: %s", reagent.ErrNotFound, name)
			}
			flags.apply(cmd, &r)

			if _, err := fs.Update(name, r); err != nil {
				return fmt.Errorf("failed to update %s: %w", kind, err)
			}
			logger.Info("reagent updated", zap.String("kind", string(kind)), zap.String("name", name))
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s '%s'\n", kind, r.Name)
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

func newReagentsDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <kind> [name]",
		Short: "Remove a reagent definition",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := reagent.ParseKind(args[0])
			if err != nil {
				return err
			}

			fs := catalog().Store(kind)
			list, _ := fs.Load()

			name, err := reagentArg(args, kind, list)
			if err != nil {
				return err
			}

			if !yes {
				ok, err := confirm(fmt.Sprintf("Delete %s '%s'", kind, name))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			if _, err := fs.Delete(name); err != nil {
				return fmt.Errorf("failed to delete %s: %w", kind, err)
			}
			logger.Info("reagent deleted", zap.String("kind", string(kind)), zap.String("name", name))
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s '%s'\n", kind, name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// reagentArg returns the name argument, or asks for one.
func reagentArg(args []string, kind reagent.Kind, list []reagent.Reagent) (string, error) {
	if len(args) == 2 {
		return args[1], nil
	}

	var names []string
	for _, r := range list {
		if !r.IsNone() {
			names = append(names, r.Name)
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no %s defined", kind)
	}

	prompt := promptui.Select{
		Label: "Select " + string(kind),
		Items: names,
		Size:  10,
	}

	_, name, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			os.Exit(0)
		}
		return "", err
	}
	return name, nil
}

func confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	case errors.Is(err, promptui.ErrInterrupt):
		os.Exit(0)
	}
	return false, err
}
