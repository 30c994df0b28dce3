package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/netlab-io/fwutil-harness/internal/dut"
	"github.com/netlab-io/fwutil-harness/internal/inventory"
	"github.com/netlab-io/fwutil-harness/internal/reconcile"
)

type ReconcileOptions struct {
	GlobalOptions
}

func DefaultReconcileOptions() *ReconcileOptions {
	return &ReconcileOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdReconcile() *cobra.Command {
	o := DefaultReconcileOptions()
	cmd := &cobra.Command{
		Use:   "reconcile [component]",
		Short: "Show the install decision for each supported component.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ReconcileOptions) Run(ctx context.Context, args []string) error {
	ctx, cancel := o.WithTimeout(ctx)
	defer cancel()

	s, err := o.connect(ctx)
	if err != nil {
		return err
	}

	components, err := s.selectComponents(args)
	if err != nil {
		return err
	}

	stdout, err := dut.Run(ctx, s.device, "sudo fwutil show status")
	if err != nil {
		return err
	}
	status, err := inventory.Parse(stdout)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "COMPONENT\tINSTALLED\tTARGET\tPAYLOAD")
	for _, comp := range components {
		entry := status[comp.Name()]
		candidates, err := comp.ParseVersions(s.cfg.BinariesDir, entry.Version)
		if err != nil {
			return fmt.Errorf("parsing %s candidates: %w", comp.Name(), err)
		}
		result, err := reconcile.Decide(comp, candidates, entry)
		if errors.Is(err, reconcile.ErrNothingToInstall) {
			fmt.Fprintf(w, "%s\t%s\t-\t(nothing to install)\n", comp.Name(), entry.Version)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", comp.Name(), entry.Version, result.VersionToInstall, result.PathToInstall)
	}
	return w.Flush()
}
