package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netlab-io/fwutil-harness/internal/component"
	"github.com/netlab-io/fwutil-harness/internal/dut"
	"github.com/netlab-io/fwutil-harness/internal/inventory"
	"github.com/netlab-io/fwutil-harness/internal/loganalyzer"
	"github.com/netlab-io/fwutil-harness/internal/reconcile"
	"github.com/netlab-io/fwutil-harness/internal/workflow"
)

type InstallOptions struct {
	GlobalOptions
}

func DefaultInstallOptions() *InstallOptions {
	return &InstallOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdInstall() *cobra.Command {
	o := DefaultInstallOptions()
	cmd := &cobra.Command{
		Use:   "install <component>",
		Short: "Run the full firmware install workflow for one component.",
		Args:  cobra.ExactArgs(1),
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

func (o *InstallOptions) Run(ctx context.Context, args []string) error {
	ctx, cancel := o.WithTimeout(ctx)
	defer cancel()

	s, err := o.connect(ctx)
	if err != nil {
		return err
	}
	comp, err := s.component(args[0])
	if err != nil {
		return err
	}

	result, err := decide(ctx, s, comp)
	if errors.Is(err, reconcile.ErrNothingToInstall) {
		fmt.Printf("Nothing to install for %s\n", comp.Name())
		return nil
	}
	if err != nil {
		return err
	}

	powerCtrl, err := s.powerController()
	if err != nil {
		return err
	}
	analyzer := loganalyzer.New(s.device, s.log)
	orchestrator := workflow.New(s.device, analyzer, powerCtrl, comp, s.log)

	if err := orchestrator.Run(ctx, result, workflow.ModeInstall); err != nil {
		return err
	}
	fmt.Printf("%s updated: %s -> %s\n", result.Component, result.PreviousVersion, result.VersionToInstall)
	return nil
}

// decide reads the live inventory and computes the install decision for comp.
func decide(ctx context.Context, s *session, comp component.Component) (reconcile.Result, error) {
	stdout, err := dut.Run(ctx, s.device, "sudo fwutil show status")
	if err != nil {
		return reconcile.Result{}, err
	}
	status, err := inventory.Parse(stdout)
	if err != nil {
		return reconcile.Result{}, err
	}
	entry := status[comp.Name()]
	candidates, err := comp.ParseVersions(s.cfg.BinariesDir, entry.Version)
	if err != nil {
		return reconcile.Result{}, err
	}
	return reconcile.Decide(comp, candidates, entry)
}
