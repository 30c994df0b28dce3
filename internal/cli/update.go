package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/netlab-io/fwutil-harness/internal/descriptor"
	"github.com/netlab-io/fwutil-harness/internal/image"
	"github.com/netlab-io/fwutil-harness/internal/loganalyzer"
	"github.com/netlab-io/fwutil-harness/internal/reconcile"
	"github.com/netlab-io/fwutil-harness/internal/workflow"
)

type UpdateOptions struct {
	GlobalOptions

	Image string
}

func DefaultUpdateOptions() *UpdateOptions {
	return &UpdateOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Image:         "current",
	}
}

func NewCmdUpdate() *cobra.Command {
	o := DefaultUpdateOptions()
	cmd := &cobra.Command{
		Use:   "update <component>",
		Short: "Run the descriptor-driven fwutil update workflow for one component.",
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

func (o *UpdateOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVar(&o.Image, "image", o.Image, "Image to update against. One of: (current, next).")
}

func (o *UpdateOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Image != "current" && o.Image != "next" {
		return fmt.Errorf("image must be one of (current, next)")
	}
	return nil
}

func (o *UpdateOptions) Run(ctx context.Context, args []string) error {
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

	workDir, err := os.MkdirTemp("", "fwharness-update-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	if o.Image == "next" {
		images := image.NewManager(s.device, s.log)
		dual := workflow.NewDualImage(s.device, images, orchestrator, s.platform, workDir, s.log)
		if err := dual.Setup(ctx, result, s.cfg.SecondImagePath); err != nil {
			return err
		}
		defer func() {
			if err := dual.Teardown(ctx); err != nil {
				s.log.Errorf("Dual-image teardown failed: %v", err)
			}
		}()
		if err := dual.Run(ctx, result); err != nil {
			return err
		}
	} else {
		backup, err := descriptor.NewBackup(ctx, s.device, s.platform, workDir)
		if err != nil {
			return err
		}
		defer func() {
			if err := backup.Restore(ctx); err != nil {
				s.log.Errorf("Descriptor restore failed: %v", err)
			}
		}()

		content, err := descriptor.Generate(s.platform, []string{result.Component}, map[string]descriptor.Firmware{
			result.Component: {
				Firmware: workflow.StagePath(result),
				Version:  result.VersionToInstall,
			},
		})
		if err != nil {
			return err
		}
		if err := descriptor.Push(ctx, s.device, s.platform, content); err != nil {
			return err
		}
		if err := orchestrator.Run(ctx, result, workflow.ModeUpdateCurrent); err != nil {
			return err
		}
	}

	fmt.Printf("%s updated: %s -> %s\n", result.Component, result.PreviousVersion, result.VersionToInstall)
	return nil
}
