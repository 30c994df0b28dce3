package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netlab-io/fwutil-harness/internal/image"
)

type ImagesOptions struct {
	GlobalOptions
}

func DefaultImagesOptions() *ImagesOptions {
	return &ImagesOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdImages() *cobra.Command {
	o := DefaultImagesOptions()
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Show the DUT's installed boot images.",
		Args:  cobra.NoArgs,
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

func (o *ImagesOptions) Run(ctx context.Context, args []string) error {
	ctx, cancel := o.WithTimeout(ctx)
	defer cancel()

	s, err := o.connect(ctx)
	if err != nil {
		return err
	}

	info, err := image.NewManager(s.device, s.log).List(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Current:   %s\n", info.Current)
	fmt.Printf("Next:      %s\n", info.Next)
	fmt.Printf("Available: %s\n", strings.Join(info.Available, ", "))
	return nil
}
