package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/netlab-io/fwutil-harness/internal/dut"
	"github.com/netlab-io/fwutil-harness/internal/inventory"
)

type StatusOptions struct {
	GlobalOptions
}

func DefaultStatusOptions() *StatusOptions {
	return &StatusOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdStatus() *cobra.Command {
	o := DefaultStatusOptions()
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the DUT's firmware inventory as parsed from fwutil.",
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

func (o *StatusOptions) Run(ctx context.Context, args []string) error {
	ctx, cancel := o.WithTimeout(ctx)
	defer cancel()

	s, err := o.connect(ctx)
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

	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "COMPONENT\tVERSION\tDESCRIPTION")
	for _, name := range names {
		entry := status[name]
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, entry.Version, entry.Description)
	}
	return w.Flush()
}
