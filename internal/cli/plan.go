package cli

import (
	"context"
	"time"

	"github.com/specialistvlad/patchbay/internal/app"
	"github.com/spf13/cobra"
)

// NewPlanCommand builds a patch on the recording substrate and prints the
// module tree and the resulting wiring.
func NewPlanCommand(root *RootOptions) *cobra.Command {
	var latency time.Duration

	cmd := &cobra.Command{
		Use:   "plan <patch>",
		Short: "Build a patch and print its wiring",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.config(app.Config{PatchPath: args[0], LoadLatency: latency})
			if err != nil {
				return err
			}

			a := app.NewApp(cmd.ErrOrStderr(), cfg)
			defer a.Close(context.WithoutCancel(cmd.Context()))

			return runtimeError(a.Plan(cmd.Context(), cmd.OutOrStdout()))
		},
	}

	cmd.Flags().DurationVar(&latency, "load-latency", 0, "simulated processor load time")
	return cmd
}
