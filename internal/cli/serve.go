package cli

import (
	"context"
	"time"

	"github.com/specialistvlad/patchbay/internal/app"
	"github.com/spf13/cobra"
)

// NewServeCommand builds an optional patch and serves the control surface
// until the command's context is cancelled.
func NewServeCommand(root *RootOptions) *cobra.Command {
	var (
		listen      string
		healthPort  int
		loadLatency time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve [patch]",
		Short: "Serve the socket.io control surface",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config{
				ListenAddr:      listen,
				HealthcheckPort: healthPort,
				LoadLatency:     loadLatency,
			}
			if len(args) == 1 {
				cfg.PatchPath = args[0]
			}
			c, err := root.config(cfg)
			if err != nil {
				return err
			}

			a := app.NewApp(cmd.ErrOrStderr(), c)
			defer a.Close(context.WithoutCancel(cmd.Context()))

			return runtimeError(a.Serve(cmd.Context()))
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":7777", "address of the control server")
	cmd.Flags().IntVar(&healthPort, "healthcheck-port", 0, "port for a standalone HTTP health check server, 0 is disabled")
	cmd.Flags().DurationVar(&loadLatency, "load-latency", 0, "simulated processor load time")
	return cmd
}
