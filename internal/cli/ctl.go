package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/specialistvlad/patchbay/internal/app"
	"github.com/specialistvlad/patchbay/internal/remote"
	"github.com/spf13/cobra"
)

// NewCtlCommand sends a single control event to a running server and prints
// the acknowledgement.
func NewCtlCommand(root *RootOptions) *cobra.Command {
	var (
		serverURL string
		namespace string
		insecure  bool
	)

	cmd := &cobra.Command{
		Use:   "ctl <event> [json-payload]",
		Short: "Send a control event to a running server",
		Example: `  patchbay ctl module:add '{"kind":"delay","name":"slap"}'
  patchbay ctl patch:state`,
		Args: usageArgs(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.config(app.Config{})
			if err != nil {
				return err
			}
			a := app.NewApp(cmd.ErrOrStderr(), cfg)
			defer a.Close(context.WithoutCancel(cmd.Context()))

			var payload any = map[string]any{}
			if len(args) == 2 && strings.TrimSpace(args[1]) != "" {
				if err := json.Unmarshal([]byte(args[1]), &payload); err != nil {
					return usageError("invalid JSON payload: %s", err)
				}
			}

			opts := []remote.Option{remote.WithNamespace(namespace)}
			if insecure {
				opts = append(opts, remote.WithInsecureSkipVerify())
			}
			ack, err := remote.New(serverURL, opts...).Send(a.Context(cmd.Context()), args[0], payload)
			if err != nil {
				return runtimeError(err)
			}

			out, err := json.MarshalIndent(ack, "", "  ")
			if err != nil {
				return runtimeError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if !ack.OK {
				return &ExitError{Code: 1, Message: ack.Error}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "url", "http://localhost:7777", "control server URL")
	cmd.Flags().StringVar(&namespace, "namespace", "/", "socket.io namespace")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	return cmd
}
