package cli

import (
	"context"

	"github.com/specialistvlad/patchbay/internal/app"
	"github.com/spf13/cobra"
)

// NewModulesCommand lists the registered module kinds.
func NewModulesCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List module kinds and their parameters",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.config(app.Config{})
			if err != nil {
				return err
			}
			a := app.NewApp(cmd.ErrOrStderr(), cfg)
			defer a.Close(context.WithoutCancel(cmd.Context()))

			return runtimeError(a.Modules(cmd.OutOrStdout()))
		},
	}
}
