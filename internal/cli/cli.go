package cli

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/patchbay/internal/app"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

func runtimeError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: 1, Message: err.Error()}
}

// usageArgs turns cobra's positional argument errors into usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError("%s", err)
		}
		return nil
	}
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel  string
	LogFormat string
}

// config validates the global flags together with command-specific fields.
func (o *RootOptions) config(cfg app.Config) (*app.Config, error) {
	cfg.LogLevel = strings.ToLower(o.LogLevel)
	cfg.LogFormat = strings.ToLower(o.LogFormat)
	c, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError("%s", err)
	}
	return c, nil
}

// NewRootCommand creates the root command for the patchbay CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "patchbay",
		Short:         "patchbay - signal-chain manager for an audio effects playground",
		Long:          "Builds chains of audio effect modules from HCL or YAML patches and serves a live control surface for them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%s", err)
	})

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "logging level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log output format (text|json)")

	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewModulesCommand(opts))
	cmd.AddCommand(NewCtlCommand(opts))

	return cmd
}
