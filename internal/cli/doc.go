// Package cli defines the patchbay command tree. Each subcommand turns its
// flags into an app.Config, runs one App operation and maps failures to an
// ExitError carrying the process exit code: 2 for usage errors, 1 for
// everything else.
package cli
