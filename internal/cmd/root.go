// Package cmd wires the cobra commands for the gateway binary.
package cmd

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// NewRootCmd creates the root cobra command for codeuniverse-gateway.
// When invoked without a subcommand, it delegates to "run".
func NewRootCmd(v string) *cobra.Command {
	version = v

	root := &cobra.Command{
		Use:   "codeuniverse-gateway",
		Short: "CodeUniverse gateway: backend for AI-assisted coding",
		Long:  "The CodeUniverse gateway authenticates clients, proxies chat, code generation and autocomplete requests to the model inference service, and tracks usage profiles.",
		// Bare invocation (no subcommand) behaves as "run".
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringP("config", "c", "", "path to config file")

	return root
}
