package cmd

import (
	"github.com/spf13/cobra"

	tuiwizard "github.com/arispretz/codeuniverse-backend/internal/tui/wizard"
	"github.com/arispretz/codeuniverse-backend/internal/wizard"
	"github.com/arispretz/codeuniverse-backend/pkg/cli"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard to generate a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			defaults, _ := cmd.Flags().GetBool("defaults")
			plain, _ := cmd.Flags().GetBool("plain")

			if defaults {
				return wizard.New(cli.DefaultPrompter()).RunDefaults(output)
			}
			return tuiwizard.Run(output, plain)
		},
	}
	cmd.Flags().StringP("output", "o", "", "output config file path (default: ./codeuniverse-gateway.json)")
	cmd.Flags().Bool("defaults", false, "generate config non-interactively using env vars and secure defaults")
	cmd.Flags().Bool("plain", false, "use the plain-text wizard instead of the TUI")
	return cmd
}
