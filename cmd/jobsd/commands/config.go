package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vrooli/jobs/config"
)

// ConfigCmd groups configuration inspection
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect jobsd configuration",
	Long: `Inspect the effective jobsd configuration.

Files are merged lowest precedence first:
  /etc/jobsd/config.toml
  ~/.jobsd/config.toml
  ./jobsd.toml (searched upward from the working directory)

JOBSD_* environment variables override every file, for example
JOBSD_SCHEDULER_MAX_CONCURRENT_JOBS=5.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}

		if ConfigPath != "" {
			pterm.Info.Printfln("Source: %s", ConfigPath)
		} else {
			for _, src := range config.Sources() {
				pterm.Info.Printfln("Source: %s", src)
			}
		}

		out, err := config.Render(cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
}
