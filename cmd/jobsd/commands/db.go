package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vrooli/jobs/db"
	"github.com/vrooli/jobs/logger"
)

// DbCmd groups database maintenance
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the jobsd database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}

		conn, err := db.OpenWithMigrations(cfg.Database.Path, logger.ComponentLogger("db"))
		if err != nil {
			return err
		}
		defer conn.Close()

		versions, err := db.AppliedVersions(conn)
		if err != nil {
			return err
		}

		pterm.Success.Printfln("%s is at schema version %s", cfg.Database.Path, latest(versions))
		for _, v := range versions {
			pterm.Printfln("  %s", v)
		}
		return nil
	},
}

func latest(versions []string) string {
	if len(versions) == 0 {
		return "none"
	}
	return versions[len(versions)-1]
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
}
