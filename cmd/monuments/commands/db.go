package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/team-monumental/monuments-and-memorials-sub000/db"
	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/logger"
)

// DbCmd manages the catalog database
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the catalog database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE:  runDbMigrate,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List applied and pending migrations",
	RunE:  runDbStatus,
}

var dbPathFlag string

func init() {
	DbCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Database path (default: database.path)")
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatusCmd)
}

// runDbStatus opens the database without migrating it.
func runDbStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := dbPathFlag
	if path == "" {
		path = cfg.GetDatabasePath()
	}
	conn, err := db.Open(path, logger.Logger)
	if err != nil {
		return errors.Wrapf(err, "failed to open database at %s", path)
	}
	defer conn.Close()

	all, err := db.Migrations()
	if err != nil {
		return err
	}
	pending, err := db.Pending(conn)
	if err != nil {
		return err
	}
	waiting := make(map[string]bool, len(pending))
	for _, m := range pending {
		waiting[m.Version] = true
	}

	data := pterm.TableData{{"Version", "Migration", "State"}}
	for _, m := range all {
		state := "applied"
		if waiting[m.Version] {
			state = "pending"
		}
		data = append(data, []string{m.Version, m.Name, state})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	if len(pending) > 0 {
		pterm.Warning.Printfln("%d pending; run 'monuments db migrate'", len(pending))
	}
	return nil
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, err := openDatabase(cfg, dbPathFlag)
	if err != nil {
		return err
	}
	defer conn.Close()

	versions, err := db.AppliedVersions(conn)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Database up to date (%d migrations)", len(versions))
	for _, v := range versions {
		pterm.Println("  " + v)
	}
	return nil
}
