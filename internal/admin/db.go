package admin

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"

	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"github.com/dmitrijs2005/medlogbook/internal/server/services"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *App) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *sql.DB) error {
				if err := a.repomanager.RunMigrations(cmd.Context(), db); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func (a *App) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import actors, batches and faculty assignments from a YAML roster",
		Long: `Upserts every actor, batch and assignment listed in FILE in a single
transaction. Assignments missing from FILE are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := readRoster(args[0])
			if err != nil {
				return err
			}
			return a.withDB(func(db *sql.DB) error {
				svc := services.NewActorService(db, a.repomanager, a.log)
				if err := svc.ImportRoster(cmd.Context(), roster); err != nil {
					return fmt.Errorf("importing roster: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d actors, %d batches\n", len(roster.Actors), len(roster.Batches))
				return nil
			})
		},
	}
}

func readRoster(path string) (*models.Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}

	var r models.Roster
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("parsing roster %s: %w", path, err)
	}
	return &r, nil
}
