// Package admin implements logbookadm, the operator tool for the logbook
// server. It applies migrations, imports rosters, mints tokens and runs
// remote checks against a running server.
package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"os"

	"github.com/dmitrijs2005/medlogbook/internal/client"
	"github.com/dmitrijs2005/medlogbook/internal/logging"
	"github.com/dmitrijs2005/medlogbook/internal/server/config"
	gs "github.com/dmitrijs2005/medlogbook/internal/server/grpc"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/repomanager"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

// logbookClient is the part of client.GRPCClient the remote commands use.
type logbookClient interface {
	Ping(ctx context.Context) (string, error)
	GetAutoReview(ctx context.Context) (map[string]bool, error)
	SetAutoReview(ctx context.Context, category string, enabled bool) (*gs.Result, error)
	CreateEntry(ctx context.Context, category string, payload json.RawMessage) (*gs.Result, error)
	PresignUpload(ctx context.Context, id, fileName string) (*gs.PresignResponse, error)
	PresignDownload(ctx context.Context, id string) (string, error)
	Close() error
}

type App struct {
	cfg         *config.Config
	out         io.Writer
	log         logging.Logger
	repomanager repomanager.RepositoryManager

	openDB func(driver, dsn string) (*sql.DB, error)
	dial   func(addr, token string) (logbookClient, error)
}

func NewApp(cfg *config.Config, out io.Writer) *App {
	return &App{
		cfg:         cfg,
		out:         out,
		log:         logging.NewJSONLogger(os.Stderr, cfg.LogLevel),
		repomanager: repomanager.NewPostgresRepositoryManager(),
		openDB:      sql.Open,
		dial: func(addr, token string) (logbookClient, error) {
			c, err := client.NewGRPCClient(addr, token)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

// RootCmd builds the command tree. Persistent flags override the loaded
// configuration.
func (a *App) RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "logbookadm",
		Short:         "Operator tool for the residency logbook server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.out)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfg.DatabaseDSN, "dsn", a.cfg.DatabaseDSN, "PostgreSQL DSN")
	pf.StringVar(&a.cfg.SecretKey, "secret", a.cfg.SecretKey, "JWT HMAC secret")
	pf.StringVar(&a.cfg.EndpointAddrGRPC, "addr", a.cfg.EndpointAddrGRPC, "server gRPC address")

	rootCmd.AddCommand(
		a.newMigrateCmd(),
		a.newImportCmd(),
		a.newTokenCmd(),
		a.newPingCmd(),
		a.newAutoReviewCmd(),
		a.newSmokeCmd(),
		a.newAttachCmd(),
		a.newFetchCmd(),
	)

	return rootCmd
}

// Run executes logbookadm with args.
func Run(ctx context.Context, cfg *config.Config, out io.Writer, args []string) error {
	cmd := NewApp(cfg, out).RootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func (a *App) withDB(fn func(db *sql.DB) error) error {
	db, err := a.openDB("pgx", a.cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
