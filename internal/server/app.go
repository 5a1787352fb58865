// Package server initializes and runs the logbook server. It opens the
// database, applies migrations, builds the workflow services and serves
// them over gRPC until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/medlogbook/internal/logging"
	"github.com/dmitrijs2005/medlogbook/internal/server/config"
	"github.com/dmitrijs2005/medlogbook/internal/server/notify"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/medlogbook/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"

	gs "github.com/dmitrijs2005/medlogbook/internal/server/grpc"
)

// MaxPayloadBytes bounds an entry payload.
const MaxPayloadBytes = 64 << 10

var sqlOpen = sql.Open

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	services gs.Services
}

func NewApp(c *config.Config) (*App, error) {
	return newApp(context.Background(), c, repomanager.NewPostgresRepositoryManager(), os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, rm repomanager.RepositoryManager, logOut io.Writer) (*App, error) {

	logger := logging.NewJSONLogger(logOut, c.LogLevel)

	db, err := sqlOpen("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if c.RunMigrations {
		if err := rm.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrations error: %w", err)
		}
		logger.Info(ctx, "Migrations applied")
	}

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		services: BuildServices(db, rm, c, logger),
	}, nil
}

// BuildServices wires the workflow services over db.
func BuildServices(db *sql.DB, rm repomanager.RepositoryManager, c *config.Config, logger logging.Logger) gs.Services {
	notifier := notify.NewLogNotifier(logger)
	autoReview := services.NewAutoReviewService(db, rm, notifier, logger)
	validator := services.JSONObjectValidator{MaxBytes: MaxPayloadBytes}
	workflow := services.NewWorkflowService(db, rm, autoReview, validator, notifier, logger, c)

	return gs.Services{
		Workflow:    workflow,
		AutoReview:  autoReview,
		Signatures:  services.NewSignatureService(db, rm, workflow),
		Attachments: services.NewAttachmentService(db, rm, workflow, notifier, logger, c),
		Actors:      services.NewActorService(db, rm, logger),
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.services, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
