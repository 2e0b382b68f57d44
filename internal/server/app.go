// Package server assembles and runs the TIL pipeline server: it opens the
// database, runs migrations, selects the generation and hosting providers,
// and wires the quota, generation and publish services together.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tilgarden/tilgarden/internal/cryptox"
	"github.com/tilgarden/tilgarden/internal/genai"
	"github.com/tilgarden/tilgarden/internal/hosting"
	"github.com/tilgarden/tilgarden/internal/logging"
	"github.com/tilgarden/tilgarden/internal/sanitize"
	"github.com/tilgarden/tilgarden/internal/server/config"
	"github.com/tilgarden/tilgarden/internal/server/repositories/repomanager"
	"github.com/tilgarden/tilgarden/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	Quota      *services.QuotaLedger
	Generation *services.GenerationOrchestrator
	Publish    *services.PublishEngine
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	genProvider, err := genai.NewOpenAIProvider(genai.Settings{
		Model:   cfg.GenModel,
		APIKey:  cfg.GenAPIKey,
		BaseURL: cfg.GenBaseURL,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("generation provider init error: %w", err)
	}

	hostProvider, err := newHostingProvider(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("hosting provider init error: %w", err)
	}

	box := cryptox.NewBox(cfg.SecretKey)
	filter := sanitize.New(logger)

	app := &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		Quota:      services.NewQuotaLedger(db, rm, cfg, logger),
		Generation: services.NewGenerationOrchestrator(db, rm, genProvider, filter, cfg, logger),
		Publish:    services.NewPublishEngine(db, rm, hostProvider, box, cfg, logger),
	}
	return app, nil
}

func newHostingProvider(ctx context.Context, cfg *config.Config) (hosting.Provider, error) {
	switch cfg.HostingBackend {
	case "github", "":
		return hosting.NewGitHub(cfg.GitHubAPIBaseURL, nil), nil
	case "s3":
		return hosting.NewS3(ctx, hosting.S3Settings{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Bucket:       cfg.S3Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown hosting backend %q", cfg.HostingBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until the context is cancelled or a termination signal
// arrives, then closes the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	<-ctx.Done()

	app.logger.Info(ctx, "Shutting down...")

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
