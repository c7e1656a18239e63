package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"marketplace-api/internal/data/repository"
	"marketplace-api/internal/jobs"
	"marketplace-api/internal/usecase"
	"marketplace-api/internal/wire"
	"marketplace-api/pkg/database"
	"marketplace-api/pkg/metrics"
	"marketplace-api/pkg/middleware"
	"marketplace-api/pkg/notify"
	"marketplace-api/pkg/storage"
	"marketplace-api/pkg/utils"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load config
	config, err := utils.LoadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := config.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	// 2. Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("Failed to init file logger, using stdout", zap.Error(err))
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("store", config.App.StoreDriver),
		zap.Bool("debug", config.App.Debug),
	)

	// 3. Record store
	repo, db, err := openStore(ctx, config, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// 4. Optional collaborators
	mailer := notify.NewAsync(newNotifier(config, logger), logger)
	m := metrics.New()
	limiter := middleware.NewIPRateLimiter(config.RateLimit.RPS, config.RateLimit.Burst)

	var images storage.ImageStore
	if config.S3.Enabled() {
		s3Store, err := storage.NewS3ImageStore(ctx, config.S3)
		if err != nil {
			return err
		}
		images = s3Store
		logger.Info("Image uploads enabled", zap.String("bucket", config.S3.Bucket))
	}

	// 5. Wire all dependencies
	deps := wire.Deps{
		Repo:    repo,
		Config:  config,
		Logger:  logger,
		Limiter: limiter,
		Extensions: usecase.Extensions{
			Notifier: mailer,
			Images:   images,
			Metrics:  m,
		},
	}
	if db != nil {
		deps.DB = db
	}
	app := wire.Wiring(deps)

	janitor, err := jobs.NewTokenJanitor(config.Jobs.TokenCleanupSchedule, repo.User, limiter, m, logger)
	if err != nil {
		return err
	}
	janitor.Start()

	// 6. Start server
	return APIServer(ctx, app.Router, config.App.Port, logger, janitor.Stop, mailer.Wait)
}

// APIServer serves until ctx is cancelled, then drains in-flight requests
// and runs each cleanup with the remaining shutdown budget.
func APIServer(ctx context.Context, route http.Handler, port string, logger *zap.Logger, cleanups ...func(context.Context) error) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           route,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := []error{srv.Shutdown(shutdownCtx)}
	for _, cleanup := range cleanups {
		errs = append(errs, cleanup(shutdownCtx))
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}

	logger.Info("Server exiting")
	return nil
}

// openStore picks the record store. The Postgres store applies pending
// migrations before serving.
func openStore(ctx context.Context, config *utils.Config, logger *zap.Logger) (*repository.Repository, database.PgxIface, error) {
	if config.App.StoreDriver == "memory" {
		logger.Warn("Using in-memory store, data is lost on restart")
		return repository.NewMemoryRepository(), nil, nil
	}

	db, err := database.InitDB(ctx, config.Database, logger)
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	logger.Info("Database connected successfully")

	m, err := database.NewMigrator(config.Database.URL())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	defer m.Close()
	if err := m.Up(); err != nil {
		db.Close()
		return nil, nil, err
	}

	return repository.NewRepository(db, logger), db, nil
}

func newNotifier(config *utils.Config, logger *zap.Logger) notify.Notifier {
	if config.Email.Host == "" {
		logger.Warn("SMTP_HOST not set, tokens are written to the log")
		return notify.NewLogNotifier(logger)
	}
	return notify.NewSMTPNotifier(config.Email)
}
