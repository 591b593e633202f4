package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/internal/ai"
	"github.com/diewo77/seo-backoffice/internal/config"
	"github.com/diewo77/seo-backoffice/internal/db"
	"github.com/diewo77/seo-backoffice/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// devSessionSecret signs cookies when DEV=1 and SESSION_SECRET is unset.
const devSessionSecret = "dev-only-session-secret-change-me!!"

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "SEO agency back office",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		var err error
		logger, err = logging.New(cfg.Log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the schema up to date and exit",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create permissions and system profiles and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		if err := db.Seed(conn); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("seeding completed")
		return nil
	},
}

var migrateSQL bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateSQL, "sql", false, "apply the embedded SQL migrations instead of AutoMigrate")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, renderCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func connect(ctx context.Context) (*gorm.DB, error) {
	conn, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return conn, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if migrateSQL {
		if err := db.RunSQLMigrations(cfg.Database.DSN()); err != nil {
			return err
		}
		logger.Info("sql migrations applied")
		return nil
	}
	conn, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	if err := db.Migrate(conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("migrations completed")
	return nil
}

// migrateOnStartup applies cfg.App.Migrations.
func migrateOnStartup(conn *gorm.DB) error {
	switch cfg.App.Migrations {
	case config.MigrateSQL:
		return db.RunSQLMigrations(cfg.Database.DSN())
	case config.MigrateOff:
		return nil
	default:
		return db.Migrate(conn)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.App.SessionSecret == "" {
		logger.Warn("SESSION_SECRET is not set, using the development secret")
		cfg.App.SessionSecret = devSessionSecret
	}

	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	if err := migrateOnStartup(conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("schema ready", zap.String("mode", string(cfg.App.Migrations)))
	if err := db.Seed(conn); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	var gen ai.Generator
	if cfg.AI.Enabled() {
		g, err := ai.NewGenAIGenerator(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout)
		if err != nil {
			return fmt.Errorf("genai client: %w", err)
		}
		gen = g
		logger.Info("report generation enabled", zap.String("model", g.Model()))
	} else {
		logger.Warn("GENAI_API_KEY is not set, report generation is disabled")
	}

	app := NewApp(conn, logger, cfg, ai.NewReportFunction(gen))
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
