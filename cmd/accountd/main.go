package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/waflow/accountd/internal/config"
	"github.com/waflow/accountd/internal/db"
	"github.com/waflow/accountd/internal/handler"
	"github.com/waflow/accountd/internal/job"
	"github.com/waflow/accountd/internal/middleware"
	"github.com/waflow/accountd/internal/pkg/jwt"
	"github.com/waflow/accountd/internal/repo"
	"github.com/waflow/accountd/internal/schedule"
	"github.com/waflow/accountd/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "accountd",
		Short: "account lifecycle service",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run accountd server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer func() { _ = conn.Close() }()
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.Bool("expose_tokens", cfg.ExposeTokens),
	)

	accountRepo := repo.NewAccountRepo(conn)

	var sender service.EmailSender
	if cfg.Mail.Host != "" {
		sender = service.NewEmailSender(cfg.Mail)
	} else {
		sender = service.NewLogSender()
	}
	signer := jwt.NewSigner([]byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	accountService := service.NewAccountService(accountRepo, signer, sender)

	deps := handler.RouterDeps{
		Auth:            handler.NewAuthHandler(accountService, cfg.ExposeTokens),
		JWTSecret:       []byte(cfg.JWTSecret),
		RateLimitWindow: time.Duration(cfg.RateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.TokenCleanupCron != "" {
		if err := scheduler.AddJob(job.NewTokenCleanupJob(accountRepo), cfg.TokenCleanupCron); err != nil {
			return fmt.Errorf("schedule token cleanup: %w", err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
