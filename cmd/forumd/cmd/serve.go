package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forum/backend/internal/config"
	authdomain "forum/backend/internal/domain/auth"
	categorydomain "forum/backend/internal/domain/category"
	"forum/backend/internal/httpserver"
	"forum/backend/internal/infrastructure/memory"
	"forum/backend/internal/infrastructure/password"
	"forum/backend/internal/infrastructure/postgres"
	"forum/backend/internal/infrastructure/ratelimit"
	"forum/backend/internal/infrastructure/token"
	authusecase "forum/backend/internal/usecase/auth"
	categoryusecase "forum/backend/internal/usecase/category"
	userusecase "forum/backend/internal/usecase/user"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var adminPassword string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the HTTP server. With storage=postgres pending migrations are
applied first. With redis_url set, failed logins are throttled through Redis.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		accounts, categories, closeStore, err := openStorage(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		limiter, closeLimiter, err := openLimiter(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeLimiter()

		tokens := token.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)
		hasher := password.NewBcryptHasher(cfg.BcryptCost)

		authService := authusecase.NewService(accounts, tokens, hasher, authusecase.Options{
			TokenTTL:      cfg.JWTTTL,
			WarnThreshold: cfg.SessionWarnThreshold,
			EmailDomain:   cfg.RegistrationDomain,
			Limiter:       limiter,
		})
		userService := userusecase.NewService(accounts, hasher, cfg.ProtectedAdminEmail)
		categoryService := categoryusecase.NewService(categories)

		if adminPassword != "" {
			if err := bootstrapAdmin(ctx, userService, cfg.ProtectedAdminEmail, adminPassword, logger); err != nil {
				return err
			}
		}

		server := httpserver.NewServer(cfg, httpserver.Dependencies{
			Auth:       authService,
			Users:      userService,
			Categories: categoryService,
			Tokens:     tokens,
			Logger:     logger,
		})
		logger.Info("http server listening", "addr", server.Addr(), "storage", cfg.Storage)

		errCh := make(chan error, 1)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-sigCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("graceful shutdown completed")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&adminPassword, "bootstrap-admin-password", os.Getenv("FORUM_ADMIN_PASSWORD"),
		"create the protected admin account with this password when it does not exist (env: FORUM_ADMIN_PASSWORD)")
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (authdomain.AccountRepository, categorydomain.Repository, func(), error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		return memory.NewAccountRepository(), memory.NewCategoryRepository(), func() {}, nil
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("connected to database")
	return postgres.NewAccountRepository(db.Pool), postgres.NewCategoryRepository(db.Pool), db.Close, nil
}

func openLimiter(ctx context.Context, cfg config.Config, logger *slog.Logger) (authusecase.LoginLimiter, func(), error) {
	if cfg.RedisURL == "" {
		return nil, func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		// The limiter fails open, so an unreachable Redis only disables throttling.
		logger.Warn("redis unreachable at startup", "error", err)
	}
	limiter := ratelimit.New(client, ratelimit.Config{
		MaxAttempts:      cfg.LoginMaxAttempts,
		Cooldown:         cfg.LoginCooldown,
		EnableIPThrottle: cfg.LoginThrottleIP,
	}, logger)
	return limiter, func() { _ = client.Close() }, nil
}

func bootstrapAdmin(ctx context.Context, users *userusecase.Service, email, secret string, logger *slog.Logger) error {
	account, err := users.Create(ctx, userusecase.CreateInput{
		Email:    email,
		Name:     "Administrator",
		Password: secret,
		Role:     authdomain.RoleAdmin.String(),
	})
	switch {
	case err == nil:
		logger.Info("bootstrap admin created", "account_id", account.ID, "email", account.Email)
		return nil
	case errors.Is(err, authdomain.ErrEmailExists):
		return nil
	default:
		return fmt.Errorf("bootstrap admin: %w", err)
	}
}
