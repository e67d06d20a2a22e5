package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Subby02/web-project/internal/config"
	"github.com/Subby02/web-project/internal/domain"
	"github.com/Subby02/web-project/internal/httpapi"
	"github.com/Subby02/web-project/internal/notify"
	"github.com/Subby02/web-project/internal/service"
	"github.com/Subby02/web-project/internal/store"
	"github.com/Subby02/web-project/internal/store/memory"
	pgstore "github.com/Subby02/web-project/internal/store/postgres"
)

const minAuthSecretLength = 32

func main() {
	app := &cli.App{
		Name:   "web-project",
		Usage:  "shoe store cart, order and sales backend",
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP API",
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations to DATABASE_URL",
				Action: runMigrate,
			},
			{
				Name:  "create-user",
				Usage: "create a login account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "role", Value: domain.RoleCustomer, Usage: "customer or admin"},
				},
				Action: runCreateUser,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("web-project failed")
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := configureLogging(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func configureLogging(cfg config.Config) error {
	level := cfg.LogLevel
	if level == "" {
		level = "info"
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "invalid LOG_LEVEL")
	}
	log.SetLevel(parsed)

	switch cfg.LogFormat {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}
	return nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < minAuthSecretLength {
		return fmt.Errorf("AUTH_SECRET must be set and at least %d characters", minAuthSecretLength)
	}
	return nil
}

// openRepository picks postgres when DATABASE_URL is set and the seeded
// in-memory store otherwise. A configured but unreachable database is fatal.
func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func() error, error) {
	if cfg.DatabaseURL == "" {
		log.WithField("component", "store").Info("repository: in-memory")
		return memory.NewSeeded(), func() error { return nil }, nil
	}

	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "postgres unavailable and DATABASE_URL is set; refusing in-memory fallback")
	}
	if err := pg.Migrate(); err != nil {
		_ = pg.Close()
		return nil, nil, err
	}
	log.WithField("component", "store").Info("repository: postgres")
	return pg, pg.Close, nil
}

// cartNotifier returns the redis notifier when REDIS_ADDR answers and nil
// otherwise. Badge fan-out is optional, so redis problems only warn.
func cartNotifier(ctx context.Context, cfg config.Config) *notify.RedisCartNotifier {
	logger := log.WithField("component", "notify")
	if cfg.RedisAddr == "" {
		logger.Info("cart events: disabled")
		return nil
	}

	notifier := notify.NewRedisCartNotifier(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CartEventsChannel)
	if err := notifier.Ping(ctx); err != nil {
		logger.WithError(err).Warn("redis unavailable, cart events disabled")
		_ = notifier.Close()
		return nil
	}
	logger.WithField("channel", cfg.CartEventsChannel).Info("cart events: redis")
	return notifier
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := validateSecurityConfig(cfg); err != nil {
		return errors.Wrap(err, "invalid security configuration")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	repo, closeRepo, err := openRepository(startCtx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			log.WithError(err).Warn("close repository")
		}
	}()

	svc := service.New(repo, service.Options{Location: loc, Logger: log.StandardLogger()})
	if notifier := cartNotifier(startCtx, cfg); notifier != nil {
		svc.OnCartChange(notifier)
		defer func() {
			if err := notifier.Close(); err != nil {
				log.WithError(err).Warn("close redis")
			}
		}()
	} else {
		svc.OnCartChange(notify.NoopCartNotifier{})
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.TokenTTL(), repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.WithField("addr", cfg.Address()).Info("web-project listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func runMigrate(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for migrate")
	}

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close()

	return pg.Migrate()
}

func runCreateUser(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL is not set; the account only lives in this process")
	}

	return createUser(ctx, httpapi.NewAuthManager(cfg.AuthSecret, cfg.TokenTTL(), repo),
		c.String("username"), c.String("password"), c.String("role"))
}

func createUser(ctx context.Context, auth *httpapi.AuthManager, username string, password string, role string) error {
	user, err := auth.RegisterUser(ctx, username, password, role)
	if err != nil {
		return errors.Wrap(err, "create user")
	}
	log.WithFields(log.Fields{"id": user.ID, "username": user.Username, "role": user.Role}).Info("user created")
	return nil
}
