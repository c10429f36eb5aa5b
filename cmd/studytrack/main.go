// studytrack es el servicio de cuentas y sesiones de StudyTrack.
//
//	studytrack serve   - levanta el servidor HTTP
//	studytrack migrate - aplica las migraciones de Postgres
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/studytrack/internal/config"
	"github.com/dropDatabas3/studytrack/internal/domain"
	"github.com/dropDatabas3/studytrack/internal/email"
	ctrl "github.com/dropDatabas3/studytrack/internal/http/controllers/auth"
	"github.com/dropDatabas3/studytrack/internal/http/router"
	authsvc "github.com/dropDatabas3/studytrack/internal/http/services/auth"
	jwtx "github.com/dropDatabas3/studytrack/internal/jwt"
	"github.com/dropDatabas3/studytrack/internal/metrics"
	"github.com/dropDatabas3/studytrack/internal/observability/logger"
	"github.com/dropDatabas3/studytrack/internal/rate"
	"github.com/dropDatabas3/studytrack/internal/security/password"
	"github.com/dropDatabas3/studytrack/internal/store/memory"
	"github.com/dropDatabas3/studytrack/internal/store/pg"
)

func main() {
	// .env es opcional; en producción todo viene del entorno real.
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:           "studytrack",
		Short:         "Servicio de cuentas y sesiones de StudyTrack",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", envOr("STUDYTRACK_CONFIG", ""), "ruta al config.yaml (opcional)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones de Postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Storage.Driver != "postgres" {
				return errors.New("migrate requiere storage.driver=postgres")
			}
			return pg.Migrate(cmd.Context(), cfg.Storage.DSN)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "studytrack",
	})
	defer logger.Sync()

	log := logger.Named("main")

	// ── Métricas ──
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	// ── Storage ──
	var (
		accounts domain.AccountRepository
		pinger   router.Pinger
	)
	switch cfg.Storage.Driver {
	case "postgres":
		store, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			ConnMaxLifetime: config.Duration(cfg.Storage.Postgres.ConnMaxLifetime),
		})
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer store.Close()
		accounts = store
		pinger = store
	default:
		log.Warn("using in-memory store; data is lost on restart")
		mem := memory.New()
		accounts = mem
		pinger = mem
	}

	// ── Tokens ──
	issuer := jwtx.NewIssuer(cfg.JWT.Issuer, []byte(cfg.JWT.AccessSecret), []byte(cfg.JWT.RefreshSecret))
	issuer.AccessTTL = config.Duration(cfg.JWT.AccessTTL)
	issuer.RefreshTTL = config.Duration(cfg.JWT.RefreshTTL)

	// ── Email ──
	var sender email.Sender
	if cfg.SMTP.Host != "" && !cfg.Email.LogOnly {
		smtp := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
		smtp.TLSMode = cfg.SMTP.TLS
		sender = smtp
	} else {
		log.Warn("smtp not configured; emails are logged, not sent")
		sender = email.LogSender{}
	}
	tmpl, err := email.LoadTemplates()
	if err != nil {
		return fmt.Errorf("load email templates: %w", err)
	}
	mailer := &email.Mailer{
		Sender:        sender,
		Tmpl:          tmpl,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		VerifyTTL:     cfg.Auth.Verify.TTL,
		ResetTTL:      cfg.Auth.Reset.TTL,
	}

	// ── Rate limiting ──
	var loginLimiter, forgotLimiter rate.Limiter
	if cfg.Rate.Enabled {
		switch cfg.Rate.Backend {
		case "redis":
			client := rdb.NewClient(&rdb.Options{Addr: cfg.Rate.Redis.Addr, DB: cfg.Rate.Redis.DB})
			defer client.Close()
			loginLimiter = rate.NewRedisLimiter(client, cfg.Rate.Redis.Prefix, cfg.Rate.Login.Limit, config.Duration(cfg.Rate.Login.Window))
			forgotLimiter = rate.NewRedisLimiter(client, cfg.Rate.Redis.Prefix, cfg.Rate.Forgot.Limit, config.Duration(cfg.Rate.Forgot.Window))
		default:
			loginLimiter = rate.NewMemoryLimiter(cfg.Rate.Login.Limit, config.Duration(cfg.Rate.Login.Window))
			forgotLimiter = rate.NewMemoryLimiter(cfg.Rate.Forgot.Limit, config.Duration(cfg.Rate.Forgot.Window))
		}
	}

	// ── Service + HTTP ──
	service := authsvc.NewService(authsvc.Deps{
		Accounts:             accounts,
		Issuer:               issuer,
		Hasher:               password.Params{Cost: cfg.Auth.BcryptCost},
		Notifier:             mailer,
		VerifyTTL:            cfg.Auth.Verify.TTL,
		ResetTTL:             cfg.Auth.Reset.TTL,
		AllowUnverifiedLogin: cfg.Auth.AllowUnverifiedLogin,
	})

	handler := router.New(router.Deps{
		Auth:          ctrl.NewController(service),
		Issuer:        issuer,
		Store:         pinger,
		LoginLimiter:  loginLimiter,
		ForgotLimiter: forgotLimiter,
		Registry:      reg,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	log.Info("bye")
	return nil
}
