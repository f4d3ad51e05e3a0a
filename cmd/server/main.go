// Command server runs the Wav Social Scan API.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wavsocial/wavscan/migrations"
	"github.com/wavsocial/wavscan/modules/account"
	modbilling "github.com/wavsocial/wavscan/modules/billing"
	"github.com/wavsocial/wavscan/modules/feedback"
	"github.com/wavsocial/wavscan/modules/history"
	"github.com/wavsocial/wavscan/pkg/clientip"
	"github.com/wavsocial/wavscan/pkg/config"
	"github.com/wavsocial/wavscan/pkg/email"
	"github.com/wavsocial/wavscan/pkg/httpserver"
	"github.com/wavsocial/wavscan/pkg/logger"
	"github.com/wavsocial/wavscan/pkg/pg"
	"github.com/wavsocial/wavscan/pkg/ratelimiter"
	"github.com/wavsocial/wavscan/pkg/redis"
	"github.com/wavsocial/wavscan/pkg/session"
	"github.com/wavsocial/wavscan/pkg/token"
	"github.com/wavsocial/wavscan/svc/auth"
	"github.com/wavsocial/wavscan/svc/billing"
	"github.com/wavsocial/wavscan/svc/user"
)

type appConfig struct {
	BaseURL     string `env:"BASE_URL,required"`
	TokenSecret string `env:"TOKEN_SECRET,required"`

	RateLimitAttempts int64         `env:"RATE_LIMIT_ATTEMPTS" envDefault:"10"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

func main() {
	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.New(logCfg, logger.WithAttr(slog.String("app", "wavscan")))

	if err := run(log); err != nil {
		log.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx := context.Background()

	var (
		appCfg     appConfig
		pgCfg      pg.Config
		redisCfg   redis.Config
		emailCfg   email.Config
		sessionCfg session.Config
		stripeCfg  billing.StripeConfig
		httpCfg    httpserver.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&emailCfg)
	config.MustLoad(&sessionCfg)
	config.MustLoad(&stripeCfg)
	config.MustLoad(&httpCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var mailer email.Sender
	if emailCfg.PostmarkServerToken != "" {
		mailer, err = email.NewPostmarkSender(emailCfg)
		if err != nil {
			return err
		}
	} else {
		log.Warn("no postmark token configured, emails go to the log")
		mailer = email.NewDevSender(log)
	}

	codec, err := token.NewFromString(appCfg.TokenSecret)
	if err != nil {
		return err
	}

	users := user.NewPgStorage(pool)
	sessions := session.New(codec, users, sessionCfg)

	authSvc := auth.New(users, mailer, appCfg.BaseURL, auth.WithLogger(log))

	provider, err := billing.NewStripeProvider(stripeCfg)
	if err != nil {
		return err
	}
	catalog, err := billing.DefaultCatalog()
	if err != nil {
		return err
	}
	reconciler := billing.NewReconciler(provider, users, catalog, log)

	limiter, err := ratelimiter.New(
		ratelimiter.NewRedisStore(redisClient, "wavscan"),
		appCfg.RateLimitAttempts,
		appCfg.RateLimitWindow,
	)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(clientip.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(log))
	r.Get("/readyz", httpserver.HealthCheckHandler(log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))

	r.Mount("/account", account.New(authSvc, sessions, limiter, log).Handle())
	r.Mount("/billing", modbilling.New(provider, reconciler, catalog, sessions, log).Handle())
	r.Mount("/history", history.New(history.NewPgStorage(pool), catalog, sessions, log).Handle())
	r.Mount("/feedback", feedback.New(feedback.NewPgStorage(pool), sessions, log).Handle())

	return httpserver.New(httpCfg, log).Run(ctx, r)
}
