// Command gm-server starts the grader marketplace HTTP API, SPA host and gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/grader-market/internal/chat"
	"github.com/and161185/grader-market/internal/config"
	"github.com/and161185/grader-market/internal/events"
	"github.com/and161185/grader-market/internal/limiter"
	"github.com/and161185/grader-market/internal/mailer"
	"github.com/and161185/grader-market/internal/metrics"
	"github.com/and161185/grader-market/internal/migrate"
	"github.com/and161185/grader-market/internal/repository"
	"github.com/and161185/grader-market/internal/repository/memory"
	"github.com/and161185/grader-market/internal/repository/postgres"
	grpcserver "github.com/and161185/grader-market/internal/server/grpc"
	httpserver "github.com/and161185/grader-market/internal/server/http"
	"github.com/and161185/grader-market/internal/service"
	"github.com/and161185/grader-market/internal/storage/s3"
	"github.com/and161185/grader-market/internal/store"
	"github.com/and161185/grader-market/internal/verify"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfgPath := flag.String("config", "", "config file or directory with config.yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		// logger is not configured yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	logger := newLogger(cfg.Log.Dev)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("http", cfg.HTTP.Addr),
		zap.String("grpc", cfg.GRPC.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func newLogger(dev bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

type repos struct {
	listings  repository.ListingRepository
	favorites repository.FavoriteRepository
	admins    repository.AdminRepository
	limiter   limiter.Limiter
	close     func()
}

// openRepos uses PostgreSQL when a DSN is set and process memory otherwise.
func openRepos(ctx context.Context, cfg *config.Config, log *zap.Logger) (repos, error) {
	if cfg.Postgres.DSN == "" {
		log.Warn("postgres.dsn is empty: using in-memory repositories, data is lost on restart")
		return repos{
			listings:  memory.NewListings(),
			favorites: memory.NewFavorites(),
			admins:    memory.NewAdmins(),
			limiter:   limiter.Nop{},
			close:     func() {},
		}, nil
	}
	if err := migrate.Up(ctx, cfg.Postgres.DSN, log); err != nil {
		return repos{}, err
	}
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return repos{}, err
	}
	if err = db.Ping(ctx); err != nil {
		db.Close()
		return repos{}, err
	}
	return repos{
		listings:  postgres.NewListingRepo(db),
		favorites: postgres.NewFavoriteRepo(db),
		admins:    postgres.NewAdminRepo(db),
		limiter: limiter.NewPG(db.Pool, limiter.Config{
			Window:   cfg.Limiter.Window,
			MaxFails: cfg.Limiter.MaxFails,
			BlockFor: cfg.Limiter.BlockFor,
		}),
		close: db.Close,
	}, nil
}

func newSender(cfg *config.Config, log *zap.Logger) (mailer.Sender, error) {
	switch cfg.Mailer.Provider {
	case "emailjs":
		return mailer.NewEmailJS(mailer.EmailJSConfig{
			URL:        cfg.EmailJS.URL,
			ServiceID:  cfg.EmailJS.ServiceID,
			TemplateID: cfg.EmailJS.TemplateID,
			PublicKey:  cfg.EmailJS.PublicKey,
			PrivateKey: cfg.EmailJS.PrivateKey,
		}, log), nil
	case "smtp":
		return mailer.NewSMTP(mailer.SMTPConfig{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			Encryption: cfg.SMTP.Encryption,
		}, log)
	}
	log.Warn("mailer.provider is log: verification codes are written to the log")
	return mailer.NewLog(log), nil
}

func newSessions(ctx context.Context, cfg *config.Config, log *zap.Logger) (verify.SessionStore, func(), error) {
	if cfg.Redis.Address == "" {
		return verify.NewMemoryStore(), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	log.Info("verification sessions in redis", zap.String("addr", cfg.Redis.Address))
	return verify.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
}

func newPublisher(cfg *config.Config, log *zap.Logger) (events.Publisher, func(), error) {
	if cfg.NATS.URL == "" {
		return events.Nop{}, func() {}, nil
	}
	nc, err := events.Connect(cfg.NATS.URL, cfg.NATS.ConnectTimeout, log)
	if err != nil {
		return nil, nil, err
	}
	return nc, nc.Close, nil
}

func newImages(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.ImageUploader, error) {
	if cfg.S3.Endpoint == "" {
		log.Warn("s3.endpoint is empty: image uploads are disabled")
		return nil, nil
	}
	st, err := s3.New(ctx, s3.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Bucket:    cfg.S3.Bucket,
		UseSSL:    cfg.S3.UseSSL,
		PublicURL: cfg.S3.PublicURL,
	}, log)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	rp, err := openRepos(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rp.close()

	sender, err := newSender(cfg, logger)
	if err != nil {
		return err
	}
	sessions, closeSessions, err := newSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()
	pub, closePub, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePub()
	images, err := newImages(ctx, cfg, logger)
	if err != nil {
		return err
	}

	m := metrics.New()

	st := store.New(rp.listings, rp.favorites,
		store.WithLatency(cfg.Store.SimulatedLatency),
		store.WithLogger(logger.Named("store")))
	if err = st.Load(ctx); err != nil {
		return err
	}

	listingSvc := service.NewListingService(st, pub, images, m, logger)
	codes := verify.New(sessions, sender, logger)
	authSvc := service.NewAuthService(rp.admins, codes, rp.limiter, []byte(cfg.JWT.Key), cfg.JWT.TTL, m, logger)
	if cfg.Admin.BootstrapEmail != "" {
		if err = authSvc.EnsureAdmin(ctx, cfg.Admin.BootstrapEmail, cfg.Admin.BootstrapName, cfg.Admin.BootstrapPassword); err != nil {
			return err
		}
	}
	responder := chat.NewResponder(chat.DefaultRules, listingSvc.All, pub, logger)

	api := httpserver.New(httpserver.Deps{
		Auth:           authSvc,
		Listings:       listingSvc,
		Chat:           responder,
		Metrics:        m,
		Log:            logger,
		StaticDir:      cfg.Static.Dir,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var health *grpcserver.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return err
		}
		health = grpcserver.New(logger)
		health.SetServing(true)
		go func() {
			if err := health.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if health != nil {
		health.Shutdown(shutdownCtx)
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return runErr
}
