package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"jobboard/internal/scheduler"
	"jobboard/internal/util"
	"jobboard/pkg/mail"
	"jobboard/pkg/storage"
	"jobboard/pkg/store"
	"jobboard/pkg/token"
	"jobboard/services/api/internal/app"
	"jobboard/services/api/internal/config"
	"jobboard/services/api/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	durations, err := cfg.ParseDurations()
	if err != nil {
		return fmt.Errorf("parse durations: %w", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("init postgres store: %w", err)
	}
	defer db.Close()

	revoker := store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword, durations.RefreshTokenTTL)
	defer revoker.Close()
	views := store.NewRedisViewDeduper(cfg.RedisAddr, cfg.RedisPassword, durations.JobViewTTL)
	defer views.Close()

	tokens, err := token.New(token.Options{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     durations.AccessTokenTTL,
		RefreshTTL:    durations.RefreshTokenTTL,
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
		Leeway:        durations.JWTLeeway,
		Revoker:       revoker,
	})
	if err != nil {
		return fmt.Errorf("init token service: %w", err)
	}

	var mailer mail.Sender
	switch cfg.MailDriver {
	case "smtp":
		sender, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			return fmt.Errorf("init smtp sender: %w", err)
		}
		mailer = sender
	case "amqp":
		sender, err := mail.NewAMQPSender(cfg.AMQPURL, cfg.AMQPMailQueue)
		if err != nil {
			return fmt.Errorf("init amqp sender: %w", err)
		}
		defer sender.Close()
		mailer = sender
	default:
		logger.Warn("mail driver not configured, password reset emails are disabled")
	}

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		initCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		minioStore, err := storage.NewMinioStore(initCtx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
		objects = minioStore
	} else {
		logger.Warn("object storage not configured, resume uploads are disabled")
	}

	appCore, err := app.New(app.Config{
		Store:         db,
		Tokens:        tokens,
		Views:         views,
		Mailer:        mailer,
		Objects:       objects,
		FrontendURL:   cfg.FrontendURL,
		ResetTokenTTL: durations.ResetTokenTTL,
		JobViewTTL:    durations.JobViewTTL,
		ResumeURLTTL:  durations.ResumeURLTTL,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	proxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		CookieSecure:   cfg.CookieSecure,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies: proxies,
	})

	sched := scheduler.New(time.Minute, logger)
	if err := sched.Add("expiry-sweep", cfg.ExpirySweepSchedule, appCore.CloseExpiredJobs); err != nil {
		return fmt.Errorf("schedule expiry sweep: %w", err)
	}
	sched.Start()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("api server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case <-quit:
	case err := <-serveErr:
		runErr = fmt.Errorf("serve: %w", err)
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	return runErr
}
