package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikhilsahni7/SurveyMap/auth"
	"github.com/nikhilsahni7/SurveyMap/config"
	"github.com/nikhilsahni7/SurveyMap/db"
	"github.com/nikhilsahni7/SurveyMap/email"
	"github.com/nikhilsahni7/SurveyMap/handlers"
	"github.com/nikhilsahni7/SurveyMap/log"
	"github.com/rs/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(log.ParseLevel(cfg.LogLevel))

	gormDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal(err)
	}
	defer sqlDB.Close()

	sessions, err := auth.NewPGSessions(cfg.DatabaseURL, []byte(cfg.SessionKey))
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}
	defer sessions.Close()

	var mailer email.Mailer = email.NoopMailer{}
	if cfg.SMTP.Enabled() {
		smtpMailer, err := email.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			log.Fatalf("Failed to set up SMTP pool: %v", err)
		}
		defer smtpMailer.Close()
		mailer = smtpMailer
	} else {
		log.Warn("SMTP_HOST not set, submission reports will not be emailed")
	}

	h := handlers.New(handlers.Deps{
		Surveys:     db.NewStore(gormDB),
		Users:       &auth.Users{DB: gormDB},
		Sessions:    sessions,
		Mailer:      mailer,
		OAuth:       cfg.OAuth(),
		FrontendURL: cfg.FrontendURL,
		Limiter:     handlers.NewRateLimiter(cfg.SubmissionRate, cfg.SubmissionBurst),
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           c.Handler(h.Router()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("shutdown: %s", err)
	}
	h.Wait()
	log.Info("Server stopped")
}
