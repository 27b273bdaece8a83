package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nikhilsahni7/SurveyMap/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type Config struct {
	Addr           string
	DatabaseURL    string
	SessionKey     string
	AllowedOrigins []string
	FrontendURL    string
	LogLevel       string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	SMTP SMTPConfig

	SubmissionRate  float64
	SubmissionBurst int
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	Connections int
}

// Enabled reports whether report emails can be sent.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

func (c SMTPConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Load reads the configuration from the environment, after loading .env if present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	cfg := Config{
		Addr:               getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SessionKey:         os.Getenv("SESSION_KEY"),
		AllowedOrigins:     splitList(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),
		FrontendURL:        getenv("FRONTEND_URL", "http://localhost:3000"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getenv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
	}

	var err error
	if cfg.SMTP.Port, err = getint("SMTP_PORT", 587); err != nil {
		return cfg, err
	}
	if cfg.SMTP.Connections, err = getint("SMTP_CONNECTIONS", 2); err != nil {
		return cfg, err
	}
	if cfg.SubmissionBurst, err = getint("SUBMISSION_BURST", 5); err != nil {
		return cfg, err
	}
	rate := getenv("SUBMISSION_RATE", "1")
	if cfg.SubmissionRate, err = strconv.ParseFloat(rate, 64); err != nil {
		return cfg, fmt.Errorf("invalid SUBMISSION_RATE %q: %w", rate, err)
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL environment variable is not set")
	}
	if cfg.SessionKey == "" {
		return cfg, errors.New("SESSION_KEY environment variable is not set")
	}
	return cfg, nil
}

// OAuth returns the Google OAuth configuration used by the login handlers.
func (cfg Config) OAuth() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getint(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func GenerateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	cookie := &http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		Expires:  time.Now().Add(30 * time.Minute),
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
	return state
}

func VerifyStateOauthCookie(r *http.Request) error {
	state := r.FormValue("state")
	cookie, err := r.Cookie("oauthstate")
	if err != nil {
		return err
	}
	if cookie.Value != state {
		return fmt.Errorf("invalid oauth state")
	}
	return nil
}
