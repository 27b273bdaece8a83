package config

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/surveymap")
	t.Setenv("SESSION_KEY", "secret")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example,")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "noreply@example.com")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.SMTP.Enabled())
	assert.Equal(t, "smtp.example.com:2525", cfg.SMTP.Address())
	assert.Equal(t, 2, cfg.SMTP.Connections)
	assert.Equal(t, 1.0, cfg.SubmissionRate)
	assert.Equal(t, 5, cfg.SubmissionBurst)
}

func TestLoadErrors(t *testing.T) {
	t.Run("MissingDatabaseURL", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("SESSION_KEY", "secret")
		_, err := Load()
		assert.EqualError(t, err, "DATABASE_URL environment variable is not set")
	})

	t.Run("InvalidPort", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/surveymap")
		t.Setenv("SESSION_KEY", "secret")
		t.Setenv("SMTP_PORT", "smtp")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestOAuthState(t *testing.T) {
	rec := httptest.NewRecorder()
	state := GenerateStateOauthCookie(rec)
	require.NotEmpty(t, state)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state="+state, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	assert.NoError(t, VerifyStateOauthCookie(req))

	forged := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=forged", nil)
	for _, c := range rec.Result().Cookies() {
		forged.AddCookie(c)
	}
	assert.Error(t, VerifyStateOauthCookie(forged))
}
