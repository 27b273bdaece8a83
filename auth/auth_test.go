package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("battery staple", hash))
}

func TestSessions(t *testing.T) {
	s := NewSessions(sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef")))
	defer s.Close()

	var seen uint
	protected := s.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("Anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surveys", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("SignedIn", func(t *testing.T) {
		login := httptest.NewRecorder()
		require.NoError(t, s.Login(login, httptest.NewRequest(http.MethodPost, "/api/login", nil), 42))

		req := httptest.NewRequest(http.MethodGet, "/api/surveys", nil)
		for _, c := range login.Result().Cookies() {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, uint(42), seen)
	})

	t.Run("TamperedCookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/surveys", nil)
		req.AddCookie(&http.Cookie{Name: sessionName, Value: "forged"})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
