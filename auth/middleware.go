// Package auth keeps admin sessions in Postgres and resolves the signed in user.
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/antonlindstrom/pgstore"
	"github.com/gorilla/sessions"
	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/httpx"
	"github.com/nikhilsahni7/SurveyMap/log"
)

const sessionName = "surveymap-session"

type contextKey int

const userIDKey contextKey = iota

// Sessions stores the signed in user id in a cookie-backed session.
type Sessions struct {
	store sessions.Store
	close func()
}

// NewPGSessions keeps sessions in the http_sessions table of the database at dsn.
func NewPGSessions(dsn string, key []byte) (*Sessions, error) {
	store, err := pgstore.NewPGStore(dsn, key)
	if err != nil {
		return nil, err
	}
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	quit, done := store.Cleanup(time.Hour)
	return &Sessions{
		store: store,
		close: func() {
			store.StopCleanup(quit, done)
			store.Close()
		},
	}, nil
}

// NewSessions wraps any gorilla session store.
func NewSessions(store sessions.Store) *Sessions {
	return &Sessions{store: store, close: func() {}}
}

func (s *Sessions) Close() {
	s.close()
}

func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, userID uint) error {
	session, err := s.store.New(r, sessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values["authenticated"] = true
	session.Values["user_id"] = userID
	return session.Save(r, w)
}

func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, err := s.store.Get(r, sessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// UserID returns the id of the signed in user.
func (s *Sessions) UserID(r *http.Request) (uint, bool) {
	session, err := s.store.Get(r, sessionName)
	if err != nil || session == nil {
		return 0, false
	}
	if auth, ok := session.Values["authenticated"].(bool); !ok || !auth {
		return 0, false
	}
	id, ok := session.Values["user_id"].(uint)
	return id, ok
}

// RequireUser rejects requests without a signed in user and puts the user id
// into the request context.
func (s *Sessions) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.UserID(r)
		if !ok {
			log.Debugf("auth.require_user: no session for %s", r.URL.Path)
			httpx.WriteError(w, "auth.require_user", apperr.Unauthorized("Unauthorized"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

func WithUserID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFrom returns the user id stored by RequireUser.
func UserIDFrom(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDKey).(uint)
	return id, ok
}
