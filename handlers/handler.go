// Package handlers exposes the admin and respondent HTTP API.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/auth"
	"github.com/nikhilsahni7/SurveyMap/db"
	"github.com/nikhilsahni7/SurveyMap/email"
	"github.com/nikhilsahni7/SurveyMap/httpx"
	"github.com/nikhilsahni7/SurveyMap/models"
	"github.com/nikhilsahni7/SurveyMap/survey"
	"golang.org/x/oauth2"
)

// SurveyStore is implemented by *db.Store.
type SurveyStore interface {
	CreateSurvey(ctx context.Context, authorID uint, author string) (*survey.Survey, error)
	ListSurveys(ctx context.Context, userID uint) ([]db.SurveySummary, error)
	GetSurvey(ctx context.Context, id int) (*survey.Survey, error)
	GetSurveyByName(ctx context.Context, name string) (*survey.Survey, error)
	UpdateSurvey(ctx context.Context, s survey.Survey) (*survey.Survey, error)
	DeleteSurvey(ctx context.Context, id int) error

	CreatePage(ctx context.Context, surveyID int) (*survey.Page, error)
	PageSurveyID(ctx context.Context, pageID int) (int, error)
	DeletePage(ctx context.Context, pageID int) error

	CreateSubmission(ctx context.Context, surveyID int, lang string, answers []survey.AnswerEntry, token *uuid.UUID) (int, error)
	SaveUnfinishedSubmission(ctx context.Context, surveyID int, lang string, answers []survey.AnswerEntry, token *uuid.UUID) (uuid.UUID, error)
	UnfinishedSubmission(ctx context.Context, surveyID int, token uuid.UUID) (*survey.Submission, error)
	SurveyWithSubmissions(ctx context.Context, surveyID int) (*survey.Survey, []survey.Submission, error)
	SurveyWithSubmission(ctx context.Context, surveyID, submissionID int) (*survey.Survey, *survey.Submission, error)
}

// UserStore is implemented by *auth.Users.
type UserStore interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	CreateUser(ctx context.Context, email, name, password string) (*models.User, error)
	CreateOrUpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

type Deps struct {
	Surveys     SurveyStore
	Users       UserStore
	Sessions    *auth.Sessions
	Mailer      email.Mailer
	OAuth       *oauth2.Config
	FrontendURL string
	Limiter     *RateLimiter
}

type Handler struct {
	Deps
	validate *validator.Validate
	// mail tracks report emails still being sent.
	mail sync.WaitGroup
}

func New(d Deps) *Handler {
	if d.Mailer == nil {
		d.Mailer = email.NoopMailer{}
	}
	if d.Limiter == nil {
		d.Limiter = NewRateLimiter(1, 5)
	}
	return &Handler{
		Deps:     d,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Wait blocks until queued report emails have been handed to the mailer.
func (h *Handler) Wait() {
	h.mail.Wait()
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(httpx.AccessLog)

	admin := func(f http.HandlerFunc) http.Handler { return h.Sessions.RequireUser(f) }
	limited := func(f http.HandlerFunc) http.Handler { return h.Limiter.Middleware(f) }

	// Auth routes
	r.HandleFunc("/login", h.LoginHandler).Methods("GET")
	r.HandleFunc("/auth/google/callback", h.GoogleCallbackHandler).Methods("GET")
	r.HandleFunc("/logout", h.LogoutHandler)
	r.Handle("/api/login", limited(h.LoginHandlerEmail)).Methods("POST")
	r.Handle("/api/register", limited(h.RegisterHandler)).Methods("POST")
	r.Handle("/api/me", admin(h.GetCurrentUser)).Methods("GET")
	r.Handle("/api/users", admin(h.ListUsers)).Methods("GET")

	// Admin routes
	r.Handle("/api/surveys", admin(h.ListSurveys)).Methods("GET")
	r.Handle("/api/surveys", admin(h.CreateSurvey)).Methods("POST")
	r.Handle("/api/surveys/{id:[0-9]+}", admin(h.GetSurvey)).Methods("GET")
	r.Handle("/api/surveys/{id:[0-9]+}", admin(h.UpdateSurvey)).Methods("PUT")
	r.Handle("/api/surveys/{id:[0-9]+}", admin(h.DeleteSurvey)).Methods("DELETE")
	r.Handle("/api/surveys/{id:[0-9]+}/page", admin(h.CreatePage)).Methods("POST")
	r.Handle("/api/page/{id:[0-9]+}", admin(h.DeletePage)).Methods("DELETE")
	r.Handle("/api/surveys/{id:[0-9]+}/submissions.csv", admin(h.ExportSubmissionsCSV)).Methods("GET")
	r.Handle("/api/surveys/{id:[0-9]+}/submissions.geojson", admin(h.ExportSubmissionsGeoJSON)).Methods("GET")
	r.Handle("/api/surveys/{id:[0-9]+}/submissions/{submissionId:[0-9]+}/report.pdf", admin(h.SubmissionReport)).Methods("GET")

	// Respondent routes
	r.HandleFunc("/api/published-surveys/{name}", h.GetPublishedSurvey).Methods("GET")
	r.Handle("/api/published-surveys/{name}/submission", limited(h.Submit)).Methods("POST")
	r.Handle("/api/published-surveys/{name}/unfinished-submission", limited(h.SaveUnfinished)).Methods("POST")
	r.HandleFunc("/api/published-surveys/{name}/unfinished-submission", h.GetUnfinished).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, "handlers.not_found", apperr.NotFound("Not found"))
	})
	return r
}

func pathInt(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("Invalid " + name)
	}
	return id, nil
}

func currentUser(r *http.Request) (uint, error) {
	id, ok := auth.UserIDFrom(r.Context())
	if !ok {
		return 0, apperr.Unauthorized("Unauthorized")
	}
	return id, nil
}

// editableSurvey loads the survey named by the id path variable and checks
// that the signed in user may edit it.
func (h *Handler) editableSurvey(r *http.Request) (*survey.Survey, uint, error) {
	userID, err := currentUser(r)
	if err != nil {
		return nil, 0, err
	}
	id, err := pathInt(r, "id")
	if err != nil {
		return nil, 0, err
	}
	s, err := h.Surveys.GetSurvey(r.Context(), id)
	if err != nil {
		return nil, 0, err
	}
	if !s.CanEdit(userID) {
		return nil, 0, apperr.Forbidden("Forbidden")
	}
	return s, userID, nil
}

func (h *Handler) decode(r *http.Request, v any) error {
	if err := httpx.DecodeJSON(r, v); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	if err := h.validate.Struct(v); err != nil {
		return apperr.BadRequest(err.Error())
	}
	return nil
}

func language(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return survey.DefaultLanguage
}
