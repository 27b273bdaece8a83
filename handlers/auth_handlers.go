package handlers

import (
	"net/http"

	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/auth"
	"github.com/nikhilsahni7/SurveyMap/config"
	"github.com/nikhilsahni7/SurveyMap/httpx"
	"github.com/nikhilsahni7/SurveyMap/log"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registration struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if h.OAuth == nil || h.OAuth.ClientID == "" || h.OAuth.ClientSecret == "" {
		log.Error("Google OAuth ClientID or ClientSecret is empty")
		httpx.WriteError(w, "handlers.login", apperr.Internal("OAuth configuration error", nil))
		return
	}

	state := config.GenerateStateOauthCookie(w)
	http.Redirect(w, r, h.OAuth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *Handler) GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if err := config.VerifyStateOauthCookie(r); err != nil {
		httpx.WriteError(w, "handlers.google_callback", apperr.BadRequest("Invalid OAuth state"))
		return
	}

	token, err := h.OAuth.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		httpx.WriteError(w, "handlers.google_callback.exchange", apperr.Unauthorized("Failed to exchange token"))
		return
	}

	user, err := auth.GetGoogleUserInfo(r.Context(), h.OAuth, token)
	if err != nil {
		httpx.LogInternalError(w, "handlers.google_callback.user_info", err)
		return
	}
	if err := h.Users.CreateOrUpdateUser(r.Context(), user); err != nil {
		httpx.WriteError(w, "handlers.google_callback.user", err)
		return
	}
	if err := h.Sessions.Login(w, r, user.ID); err != nil {
		httpx.LogInternalError(w, "handlers.google_callback.session", err)
		return
	}

	http.Redirect(w, r, h.FrontendURL+"/admin", http.StatusSeeOther)
}

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registration
	if err := h.decode(r, &req); err != nil {
		httpx.WriteError(w, "handlers.register", err)
		return
	}

	user, err := h.Users.CreateUser(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		httpx.WriteError(w, "handlers.register", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) LoginHandlerEmail(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := h.decode(r, &req); err != nil {
		httpx.WriteError(w, "handlers.login_email", err)
		return
	}

	user, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, "handlers.login_email", err)
		return
	}
	if err := h.Sessions.Login(w, r, user.ID); err != nil {
		httpx.LogInternalError(w, "handlers.login_email.session", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(w, r); err != nil {
		httpx.LogInternalError(w, "handlers.logout", err)
		return
	}
	http.Redirect(w, r, h.FrontendURL+"/login", http.StatusSeeOther)
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.WriteError(w, "handlers.current_user", err)
		return
	}
	user, err := h.Users.GetUser(r.Context(), userID)
	if apperr.Is(err, http.StatusNotFound) {
		// The session outlived its account.
		err = apperr.Unauthorized("Unauthorized")
	}
	if err != nil {
		httpx.WriteError(w, "handlers.current_user", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}
