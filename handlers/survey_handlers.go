package handlers

import (
	"net/http"

	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/httpx"
	"github.com/nikhilsahni7/SurveyMap/log"
	"github.com/nikhilsahni7/SurveyMap/survey"
)

func (h *Handler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.WriteError(w, "handlers.list_surveys", err)
		return
	}
	surveys, err := h.Surveys.ListSurveys(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, "handlers.list_surveys", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, surveys)
}

func (h *Handler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.WriteError(w, "handlers.create_survey", err)
		return
	}
	user, err := h.Users.GetUser(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, "handlers.create_survey", err)
		return
	}
	s, err := h.Surveys.CreateSurvey(r.Context(), userID, user.Name)
	if err != nil {
		httpx.WriteError(w, "handlers.create_survey", err)
		return
	}
	log.Infof("survey %d created by user %d", s.ID, userID)
	httpx.WriteJSON(w, http.StatusCreated, s)
}

func (h *Handler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	s, _, err := h.editableSurvey(r)
	if err != nil {
		httpx.WriteError(w, "handlers.get_survey", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

// UpdateSurvey saves the full survey document. Only the author and admins
// may change who has access; for editors those fields keep their stored
// values.
func (h *Handler) UpdateSurvey(w http.ResponseWriter, r *http.Request) {
	existing, userID, err := h.editableSurvey(r)
	if err != nil {
		httpx.WriteError(w, "handlers.update_survey", err)
		return
	}

	var in survey.Survey
	if err := h.decode(r, &in); err != nil {
		httpx.WriteError(w, "handlers.update_survey", err)
		return
	}
	if in.ID != existing.ID {
		httpx.WriteError(w, "handlers.update_survey", apperr.BadRequest("Survey id does not match the URL"))
		return
	}
	in.AuthorID = existing.AuthorID
	if !existing.CanManage(userID) {
		in.Admins = existing.Admins
		in.Editors = existing.Editors
	}
	if err := in.Validate(); err != nil {
		httpx.WriteError(w, "handlers.update_survey", err)
		return
	}

	saved, err := h.Surveys.UpdateSurvey(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, "handlers.update_survey", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) DeleteSurvey(w http.ResponseWriter, r *http.Request) {
	s, userID, err := h.editableSurvey(r)
	if err != nil {
		httpx.WriteError(w, "handlers.delete_survey", err)
		return
	}
	if !s.CanManage(userID) {
		httpx.WriteError(w, "handlers.delete_survey", apperr.Forbidden("Forbidden"))
		return
	}
	if err := h.Surveys.DeleteSurvey(r.Context(), s.ID); err != nil {
		httpx.WriteError(w, "handlers.delete_survey", err)
		return
	}
	log.Infof("survey %d deleted by user %d", s.ID, userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	s, _, err := h.editableSurvey(r)
	if err != nil {
		httpx.WriteError(w, "handlers.create_page", err)
		return
	}
	page, err := h.Surveys.CreatePage(r.Context(), s.ID)
	if err != nil {
		httpx.WriteError(w, "handlers.create_page", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, page)
}

func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.WriteError(w, "handlers.delete_page", err)
		return
	}
	pageID, err := pathInt(r, "id")
	if err != nil {
		httpx.WriteError(w, "handlers.delete_page", err)
		return
	}
	surveyID, err := h.Surveys.PageSurveyID(r.Context(), pageID)
	if err != nil {
		httpx.WriteError(w, "handlers.delete_page", err)
		return
	}
	s, err := h.Surveys.GetSurvey(r.Context(), surveyID)
	if err != nil {
		httpx.WriteError(w, "handlers.delete_page", err)
		return
	}
	if !s.CanEdit(userID) {
		httpx.WriteError(w, "handlers.delete_page", apperr.Forbidden("Forbidden"))
		return
	}
	if err := h.Surveys.DeletePage(r.Context(), pageID); err != nil {
		httpx.WriteError(w, "handlers.delete_page", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
