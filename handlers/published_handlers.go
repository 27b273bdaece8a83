package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/email"
	"github.com/nikhilsahni7/SurveyMap/httpx"
	"github.com/nikhilsahni7/SurveyMap/log"
	"github.com/nikhilsahni7/SurveyMap/report"
	"github.com/nikhilsahni7/SurveyMap/survey"
)

const reportTimeout = time.Minute

type submissionRequest struct {
	Entries  []survey.AnswerEntry `json:"entries" validate:"dive"`
	Language string               `json:"language" validate:"omitempty,oneof=fi en se"`
	Token    *uuid.UUID           `json:"token"`
}

// publishedSurvey loads a survey by name for respondents. Unpublished surveys
// are only visible in test mode, and only when the survey allows it.
func (h *Handler) publishedSurvey(r *http.Request) (*survey.Survey, error) {
	s, err := h.Surveys.GetSurveyByName(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		return nil, err
	}
	testMode := r.URL.Query().Get("test") == "true" && s.AllowTestSurvey
	if !s.IsPublished && !testMode {
		return nil, apperr.NotFound("Survey not found")
	}
	return s, nil
}

// respondentView hides the access lists and report recipients.
func respondentView(s survey.Survey) survey.Survey {
	s.Admins = []uint{}
	s.Editors = []uint{}
	s.Email.AutoSendTo = []string{}
	return s
}

func (h *Handler) GetPublishedSurvey(w http.ResponseWriter, r *http.Request) {
	s, err := h.publishedSurvey(r)
	if err != nil {
		httpx.WriteError(w, "handlers.get_published_survey", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, respondentView(*s))
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, err := h.publishedSurvey(r)
	if err != nil {
		httpx.WriteError(w, "handlers.submit", err)
		return
	}
	var req submissionRequest
	if err := h.decode(r, &req); err != nil {
		httpx.WriteError(w, "handlers.submit", err)
		return
	}
	if req.Language == "" {
		req.Language = survey.DefaultLanguage
	}
	if invalid := survey.ValidateSubmission(*s, req.Entries); len(invalid) > 0 {
		log.WithFields(log.Fields{"survey": s.ID, "errors": invalid}).Debug("invalid submission")
		httpx.WriteError(w, "handlers.submit", apperr.BadRequest("Invalid answers").WithInfo("invalid_answers"))
		return
	}

	id, err := h.Surveys.CreateSubmission(r.Context(), s.ID, req.Language, req.Entries, req.Token)
	if err != nil {
		httpx.WriteError(w, "handlers.submit", err)
		return
	}

	sub := survey.Submission{
		ID:        id,
		SurveyID:  s.ID,
		Language:  req.Language,
		CreatedAt: time.Now(),
		Answers:   req.Entries,
	}
	h.sendReport(*s, sub)

	httpx.WriteJSON(w, http.StatusCreated, map[string]int{"id": id})
}

// sendReport mails the submission PDF in the background when the survey has
// reports enabled. Failures are only logged.
func (h *Handler) sendReport(s survey.Survey, sub survey.Submission) {
	if !s.Email.Enabled {
		return
	}
	to := append([]string{}, s.Email.AutoSendTo...)
	if addr := respondentEmail(s, sub.Answers); addr != "" {
		to = append(to, addr)
	}
	if len(to) == 0 {
		return
	}

	h.mail.Add(1)
	go func() {
		defer h.mail.Done()
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()

		pdf, err := report.SubmissionPDF(s, sub, sub.Language)
		if err != nil {
			log.Errorf("handlers.send_report.pdf: %s", err)
			return
		}
		msg := email.Message{
			To:      to,
			Subject: s.Email.Subject.Get(sub.Language),
			Text:    s.Email.Body.Get(sub.Language),
			Attachments: []email.Attachment{{
				FileName:    fmt.Sprintf("%s-%d.pdf", s.Name, sub.ID),
				ContentType: "application/pdf",
				Data:        pdf,
			}},
		}
		if err := h.Mailer.Send(ctx, msg); err != nil {
			log.Errorf("handlers.send_report: survey %d submission %d: %s", s.ID, sub.ID, err)
		}
	}()
}

// respondentEmail returns the address given in the survey's personal info
// section, if any.
func respondentEmail(s survey.Survey, answers []survey.AnswerEntry) string {
	for _, sec := range s.FlatSections() {
		if sec.Type != survey.TypePersonalInfo {
			continue
		}
		for _, a := range answers {
			if a.SectionID != sec.ID {
				continue
			}
			if info, err := a.PersonalInfo(); err == nil {
				return info.Email
			}
		}
	}
	return ""
}

func (h *Handler) SaveUnfinished(w http.ResponseWriter, r *http.Request) {
	s, err := h.publishedSurvey(r)
	if err != nil {
		httpx.WriteError(w, "handlers.save_unfinished", err)
		return
	}
	var req submissionRequest
	if err := h.decode(r, &req); err != nil {
		httpx.WriteError(w, "handlers.save_unfinished", err)
		return
	}
	if req.Language == "" {
		req.Language = survey.DefaultLanguage
	}
	token, err := h.Surveys.SaveUnfinishedSubmission(r.Context(), s.ID, req.Language, req.Entries, req.Token)
	if err != nil {
		httpx.WriteError(w, "handlers.save_unfinished", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"token": token.String()})
}

func (h *Handler) GetUnfinished(w http.ResponseWriter, r *http.Request) {
	s, err := h.publishedSurvey(r)
	if err != nil {
		httpx.WriteError(w, "handlers.get_unfinished", err)
		return
	}
	token, err := uuid.Parse(r.URL.Query().Get("token"))
	if err != nil {
		httpx.WriteError(w, "handlers.get_unfinished", apperr.BadRequest("Invalid token"))
		return
	}
	sub, err := h.Surveys.UnfinishedSubmission(r.Context(), s.ID, token)
	if err != nil {
		httpx.WriteError(w, "handlers.get_unfinished", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sub)
}
