package handlers

import (
	"fmt"
	"net/http"

	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/auth"
	"github.com/nikhilsahni7/SurveyMap/httpx"
	"github.com/nikhilsahni7/SurveyMap/log"
	"github.com/nikhilsahni7/SurveyMap/report"
	"github.com/nikhilsahni7/SurveyMap/survey"
)

// canExport checks edit access once the survey has been loaded together with
// its submissions.
func canExport(r *http.Request, s *survey.Survey) error {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		return apperr.Unauthorized("Unauthorized")
	}
	if !s.CanEdit(userID) {
		return apperr.Forbidden("Forbidden")
	}
	return nil
}

func (h *Handler) ExportSubmissionsCSV(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathInt(r, "id")
	if err != nil {
		httpx.WriteError(w, "handlers.export_csv", err)
		return
	}
	s, subs, err := h.Surveys.SurveyWithSubmissions(r.Context(), surveyID)
	if err == nil {
		err = canExport(r, s)
	}
	if err != nil {
		httpx.WriteError(w, "handlers.export_csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment;filename=survey_%d.csv", surveyID))
	if err := report.WriteCSV(w, *s, subs, language(r)); err != nil {
		// Headers are already sent.
		log.Errorf("handlers.export_csv: %s", err)
	}
}

func (h *Handler) ExportSubmissionsGeoJSON(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathInt(r, "id")
	if err != nil {
		httpx.WriteError(w, "handlers.export_geojson", err)
		return
	}
	s, subs, err := h.Surveys.SurveyWithSubmissions(r.Context(), surveyID)
	if err == nil {
		err = canExport(r, s)
	}
	if err != nil {
		httpx.WriteError(w, "handlers.export_geojson", err)
		return
	}

	fc := report.MapAnswersGeoJSON(*s, subs, language(r))
	body, err := fc.MarshalJSON()
	if err != nil {
		httpx.LogInternalError(w, "handlers.export_geojson", err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment;filename=survey_%d.geojson", surveyID))
	w.Write(body)
}

func (h *Handler) SubmissionReport(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathInt(r, "id")
	if err != nil {
		httpx.WriteError(w, "handlers.submission_report", err)
		return
	}
	submissionID, err := pathInt(r, "submissionId")
	if err != nil {
		httpx.WriteError(w, "handlers.submission_report", err)
		return
	}
	s, sub, err := h.Surveys.SurveyWithSubmission(r.Context(), surveyID, submissionID)
	if err == nil {
		err = canExport(r, s)
	}
	if err != nil {
		httpx.WriteError(w, "handlers.submission_report", err)
		return
	}

	lang := sub.Language
	if q := r.URL.Query().Get("lang"); q != "" {
		lang = q
	}
	pdf, err := report.SubmissionPDF(*s, *sub, lang)
	if err != nil {
		httpx.LogInternalError(w, "handlers.submission_report", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment;filename=submission_%d.pdf", submissionID))
	w.Write(pdf)
}
