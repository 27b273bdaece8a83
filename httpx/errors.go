// Package httpx holds the JSON response helpers shared by the HTTP handlers.
package httpx

import (
	"errors"
	"net/http"

	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/log"
)

type errorBody struct {
	Message string `json:"message"`
	Info    string `json:"info,omitempty"`
}

// WriteError sends err as {message, info}. Internal errors are logged under
// code and answered with the default status text.
func WriteError(w http.ResponseWriter, code string, err error) {
	if apperr.StatusOf(err) >= http.StatusInternalServerError {
		LogInternalError(w, code, err)
		return
	}
	var e *apperr.Error
	errors.As(err, &e)
	log.Debugf("%s: %d %s", code, e.Status, e.Message)
	WriteJSON(w, e.Status, errorBody{Message: e.Message, Info: e.Info})
}

// Will log an error, and send a JSON response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	WriteJSON(w, http.StatusInternalServerError, errorBody{Message: http.StatusText(http.StatusInternalServerError)})
}
