package handlers

import (
	"net/http"

	"github.com/nikhilsahni7/SurveyMap/httpx"
)

type userSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ListUsers lists every admin account, for picking survey admins and editors.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListUsers(r.Context())
	if err != nil {
		httpx.WriteError(w, "handlers.list_users", err)
		return
	}
	out := make([]userSummary, 0, len(users))
	for _, u := range users {
		out = append(out, userSummary{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
