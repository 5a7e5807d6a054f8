package handlers

import (
	"encoding/json"
	"net/http"

	"framez.app/framez/models"
	"framez.app/framez/services"
	"framez.app/framez/session"
	"framez.app/framez/validation"
)

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Signup(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if fieldErrs := validation.Signup(req.Email, req.Password, req.DisplayName); len(fieldErrs) > 0 {
			writeFieldErrors(w, fieldErrs)
			return
		}

		if err := m.Signup(r.Context(), req.Email, req.Password, req.DisplayName); err != nil {
			if appErr, ok := err.(*models.AppError); ok && appErr.Message == services.MsgEmailExists {
				writeJSON(w, http.StatusConflict, map[string]string{"error": appErr.Message, "code": appErr.Code})
				return
			}
			writeError(w, err)
			return
		}

		// The optimistic push makes the session readable right away.
		writeJSON(w, http.StatusCreated, m.Current())
	}
}

func Login(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if fieldErrs := validation.Login(req.Email, req.Password); len(fieldErrs) > 0 {
			writeFieldErrors(w, fieldErrs)
			return
		}

		if err := m.Login(r.Context(), req.Email, req.Password); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func Logout(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.LogOut(); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// GetSession reports the current session and the loading flag. Loading is
// true until the first auth-state notification lands.
func GetSession(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"user":    m.Current(),
			"loading": m.Loading(),
		})
	}
}
