package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"framez.app/framez/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Unclassified
// errors surface as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Something went wrong, please try again"
	code := models.CodeOf(err)

	switch code {
	case models.CodeValidation:
		status = http.StatusBadRequest
	case models.CodeAuth:
		status = http.StatusUnauthorized
	case models.CodeNotFound:
		status = http.StatusNotFound
	case models.CodeUpload:
		status = http.StatusBadGateway
	}

	if appErr, ok := err.(*models.AppError); ok {
		message = appErr.Message
	}

	writeJSON(w, status, map[string]string{"error": message, "code": code})
}

// writeFieldErrors reports per-field validation failures.
func writeFieldErrors(w http.ResponseWriter, fieldErrs map[string]string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"errors": fieldErrs})
}
