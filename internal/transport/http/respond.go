package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"hanzi-quiz-service/internal/domain"
	"hanzi-quiz-service/internal/i18n"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// errorStatus maps domain errors to HTTP status codes and stable codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrCatalogNotFound):
		return http.StatusNotFound, "catalog_not_found"
	case errors.Is(err, domain.ErrUnknownExercise):
		return http.StatusBadRequest, "unknown_exercise"
	case errors.Is(err, domain.ErrUnknownLanguage):
		return http.StatusBadRequest, "unknown_language"
	case errors.Is(err, domain.ErrUnknownLevel):
		return http.StatusBadRequest, "unknown_level"
	case errors.Is(err, domain.ErrInvalidAnswer):
		return http.StatusBadRequest, "invalid_answer"
	case errors.Is(err, domain.ErrAlreadyAnswered):
		return http.StatusConflict, "already_answered"
	case errors.Is(err, domain.ErrInvalidPhase):
		return http.StatusConflict, "invalid_phase"
	case errors.Is(err, domain.ErrSessionFinished):
		return http.StatusConflict, "session_finished"
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict, "session_closed"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token"
	case errors.Is(err, domain.ErrEmptyCatalog), errors.Is(err, domain.ErrInsufficientCatalogSize):
		return http.StatusUnprocessableEntity, "empty_catalog"
	}
	return http.StatusInternalServerError, "internal"
}

// messageKeys are the errors with a translated UI message.
var messageKeys = map[string]string{
	"invalid_credentials": "invalidCredentials",
	"session_not_found":   "sessionNotFound",
}

func writeError(w http.ResponseWriter, loc i18n.Localizer, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if key, ok := messageKeys[code]; ok {
		msg = loc.T(key)
	}
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
