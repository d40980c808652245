package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/fileshare/internal/repository"
	"github.com/templui/fileshare/internal/service"
	"github.com/templui/fileshare/internal/validation"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode json response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// errorStatus maps service and repository errors to a status code and a client-safe message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrShareNotFound),
		errors.Is(err, repository.ErrShareNotFound):
		return http.StatusNotFound, service.ErrShareNotFound.Error()
	case errors.Is(err, service.ErrShareExpired):
		return http.StatusGone, err.Error()
	case errors.Is(err, service.ErrNotShareOwner):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, repository.ErrProfileNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, validation.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, validation.ErrFileNameRequired),
		errors.Is(err, validation.ErrFileNameTooLong),
		errors.Is(err, validation.ErrEmptyFile),
		errors.Is(err, validation.ErrMessageTooLong),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPeriod),
		errors.Is(err, service.ErrPasswordlessLogin),
		errors.Is(err, service.ErrInvalidVerifyLink),
		errors.Is(err, repository.ErrInvalidNotificationField):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, service.ErrInvalidCredentials.Error()
	case errors.Is(err, service.ErrEmailNotVerified):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrEmailAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrStorageFailed),
		errors.Is(err, service.ErrShareIDExhausted):
		return http.StatusBadGateway, "file storage is unavailable, please try again"
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeServiceError logs unexpected errors and writes the mapped JSON error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
