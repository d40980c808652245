package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/fileshare/internal/service"
)

// FunctionHandler exposes background jobs over HTTP for external schedulers
type FunctionHandler struct {
	notifications *service.NotificationService
	secret        string
}

func NewFunctionHandler(notifications *service.NotificationService, secret string) *FunctionHandler {
	return &FunctionHandler{notifications: notifications, secret: secret}
}

func setCORSHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

// Preflight answers CORS preflight requests
func (h *FunctionHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// SendNotifications runs one notification pass
func (h *FunctionHandler) SendNotifications(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.notifications.Run(r.Context())
	if err != nil {
		slog.Error("notification run failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Notifications processed successfully",
		"access":  result.AccessNotifications,
		"expiry":  result.ExpiryNotifications,
	})
}

func (h *FunctionHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}
