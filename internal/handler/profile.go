package handler

import (
	"log/slog"
	"net/http"

	"github.com/templui/fileshare/internal/ctxkeys"
	"github.com/templui/fileshare/internal/service"
)

// ProfileHandler lets users manage their own notification preferences
type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ctxkeys.Profile(r.Context()))
}

func (h *ProfileHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req notificationUpdate
	err := decodeJSON(w, r, &req)
	if err != nil || req.Value == nil {
		writeError(w, http.StatusBadRequest, `body must be {"field": "...", "value": true|false}`)
		return
	}

	err = h.profileService.SetNotification(r.Context(), user.ID, req.Field, *req.Value)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	profile, err := h.profileService.ByID(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to load profile", "error", err, "user_id", user.ID)
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
