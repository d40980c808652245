package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/templui/fileshare/internal/ctxkeys"
	"github.com/templui/fileshare/internal/format"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/service"
)

type AdminHandler struct {
	analytics  *service.AnalyticsService
	shares     *service.ShareService
	users      *service.UserService
	profiles   *service.ProfileService
	activities *service.ActivityService
}

func NewAdminHandler(
	analytics *service.AnalyticsService,
	shares *service.ShareService,
	users *service.UserService,
	profiles *service.ProfileService,
	activities *service.ActivityService,
) *AdminHandler {
	return &AdminHandler{
		analytics:  analytics,
		shares:     shares,
		users:      users,
		profiles:   profiles,
		activities: activities,
	}
}

// Stats returns platform totals and a time series for ?period=daily|weekly|monthly
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	period, err := service.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	stats, err := h.analytics.PlatformStats(r.Context(), period)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) FileAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.analytics.FileAnalytics(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

type flaggedFileResponse struct {
	*model.FlaggedFile
	SizeFormatted string `json:"size_formatted"`
}

func (h *AdminHandler) FlaggedFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.analytics.FlaggedFiles(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]flaggedFileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, flaggedFileResponse{FlaggedFile: f, SizeFormatted: format.Size(f.FileSize)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": out})
}

func (h *AdminHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	err := h.shares.Delete(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"), ctxkeys.ClientIP(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type userResponse struct {
	*model.UserStats
	TotalSizeFormatted string `json:"total_size_formatted"`
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Users(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{UserStats: u, TotalSizeFormatted: format.Size(u.TotalSize)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

// ToggleAdmin flips is_admin for one user
func (h *AdminHandler) ToggleAdmin(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.ToggleAdmin(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AdminHandler) NotificationSettings(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.NotificationSettings(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

type notificationUpdate struct {
	Field string `json:"field"`
	Value *bool  `json:"value"`
}

// UpdateNotification sets one notification flag for one user
func (h *AdminHandler) UpdateNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationUpdate
	err := decodeJSON(w, r, &req)
	if err != nil || req.Value == nil {
		writeError(w, http.StatusBadRequest, `body must be {"field": "...", "value": true|false}`)
		return
	}

	id := r.PathValue("id")
	err = h.profiles.SetNotification(r.Context(), id, req.Field, *req.Value)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	profile, err := h.profiles.ByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type bulkNotificationUpdate struct {
	Enabled *bool `json:"enabled"`
}

// UpdateAllNotifications sets both notification flags for every user
func (h *AdminHandler) UpdateAllNotifications(w http.ResponseWriter, r *http.Request) {
	var req bulkNotificationUpdate
	err := decodeJSON(w, r, &req)
	if err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, `body must be {"enabled": true|false}`)
		return
	}

	n, err := h.profiles.SetAllNotifications(r.Context(), *req.Enabled)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": n, "enabled": *req.Enabled})
}

// Activities lists the newest audit entries.
// Filters: user_id, file_id, start, end (RFC 3339 or YYYY-MM-DD), q, limit.
func (h *AdminHandler) Activities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.ActivityFilter{
		UserID: strings.TrimSpace(q.Get("user_id")),
		FileID: strings.TrimSpace(q.Get("file_id")),
	}

	var err error
	filter.Start, err = parseTimeParam(q.Get("start"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start time")
		return
	}
	filter.End, err = parseTimeParam(q.Get("end"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end time")
		return
	}
	if limit := q.Get("limit"); limit != "" {
		filter.Limit, err = strconv.Atoi(limit)
		if err != nil || filter.Limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	entries, err := h.activities.List(r.Context(), filter, q.Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*model.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": entries})
}

// parseTimeParam accepts RFC 3339 or a bare date. A bare end date covers the whole day.
func parseTimeParam(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
