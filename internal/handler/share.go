package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/templui/fileshare/internal/ctxkeys"
	"github.com/templui/fileshare/internal/format"
	"github.com/templui/fileshare/internal/markdown"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/service"
	"github.com/templui/fileshare/internal/ui"
	"github.com/templui/fileshare/internal/ui/pages"
)

const (
	multipartMemory = 32 << 20
	multipartSlack  = 1 << 20 // form fields and boundaries around the file
)

type ShareHandler struct {
	shares    *service.ShareService
	markdown  *markdown.Parser
	maxUpload int64
	now       func() time.Time
}

func NewShareHandler(shares *service.ShareService, md *markdown.Parser, maxUpload int64) *ShareHandler {
	return &ShareHandler{
		shares:    shares,
		markdown:  md,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

type shareResponse struct {
	*model.FileShare
	IsExpired     bool   `json:"expired"`
	SizeFormatted string `json:"size_formatted"`
	DownloadURL   string `json:"download_url"`
	DownloadCount *int64 `json:"download_count,omitempty"`
}

func (h *ShareHandler) response(s *model.FileShare) shareResponse {
	return shareResponse{
		FileShare:     s,
		IsExpired:     s.Expired(h.now()),
		SizeFormatted: format.Size(s.FileSize),
		DownloadURL:   s.ShareLink + "/download",
	}
}

func viewer(r *http.Request) service.Viewer {
	return service.Viewer{
		UserID: ctxkeys.UserID(r.Context()),
		IP:     ctxkeys.ClientIP(r.Context()),
	}
}

// SharePage renders the public page behind a share link
func (h *ShareHandler) SharePage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	share, err := h.shares.Resolve(r.Context(), id, viewer(r))
	if err != nil {
		h.notAvailable(w, r, err)
		return
	}

	var messageHTML string
	if share.Message != "" {
		messageHTML, err = h.markdown.Message(share.Message)
		if err != nil {
			slog.Warn("failed to render share message", "error", err, "share_id", share.ID)
		}
	}

	now := h.now()
	ui.Render(w, r, pages.Share(pages.ShareView{
		Share:       share,
		MessageHTML: messageHTML,
		Expired:     share.Expired(now),
		ExpiresIn:   format.Relative(share.ExpiresAt, now),
		DownloadURL: "/share/" + id + "/download",
	}))
}

// Download streams the shared file
func (h *ShareHandler) Download(w http.ResponseWriter, r *http.Request) {
	share, body, err := h.shares.Download(r.Context(), r.PathValue("id"), viewer(r))
	if err != nil {
		h.notAvailable(w, r, err)
		return
	}
	defer func() {
		closeErr := body.Close()
		if closeErr != nil {
			slog.Warn("failed to close download stream", "error", closeErr, "share_id", share.ID)
		}
	}()

	header := w.Header()
	header.Set("Content-Type", share.MimeType)
	header.Set("Content-Length", strconv.FormatInt(share.FileSize, 10))
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": share.FileName}))
	header.Set("Cache-Control", "private, no-store")

	_, err = io.Copy(w, body)
	if err != nil {
		slog.Warn("download interrupted", "error", err, "share_id", share.ID)
	}
}

// Get returns share metadata as JSON
func (h *ShareHandler) Get(w http.ResponseWriter, r *http.Request) {
	share, err := h.shares.Resolve(r.Context(), r.PathValue("id"), viewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.response(share))
}

func (h *ShareHandler) notAvailable(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrShareNotFound):
		ui.RenderStatus(w, r, http.StatusNotFound, pages.NotAvailable("This link does not exist or the file has been deleted."))
	case errors.Is(err, service.ErrShareExpired):
		ui.RenderStatus(w, r, http.StatusGone, pages.NotAvailable("This link has expired. Ask the sender for a new one."))
	case errors.Is(err, service.ErrStorageFailed):
		slog.Error("failed to read shared file", "error", err, "path", r.URL.Path)
		ui.RenderStatus(w, r, http.StatusBadGateway, pages.NotAvailable("The file could not be fetched from storage. Please try again later."))
	default:
		slog.Error("failed to load share", "error", err, "path", r.URL.Path)
		ui.RenderStatus(w, r, http.StatusInternalServerError, pages.NotAvailable("Something went wrong. Please try again later."))
	}
}

// Create accepts a multipart upload (file, recipient_email, message) and issues a share
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartSlack)
	err := r.ParseMultipartForm(multipartMemory)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid upload form")
		return
	}
	defer func() {
		removeErr := r.MultipartForm.RemoveAll()
		if removeErr != nil {
			slog.Warn("failed to remove multipart temp files", "error", removeErr)
		}
	}()

	file, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	share, err := h.shares.Issue(r.Context(), service.Upload{
		OwnerID:        user.ID,
		FileName:       fh.Filename,
		Size:           fh.Size,
		Body:           file,
		RecipientEmail: r.FormValue("recipient_email"),
		Message:        r.FormValue("message"),
		IP:             ctxkeys.ClientIP(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.response(share))
}

// List returns the signed-in user's shares with download counts
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	shares, err := h.shares.ListForOwner(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]shareResponse, 0, len(shares))
	for _, s := range shares {
		resp := h.response(&s.FileShare)
		resp.DownloadCount = &s.DownloadCount
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"shares": out})
}

func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.shares.DeleteOwned(r.Context(), user.ID, r.PathValue("id"), ctxkeys.ClientIP(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
