package handler

import (
	"net/http"

	"github.com/templui/fileshare/internal/format"
	"github.com/templui/fileshare/internal/ui"
	"github.com/templui/fileshare/internal/ui/pages"
)

type HomeHandler struct {
	maxUpload string
}

func NewHomeHandler(maxUploadSize int64) *HomeHandler {
	return &HomeHandler{maxUpload: format.Size(maxUploadSize)}
}

func (h *HomeHandler) HomePage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.Home(h.maxUpload))
}

func (h *HomeHandler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	ui.RenderStatus(w, r, http.StatusNotFound, pages.NotFound())
}
