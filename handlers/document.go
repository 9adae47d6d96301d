package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"mediaondemand/services"
)

type DocumentFetcher interface {
	FetchDocument(ctx context.Context, rawURL string) (*services.Document, error)
	FetchTextPreview(ctx context.Context, rawURL string) (string, error)
}

type DocumentHandler struct {
	fetcher DocumentFetcher
	logger  *zap.Logger
}

func NewDocumentHandler(fetcher DocumentFetcher, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		fetcher: fetcher,
		logger:  logger,
	}
}

func (h *DocumentHandler) Epub(w http.ResponseWriter, r *http.Request) {
	doc, err := h.fetcher.FetchDocument(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		handleError(w, r, h.logger, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/epub+zip")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

func (h *DocumentHandler) Text(w http.ResponseWriter, r *http.Request) {
	preview, err := h.fetcher.FetchTextPreview(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		handleError(w, r, h.logger, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"preview": preview})
}
