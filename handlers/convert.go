package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"mediaondemand/conversion"
	"mediaondemand/models"
	"mediaondemand/services"
)

type EbookService interface {
	Convert(ctx context.Context, req models.ConversionRequest) (*models.ConversionResult, error)
}

type VideoService interface {
	Convert(ctx context.Context, req models.ConversionRequest) (*models.VideoResult, error)
	Status(ctx context.Context, assetID string) (*models.VideoStatus, error)
}

type ConvertHandler struct {
	ebooks EbookService
	videos VideoService
	logger *zap.Logger
}

func NewConvertHandler(ebooks EbookService, videos VideoService, logger *zap.Logger) *ConvertHandler {
	return &ConvertHandler{
		ebooks: ebooks,
		videos: videos,
		logger: logger,
	}
}

func (h *ConvertHandler) Ebook(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		handleError(w, r, h.logger, http.StatusBadRequest, err)
		return
	}

	// A submitted job is seen through even if the client goes away.
	result, err := h.ebooks.Convert(context.WithoutCancel(r.Context()), req)
	if err != nil {
		handleError(w, r, h.logger, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *ConvertHandler) Video(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		handleError(w, r, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.videos.Convert(context.WithoutCancel(r.Context()), req)
	if err != nil {
		handleError(w, r, h.logger, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *ConvertHandler) VideoStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.videos.Status(r.Context(), r.URL.Query().Get("assetId"))
	if err != nil {
		code := statusFor(err)
		var upstream *services.UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode >= 400 {
			code = upstream.StatusCode
		}
		handleError(w, r, h.logger, code, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// decodeRequest treats an empty body as an empty request so validation
// reports the missing field.
func decodeRequest(r *http.Request) (models.ConversionRequest, error) {
	var req models.ConversionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, conversion.NewError(conversion.ErrInvalidRequest, "Invalid JSON body", err)
	}
	return req, nil
}
