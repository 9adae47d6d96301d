package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"mediaondemand/conversion"
	"mediaondemand/middleware"
	"mediaondemand/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps an error to the HTTP status returned to the caller.
func statusFor(err error) int {
	switch {
	case errors.Is(err, conversion.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrBadGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func handleError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, status int, err error) {
	fields := []zap.Field{
		zap.String("trace_id", middleware.GetTraceID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Info("request rejected", fields...)
	}

	respondJSON(w, status, errorResponse{Error: err.Error()})
}
