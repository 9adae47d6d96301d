package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"mediaondemand/middleware"
)

func NewRouter(convert *ConvertHandler, documents *DocumentHandler, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Trace, middleware.Logging(logger), middleware.Recovery(logger))

	r.HandleFunc("/api/convert/ebook", convert.Ebook).Methods(http.MethodPost)
	r.HandleFunc("/api/convert/video", convert.Video).Methods(http.MethodPost)
	r.HandleFunc("/api/convert/video/status", convert.VideoStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/epub", documents.Epub).Methods(http.MethodGet)
	r.HandleFunc("/api/text", documents.Text).Methods(http.MethodGet)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return r
}
