package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/bookstore/internal/service"
)

// APIHandler serves the public JSON API.
type APIHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

func NewAPIHandler(catalog *service.CatalogService, logger *slog.Logger) *APIHandler {
	return &APIHandler{catalog: catalog, logger: logger}
}

// HandleBook handles GET /api/{isbn}.
//
//	200 {"title":…,"author":…,"year":2020,"isbn":…,"review_count":0,"average_score":0.0}
//	404 {"error":"isbn not found"}
func (h *APIHandler) HandleBook(w http.ResponseWriter, r *http.Request) {
	summary, err := h.catalog.BookSummary(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("api: book summary failed", slog.String("error", err.Error()))
		}
		writeJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
