package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/service"
	"github.com/sakif/bookstore/internal/session"
)

// CatalogHandler serves search, the book page and review submission. All
// of its routes sit behind session.RequireSession.
type CatalogHandler struct {
	catalog *service.CatalogService
	render  *Renderer
	logger  *slog.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, render *Renderer, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, render: render, logger: logger}
}

// searchContent distinguishes a search that found nothing (Submitted, no
// Results) from the blank form (not Submitted).
type searchContent struct {
	Query     string
	Submitted bool
	Results   []model.Book
}

// HandleSearchForm handles GET /search: the form with no results.
func (h *CatalogHandler) HandleSearchForm(w http.ResponseWriter, r *http.Request) {
	h.render.render(w, r, http.StatusOK, "search", page{Title: "Search", Content: searchContent{}})
}

// HandleSearch handles POST /search.
func (h *CatalogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.renderStatus(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}
	query := r.PostForm.Get("q")

	books, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.render.renderError(w, r, err)
			return
		}
		h.render.render(w, r, status, "search", page{
			Title:   "Search",
			Error:   publicMessage(err),
			Content: searchContent{Query: query},
		})
		return
	}

	h.render.render(w, r, http.StatusOK, "search", page{
		Title:   "Search",
		Content: searchContent{Query: query, Submitted: true, Results: books},
	})
}

type bookContent struct {
	Detail        *service.BookDetail
	CanReview     bool
	RatingChoices []int
	Rating        int
	Body          string
}

// HandleBook handles GET /book/{isbn}. Aggregator failures never reach
// here; only a missing book or a store failure is an error.
func (h *CatalogHandler) HandleBook(w http.ResponseWriter, r *http.Request) {
	h.showBook(w, r, http.StatusOK, "", 0, "")
}

// HandleReview handles POST /book/{isbn}/review and redirects back to the
// book page. A rejected review shows the book page again with the message
// and the text the user typed.
func (h *CatalogHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")
	if err := r.ParseForm(); err != nil {
		h.render.renderStatus(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}
	identity, _ := session.IdentityFrom(r.Context())

	body := r.PostForm.Get("body")
	rating, convErr := strconv.Atoi(r.PostForm.Get("rating"))

	var err error
	if convErr != nil {
		err = apperror.ValidationFailed("rating", "choose a rating from 1 to 5")
	} else {
		_, err = h.catalog.AddReview(r.Context(), isbn, identity, rating, body)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) || statusFor(err) == http.StatusInternalServerError {
			h.render.renderError(w, r, err)
			return
		}
		h.showBook(w, r, statusFor(err), publicMessage(err), rating, body)
		return
	}

	http.Redirect(w, r, "/book/"+url.PathEscape(isbn), http.StatusSeeOther)
}

func (h *CatalogHandler) showBook(w http.ResponseWriter, r *http.Request, status int, message string, rating int, body string) {
	isbn := chi.URLParam(r, "isbn")

	detail, err := h.catalog.BookDetail(r.Context(), isbn)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			h.render.renderStatus(w, r, http.StatusNotFound, "No book with ISBN "+isbn+" is in the catalog.")
			return
		}
		h.render.renderError(w, r, err)
		return
	}

	identity, _ := session.IdentityFrom(r.Context())
	h.render.render(w, r, status, "book", page{
		Title: detail.Book.Title,
		Error: message,
		Content: bookContent{
			Detail:        detail,
			CanReview:     !detail.ReviewedBy(identity.DisplayID),
			RatingChoices: []int{5, 4, 3, 2, 1},
			Rating:        rating,
			Body:          body,
		},
	})
}
