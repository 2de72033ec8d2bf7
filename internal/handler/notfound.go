package handler

import "net/http"

// NotFound renders the generic 404 page for unmatched routes.
func (rn *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rn.renderStatus(w, r, http.StatusNotFound, "The page you asked for does not exist.")
}

// MethodNotAllowed renders the error page with 405.
func (rn *Renderer) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	rn.renderStatus(w, r, http.StatusMethodNotAllowed, "That action isn't supported here.")
}
