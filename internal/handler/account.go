package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/service"
	"github.com/sakif/bookstore/internal/session"
)

// AccountHandler serves the index, sign-up, login, logout and profile pages.
type AccountHandler struct {
	accounts      *service.AccountService
	sessions      *session.Manager
	render        *Renderer
	logger        *slog.Logger
	githubEnabled bool
}

func NewAccountHandler(
	accounts *service.AccountService,
	sessions *session.Manager,
	render *Renderer,
	logger *slog.Logger,
	githubEnabled bool,
) *AccountHandler {
	return &AccountHandler{
		accounts:      accounts,
		sessions:      sessions,
		render:        render,
		logger:        logger,
		githubEnabled: githubEnabled,
	}
}

// HandleIndex handles GET /.
func (h *AccountHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.render.render(w, r, http.StatusOK, "index", page{})
}

type signupContent struct {
	Username    string
	DisplayName string
	Email       string
}

// HandleSignupForm handles GET /signup.
func (h *AccountHandler) HandleSignupForm(w http.ResponseWriter, r *http.Request) {
	h.render.render(w, r, http.StatusOK, "signup", page{Title: "Sign up", Content: signupContent{}})
}

// HandleSignup handles POST /signup. On success the new user is logged in
// and sent to their profile; on failure the form is shown again with what
// they typed, minus the password.
func (h *AccountHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.renderStatus(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}
	form := signupContent{
		Username:    r.PostForm.Get("username"),
		DisplayName: r.PostForm.Get("display_name"),
		Email:       r.PostForm.Get("email"),
	}

	user, err := h.accounts.SignUp(r.Context(), form.Username, r.PostForm.Get("password"), form.DisplayName, form.Email)
	if err != nil {
		h.formError(w, r, "signup", "Sign up", form, err)
		return
	}

	if err := h.sessions.Establish(r.Context(), w, user.Identity()); err != nil {
		h.render.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/user/"+url.PathEscape(user.Username), http.StatusSeeOther)
}

type loginContent struct {
	Username string
	GitHub   bool
}

// HandleLoginForm handles GET /login.
func (h *AccountHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.render.render(w, r, http.StatusOK, "login", page{
		Title:   "Log in",
		Content: loginContent{GitHub: h.githubEnabled},
	})
}

// HandleLogin handles POST /login.
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.renderStatus(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}
	form := loginContent{Username: r.PostForm.Get("username"), GitHub: h.githubEnabled}

	user, err := h.accounts.LogIn(r.Context(), form.Username, r.PostForm.Get("password"))
	if err != nil {
		h.formError(w, r, "login", "Log in", form, err)
		return
	}

	if err := h.sessions.Establish(r.Context(), w, user.Identity()); err != nil {
		h.render.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout handles GET /logout. It always succeeds, with or without a
// session.
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context(), w, r); err != nil {
		h.logger.Error("clearing session", slog.String("error", err.Error()))
	}
	// The cookie is gone; don't show the old identity in the header.
	r = r.WithContext(session.ContextWithoutIdentity(r.Context()))
	h.render.render(w, r, http.StatusOK, "logout", page{Title: "Logged out"})
}

type userContent struct {
	Username string
	Profile  *service.Profile
}

// HandleUser handles GET /user/{username}. An unknown username renders the
// same page with a not-found marker and status 404.
func (h *AccountHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	current, present := session.IdentityFrom(r.Context())

	profile, err := h.accounts.Profile(r.Context(), username, current, present)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			h.render.render(w, r, http.StatusNotFound, "user", page{
				Title:   "User not found",
				Content: userContent{Username: username},
			})
			return
		}
		h.render.renderError(w, r, err)
		return
	}

	h.render.render(w, r, http.StatusOK, "user", page{
		Title:   profile.User.DisplayName,
		Content: userContent{Username: username, Profile: profile},
	})
}

// formError re-renders a form page with the error's public message, or the
// error page when the failure isn't the user's fault.
func (h *AccountHandler) formError(w http.ResponseWriter, r *http.Request, name, title string, content any, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.render.renderError(w, r, err)
		return
	}
	h.render.render(w, r, status, name, page{
		Title:   title,
		Error:   publicMessage(err),
		Content: content,
	})
}
