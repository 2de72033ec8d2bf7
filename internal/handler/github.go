package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/bookstore/internal/auth"
	"github.com/sakif/bookstore/internal/service"
	"github.com/sakif/bookstore/internal/session"
)

const stateCookie = "oauth_state"

// GitHubHandler runs "Sign in with GitHub". It is only routed when GitHub
// credentials are configured.
type GitHubHandler struct {
	github   *auth.GitHubProvider
	accounts *service.AccountService
	sessions *session.Manager
	render   *Renderer
	logger   *slog.Logger
}

func NewGitHubHandler(
	github *auth.GitHubProvider,
	accounts *service.AccountService,
	sessions *session.Manager,
	render *Renderer,
	logger *slog.Logger,
) *GitHubHandler {
	return &GitHubHandler{
		github:   github,
		accounts: accounts,
		sessions: sessions,
		render:   render,
		logger:   logger,
	}
}

// HandleLogin handles GET /auth/github/login. A random state is stored in a
// short-lived cookie and checked on the callback.
func (h *GitHubHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/github",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback handles GET /auth/github/callback.
func (h *GitHubHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("github callback: state mismatch")
		h.render.renderStatus(w, r, http.StatusBadRequest, "The sign-in request expired or was tampered with. Please try again.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/auth/github",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.render.renderStatus(w, r, http.StatusBadRequest, "GitHub did not send an authorization code.")
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		h.render.renderStatus(w, r, http.StatusBadGateway, "Could not complete sign-in with GitHub.")
		return
	}

	user, err := h.accounts.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	if err := h.sessions.Establish(r.Context(), w, user.Identity()); err != nil {
		h.render.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
