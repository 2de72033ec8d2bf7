// Package session implements the login session lifecycle.
//
// The browser holds a "session" cookie whose value is a signed token naming a
// server-side session record. The record carries the typed Identity. Whether
// a request has a session is reported as a separate boolean, never inferred
// from a zero Identity.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/auth"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

const CookieName = "session"

// Manager establishes, reads and clears sessions.
type Manager struct {
	store  repository.SessionRepository
	tokens *auth.TokenService
	logger *slog.Logger
	secure bool
}

// NewManager builds a Manager. Session lifetime is the TokenService TTL; the
// stored record and the cookie expire together.
func NewManager(store repository.SessionRepository, tokens *auth.TokenService, logger *slog.Logger) *Manager {
	return &Manager{store: store, tokens: tokens, logger: logger}
}

// SetSecureCookie marks the cookie Secure. Enable it when the site is served
// over HTTPS.
func (m *Manager) SetSecureCookie(secure bool) {
	m.secure = secure
}

// Establish creates a new session for id and writes its cookie to w.
func (m *Manager) Establish(ctx context.Context, w http.ResponseWriter, id model.Identity) error {
	token := xid.New().String()
	expires := time.Now().Add(m.tokens.TTL())

	if err := m.store.SaveSession(ctx, repository.StoredSession{
		Token:     token,
		Identity:  id,
		ExpiresAt: expires,
	}); err != nil {
		return fmt.Errorf("session: saving: %w", err)
	}

	signed, err := m.tokens.Generate(token)
	if err != nil {
		return fmt.Errorf("session: signing: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	m.logger.Debug("session established", slog.String("username", id.Username))
	return nil
}

// Current returns the identity of the request's session. A missing cookie,
// a bad signature and an expired or deleted record all count as no session.
func (m *Manager) Current(r *http.Request) (model.Identity, bool) {
	token, ok := m.tokenFrom(r)
	if !ok {
		return model.Identity{}, false
	}

	stored, err := m.store.GetSession(r.Context(), token)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			m.logger.Warn("session lookup failed", slog.String("error", err.Error()))
		}
		return model.Identity{}, false
	}
	return stored.Identity, true
}

// Clear ends the request's session, if any, and expires the cookie. Calling
// it without a session is not an error.
func (m *Manager) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	token, ok := m.tokenFrom(r)
	if !ok {
		return nil
	}
	if err := m.store.DeleteSession(ctx, token); err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("session: deleting: %w", err)
	}
	return nil
}

func (m *Manager) tokenFrom(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	token, err := m.tokens.Validate(cookie.Value)
	if err != nil {
		m.logger.Debug("rejected session cookie", slog.String("error", err.Error()))
		return "", false
	}
	return token, true
}
