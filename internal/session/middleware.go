package session

import (
	"context"
	"net/http"

	"github.com/sakif/bookstore/internal/model"
)

type contextKey struct{}

// Load resolves the request's session once and stores the result in the
// request context. It never rejects a request.
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := m.Current(r); ok {
			r = r.WithContext(ContextWithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession redirects anonymous requests to /login. It expects Load to
// have run earlier in the chain.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFrom returns the identity Load stored in ctx.
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(model.Identity)
	return id, ok
}

func ContextWithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// ContextWithoutIdentity hides any identity Load stored, for responses
// rendered after the session has been cleared.
func ContextWithoutIdentity(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, nil)
}
