package mw

import (
	"context"
	"net/http"
	"strings"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/respond"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
)

// UserHeader carries the id of the caller, set by the upstream authenticator.
const UserHeader = "X-User-ID"

// Resolver maps a user id to an Identity.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (domain.Identity, error)
}

type identityKey struct{}

// holder is placed in the context by Log so Identity can report the
// resolved user back to the access log.
type holder struct {
	who domain.Identity
}

type holderKey struct{}

// Identity resolves the X-User-ID header. Requests without the header pass
// through anonymously; an unknown user is rejected with 401.
func Identity(res Resolver, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserHeader))
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			who, err := res.Resolve(r.Context(), userID)
			if err != nil {
				respond.Error(w, log, err)
				return
			}

			if h, ok := r.Context().Value(holderKey{}).(*holder); ok {
				h.who = who
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), who)))
		})
	}
}

// IdentityFrom returns the caller, or the zero Identity for anonymous requests.
func IdentityFrom(ctx context.Context) domain.Identity {
	who, _ := ctx.Value(identityKey{}).(domain.Identity)
	return who
}

// WithIdentity stores who in ctx.
func WithIdentity(ctx context.Context, who domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, who)
}
