package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/policy"
)

type contextKey string

const principalCtxKey contextKey = "principal"

// PrincipalResolver turns verified token claims into a principal.
type PrincipalResolver interface {
	Authenticate(ctx context.Context, claims map[string]any) (*policy.Principal, error)
}

// Authenticator rejects requests without a valid bearer token and stores the
// resolved principal in the request context. It expects jwtauth.Verifier to
// have run first.
func Authenticator(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				msg := "Authorization token required"
				if err != nil && !errors.Is(err, jwtauth.ErrNoTokenFound) {
					msg = "Invalid token"
				}
				common.RespondWithError(w, http.StatusUnauthorized, msg)
				return
			}

			principal, err := resolver.Authenticate(r.Context(), claims)
			if err != nil {
				common.RespondWithDomainError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func WithPrincipal(ctx context.Context, p *policy.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext returns nil when the request is anonymous.
func PrincipalFromContext(ctx context.Context) *policy.Principal {
	p, _ := ctx.Value(principalCtxKey).(*policy.Principal)
	return p
}
