package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"sweetbaker/pkg/jwt"
)

type contextKey string

const subjectContextKey contextKey = "subject"

type AuthMiddleware struct {
	tokens *jwt.JWT
}

func NewAuthMiddleware(tokens *jwt.JWT) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Wrap validates the bearer token and stores the session subject in the
// request context.
func (m *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSONError(w, http.StatusUnauthorized, "authorization token is not provided")
			return
		}

		claims, err := m.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}

		subject, err := uuid.Parse(claims.Subject)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectContextKey, subject)))
	})
}

// SubjectFromContext returns the account id placed there by Wrap.
func SubjectFromContext(ctx context.Context) (uuid.UUID, bool) {
	subject, ok := ctx.Value(subjectContextKey).(uuid.UUID)
	return subject, ok
}
