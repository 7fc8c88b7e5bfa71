package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/taskboard/apiserver/internal/auth"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/types"
)

// TokenCookieName is the cookie carrying the session token.
const TokenCookieName = "token"

type contextKey string

const contextUserKey contextKey = "user"

// TokenVerifier resolves a token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserLookup loads the user a token belongs to.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (types.User, error)
}

var _ TokenVerifier = (*auth.TokenService)(nil)

// Authenticate resolves the caller from the token cookie or a bearer header
// and stores the user in the request context.
func Authenticate(tokens TokenVerifier, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := ""
			for _, candidate := range tokenCandidates(r) {
				if subject, err := tokens.Verify(candidate); err == nil {
					userID = subject
					break
				}
			}
			if userID == "" {
				writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
					return
				}
				writeError(w, http.StatusInternalServerError, "Server error")
				return
			}

			ctx := context.WithValue(r.Context(), contextUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize admits only callers whose role is in roles. It must run after Authenticate.
func Authorize(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := currentUser(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}
			if !slices.Contains(roles, user.Role) {
				writeError(w, http.StatusForbidden, "User role is not authorized to access this route")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentUser(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

func tokenCandidates(r *http.Request) []string {
	var candidates []string
	if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		candidates = append(candidates, cookie.Value)
	}
	if token, err := bearerToken(r); err == nil {
		candidates = append(candidates, token)
	}
	return candidates
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
