package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload issued by the account service.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

type actorKey struct{}

// Authenticator verifies HS256 bearer tokens and puts the acting user id on
// the request context.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

var errMissingToken = errors.New("authentication credentials were not provided")

// Verify parses raw and returns the user id it carries.
func (a *Authenticator) Verify(raw string) (int64, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, errors.New("invalid token")
	}
	return claims.UserID, nil
}

// Middleware rejects requests without a valid token. Browsers cannot set
// headers on websocket upgrades, so a token query parameter is accepted too.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r)
		if raw == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errMissingToken.Error()})
			return
		}
		userID, err := a.Verify(raw)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, userID)))
	})
}

// ActorFrom returns the authenticated user id stored by Middleware.
func ActorFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorKey{}).(int64)
	return id, ok
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
