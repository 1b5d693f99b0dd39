package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/counseling-clinic/internal/authz"
	"github.com/wolfman30/counseling-clinic/internal/http/respond"
)

// ActorClaims is the token payload issued by the identity provider.
type ActorClaims struct {
	jwt.RegisteredClaims
	Role        string `json:"role"`
	ClientID    string `json:"client_id,omitempty"`
	PersonnelID string `json:"personnel_id,omitempty"`
}

// Actor converts verified claims into the authorization actor.
func (c ActorClaims) Actor() (authz.Actor, error) {
	if strings.TrimSpace(c.Subject) == "" {
		return authz.Actor{}, errors.New("token has no subject")
	}
	role, err := authz.ParseRole(c.Role)
	if err != nil {
		return authz.Actor{}, err
	}
	return authz.Actor{
		UserID:      c.Subject,
		Role:        role,
		ClientID:    c.ClientID,
		PersonnelID: c.PersonnelID,
	}, nil
}

// ActorAuth verifies an HMAC-signed bearer token and attaches the actor to the request context.
func ActorAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				respond.Error(w, http.StatusUnauthorized, "auth disabled")
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				respond.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := ActorClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				respond.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}
			actor, err := claims.Actor()
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(authz.WithActor(r.Context(), actor)))
		})
	}
}

// SignActorToken issues a token for actor. Used by local tooling and tests.
func SignActorToken(secret string, actor authz.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:        string(actor.Role),
		ClientID:    actor.ClientID,
		PersonnelID: actor.PersonnelID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
