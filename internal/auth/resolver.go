package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"trivia-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Resolver maps a request to the caller's identity. A request without credentials
// resolves to the anonymous identity; invalid credentials are an error.
type Resolver interface {
	Resolve(r *http.Request) (domain.Identity, error)
}

// New returns a JWT resolver when secret is set, otherwise a header resolver.
func New(secret string) Resolver {
	if secret == "" {
		return HeaderResolver{}
	}
	return NewJWTResolver(secret)
}

// HeaderResolver trusts X-User-ID and X-User-Name as set by an upstream gateway.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(r *http.Request) (domain.Identity, error) {
	id := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if id == "" {
		return domain.Identity{}, nil
	}
	name := strings.TrimSpace(r.Header.Get("X-User-Name"))
	if name == "" {
		name = id
	}
	return domain.Identity{ID: id, Name: name}, nil
}

// Claims carried by trivia tokens.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// JWTResolver validates HMAC-signed bearer tokens. Browsers cannot set headers on
// websocket upgrades, so a token query parameter is accepted too.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

func (j *JWTResolver) Resolve(r *http.Request) (domain.Identity, error) {
	raw := bearerToken(r)
	if raw == "" {
		return domain.Identity{}, nil
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Identity{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: token without subject", domain.ErrUnauthenticated)
	}
	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	return domain.Identity{ID: claims.Subject, Name: name}, nil
}

// Issue signs a token for the identity, valid for ttl.
func (j *JWTResolver) Issue(who domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: who.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   who.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}
