package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-service/internal/domain"
)

func TestHeaderResolver(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	who, err := HeaderResolver{}.Resolve(req)
	if err != nil || !who.Anonymous() {
		t.Fatalf("expected anonymous, got %+v err=%v", who, err)
	}

	req.Header.Set("X-User-ID", "alice")
	who, _ = HeaderResolver{}.Resolve(req)
	if who.ID != "alice" || who.Name != "alice" {
		t.Fatalf("expected name to default to id, got %+v", who)
	}
	req.Header.Set("X-User-Name", "Alice")
	who, _ = HeaderResolver{}.Resolve(req)
	if who.Name != "Alice" {
		t.Fatalf("expected Alice, got %+v", who)
	}
}

func TestJWTResolver(t *testing.T) {
	r := NewJWTResolver("secret")
	token, err := r.Issue(domain.Identity{ID: "alice", Name: "Alice"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	who, err := r.Resolve(req)
	if err != nil || who.ID != "alice" || who.Name != "Alice" {
		t.Fatalf("expected alice, got %+v err=%v", who, err)
	}

	ws := httptest.NewRequest("GET", "/ws?token="+token, nil)
	if who, err := r.Resolve(ws); err != nil || who.ID != "alice" {
		t.Fatalf("expected query token to resolve, got %+v err=%v", who, err)
	}

	anon := httptest.NewRequest("GET", "/", nil)
	if who, err := r.Resolve(anon); err != nil || !who.Anonymous() {
		t.Fatalf("expected anonymous, got %+v err=%v", who, err)
	}
}

func TestJWTResolverRejectsBadTokens(t *testing.T) {
	r := NewJWTResolver("secret")
	forged, _ := NewJWTResolver("other").Issue(domain.Identity{ID: "mallory"}, time.Hour)
	expired, _ := r.Issue(domain.Identity{ID: "alice"}, -time.Minute)

	for name, token := range map[string]string{"forged": forged, "expired": expired, "garbage": "not-a-token"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		if _, err := r.Resolve(req); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
	}
}

func TestNewPicksResolver(t *testing.T) {
	if _, ok := New("").(HeaderResolver); !ok {
		t.Fatalf("expected header resolver without secret")
	}
	if _, ok := New("s").(*JWTResolver); !ok {
		t.Fatalf("expected jwt resolver with secret")
	}
}
