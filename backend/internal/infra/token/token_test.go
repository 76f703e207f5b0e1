package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestIssueAndParse(t *testing.T) {
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	manager := NewJWTManager("secret").WithClock(func() time.Time { return now })

	issued, err := manager.Issue(Subject{UserID: 7, Username: "FO"}, TypeUser, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.TokenID == "" || issued.ExpiresAt == nil {
		t.Fatalf("expected jti and expiry, got %+v", issued)
	}

	claims, err := manager.Parse(issued.Token, false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "FO" || claims.IsAdmin || claims.Type != TypeUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.TokenID != issued.TokenID {
		t.Fatalf("jti mismatch")
	}
}

func TestParseExpiredToken(t *testing.T) {
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	manager := NewJWTManager("secret").WithClock(func() time.Time { return now })

	issued, err := manager.Issue(Subject{UserID: 1, Username: "admin", IsAdmin: true}, TypeAdmin, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := manager.Parse(issued.Token, false); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	claims, err := manager.Parse(issued.Token, true)
	if err != nil {
		t.Fatalf("parse ignoring expiry: %v", err)
	}
	if !claims.IsAdmin {
		t.Fatalf("expected admin claim")
	}
}

func TestIssueWithoutExpiry(t *testing.T) {
	manager := NewJWTManager("secret")
	issued, err := manager.Issue(Subject{UserID: 2, Username: "FO"}, TypeUser, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.ExpiresAt != nil {
		t.Fatalf("expected no expiry")
	}
	claims, err := manager.Parse(issued.Token, false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ExpiresAt != nil {
		t.Fatalf("expected no exp claim")
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	issued, _ := NewJWTManager("one").Issue(Subject{UserID: 1, Username: "admin"}, TypeAdmin, time.Hour)
	if _, err := NewJWTManager("two").Parse(issued.Token, false); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if _, err := NewJWTManager("two").Parse("not-a-jwt", true); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	store := NewMemoryRevocationStore()
	store.now = func() time.Time { return now }

	exp := now.Add(time.Minute)
	if err := store.Revoke(ctx, "jti-1", &exp); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := store.IsRevoked(ctx, "jti-1"); !revoked {
		t.Fatalf("expected revoked")
	}
	now = now.Add(2 * time.Minute)
	if revoked, _ := store.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatalf("expected revocation to lapse with the token")
	}
}

func TestRedisRevocationStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisRevocationStore(client, "")
	if err := store.Revoke(ctx, "abc", nil); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, err := store.IsRevoked(ctx, "abc"); err != nil || !revoked {
		t.Fatalf("expected revoked, err=%v", err)
	}
	if ttl := mr.TTL(defaultRevocationPrefix + ":abc"); ttl != maxRevocationTTL {
		t.Fatalf("unexpected ttl %s", ttl)
	}
	if revoked, _ := store.IsRevoked(ctx, "other"); revoked {
		t.Fatalf("unexpected revocation")
	}
}
