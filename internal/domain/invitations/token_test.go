package invitations

import (
	"errors"
	"testing"
	"time"
)

func TestTokenSignerRoundTrip(t *testing.T) {
	s := NewTokenSigner([]byte("test-secret"))

	expires := time.Now().Add(time.Hour)
	token, err := s.Sign("inv-1", "alguien@corr.ec", expires)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	id, err := s.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id != "inv-1" {
		t.Fatalf("expected invitation id inv-1, got %q", id)
	}
}

func TestTokenSignerRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenSigner([]byte("secret-a")).Sign("inv-1", "x@corr.ec", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewTokenSigner([]byte("secret-b")).Validate(token); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken with wrong secret, got %v", err)
	}
}

func TestTokenSignerRejectsExpired(t *testing.T) {
	s := NewTokenSigner([]byte("test-secret"))

	token, err := s.Sign("inv-1", "x@corr.ec", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// dos horas después el token ya venció
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.Validate(token); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken after expiry, got %v", err)
	}
}

func TestTokenSignerRejectsGarbage(t *testing.T) {
	s := NewTokenSigner([]byte("test-secret"))

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := s.Validate(token); !errors.Is(err, ErrBadToken) {
			t.Errorf("token %q: expected ErrBadToken, got %v", token, err)
		}
	}
}

func TestTokenSignerWithoutSecret(t *testing.T) {
	s := NewTokenSigner(nil)

	if _, err := s.Sign("inv-1", "x@corr.ec", time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected error signing without secret")
	}
	if _, err := s.Validate("whatever"); err == nil {
		t.Fatal("expected error validating without secret")
	}
}
