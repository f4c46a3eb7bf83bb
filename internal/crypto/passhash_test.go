package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	a, err := RandBytes(32)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	b, _ := RandBytes(32)
	if len(a) != 32 || bytes.Equal(a, b) {
		t.Fatalf("len=%d equal=%v", len(a), bytes.Equal(a, b))
	}
}

func TestNewPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, salt, err := NewPassword("grader-admin-2024")
	if err != nil {
		t.Fatalf("NewPassword: %v", err)
	}
	if len(salt) != saltLen || len(hash) != int(argonKeyLen) {
		t.Fatalf("salt=%d hash=%d", len(salt), len(hash))
	}
	if !VerifyPassword([]byte("grader-admin-2024"), salt, hash) {
		t.Fatalf("expected match")
	}
	if VerifyPassword([]byte("grader-admin-2025"), salt, hash) {
		t.Fatalf("expected mismatch on wrong password")
	}
	if VerifyPassword([]byte("grader-admin-2024"), []byte("other-salt-00000"), hash) {
		t.Fatalf("expected mismatch on wrong salt")
	}
}

func TestNewPassword_SaltsDiffer(t *testing.T) {
	t.Parallel()

	h1, s1, _ := NewPassword("same")
	h2, s2, _ := NewPassword("same")
	if bytes.Equal(s1, s2) || bytes.Equal(h1, h2) {
		t.Fatalf("two hashes of the same password must differ")
	}
}

func TestNewPassword_Empty(t *testing.T) {
	if _, _, err := NewPassword(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("want ErrEmptyPassword, got %v", err)
	}
}

func TestBurnVerify_AlwaysFalse(t *testing.T) {
	if BurnVerify([]byte("-")) {
		t.Fatalf("BurnVerify must never succeed")
	}
}
