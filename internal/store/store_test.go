package store

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenAndPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestGenerateAPIKey(t *testing.T) {
	plaintext, hash, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if len(plaintext) != 3+32 {
		t.Errorf("plaintext length = %d, want %d (%q)", len(plaintext), 3+32, plaintext)
	}
	if plaintext[:3] != "tp_" {
		t.Errorf("expected tp_ prefix, got %q", plaintext)
	}
	if hash != HashAPIKey(plaintext) {
		t.Error("hash does not match HashAPIKey(plaintext)")
	}

	// Uniqueness
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		k, _, err := GenerateAPIKey()
		if err != nil {
			t.Fatal(err)
		}
		if seen[k] {
			t.Fatalf("duplicate api key: %s", k)
		}
		seen[k] = true
	}
}
