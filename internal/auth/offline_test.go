package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestOfflineUUIDIsDeterministic(t *testing.T) {
	a := OfflineUUID("Alice")
	b := OfflineUUID("Alice")
	if a != b {
		t.Fatalf("same name must derive the same id: %s != %s", a, b)
	}
}

func TestOfflineUUIDDistinguishesNames(t *testing.T) {
	if OfflineUUID("Alice") == OfflineUUID("Bob") {
		t.Fatalf("different names must not collide")
	}
	// Derivation is case-sensitive even when nickname policy is not.
	if OfflineUUID("Alice") == OfflineUUID("alice") {
		t.Fatalf("derivation must be case-sensitive")
	}
}

func TestOfflineUUIDVersionAndVariant(t *testing.T) {
	id := OfflineUUID("Alice")
	if id.Version() != 3 {
		t.Fatalf("expected version 3, got %d", id.Version())
	}
	if id.Variant() != uuid.RFC4122 {
		t.Fatalf("expected RFC 4122 variant, got %v", id.Variant())
	}
}
