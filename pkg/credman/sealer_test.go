package credman

import (
	"bytes"
	"testing"

	"github.com/warpdl/cookieshare/internal/kvstore"
	"github.com/warpdl/cookieshare/internal/transfer"
)

func TestSealer_RoundTrip(t *testing.T) {
	s := NewSealer(testKey)
	sealed, err := s.Seal("hunter2")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if sealed == "hunter2" {
		t.Fatal("password not sealed")
	}
	plain, err := s.Open(sealed)
	if err != nil || plain != "hunter2" {
		t.Fatalf("Open = %q, %v", plain, err)
	}
	if _, err := NewSealer(bytes.Repeat([]byte{9}, 32)).Open(sealed); err == nil {
		t.Fatal("expected failure with another key")
	}
}

func TestSealer_WithConfigStore(t *testing.T) {
	store := kvstore.NewMemStore().Context()
	cs := transfer.NewConfigStore(store, NewSealer(testKey), nil)
	if err := cs.Set(transfer.ServerConfig{URL: "relay.example.com", Password: "hunter2", Remember: true}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	raw, _, _ := store.Get(transfer.ConfigKey)
	if bytes.Contains(raw, []byte("hunter2")) {
		t.Fatalf("password stored in clear text: %s", raw)
	}
	if got := transfer.NewConfigStore(store, NewSealer(testKey), nil).Get(); got.Password != "hunter2" {
		t.Fatalf("password not recovered: %+v", got)
	}
}

func TestDeriveKeys(t *testing.T) {
	keys, err := DeriveKeys(testKey)
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}
	if len(keys.Jar) != 32 || bytes.Equal(keys.Jar, keys.Password) {
		t.Fatalf("unexpected keys %+v", keys)
	}
	if _, err := DeriveKeys([]byte{1}); err == nil {
		t.Fatal("expected error for a short master key")
	}
}
