package common

import (
	"context"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/internal/registry"
	"github.com/warpdl/cookieshare/internal/transfer"
	"github.com/warpdl/cookieshare/pkg/credman/keyring"
)

var testKey = strings.Repeat("ab", keyring.KeySize)

// useMemFs points the environment at an in-memory config dir.
func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	orig := AppFs
	AppFs = fs
	t.Cleanup(func() { AppFs = orig })
	t.Setenv(ConfigDirEnv, "/cfg")
	t.Setenv(ServerEnv, "")
	t.Setenv(PasswordEnv, "")
	return fs
}

type failingKeyring struct{}

func (failingKeyring) GetKey() ([]byte, error) { return nil, errors.New("no keyring") }
func (failingKeyring) SetKey() ([]byte, error) { return nil, errors.New("no keyring") }
func (failingKeyring) DeleteKey() error        { return errors.New("no keyring") }

func TestConfigDir(t *testing.T) {
	t.Setenv(ConfigDirEnv, "")
	orig := userConfigDir
	userConfigDir = func() (string, error) { return "/home/u/.config", nil }
	defer func() { userConfigDir = orig }()

	dir, err := ConfigDir()
	if err != nil || dir != filepath.Join("/home/u/.config", "cookieshare") {
		t.Fatalf("ConfigDir() = %q, %v", dir, err)
	}
	t.Setenv(ConfigDirEnv, "/elsewhere")
	if dir, _ := ConfigDir(); dir != "/elsewhere" {
		t.Fatalf("expected the env override, got %q", dir)
	}
}

func TestOpenEnv_PersistsState(t *testing.T) {
	fs := useMemFs(t)
	t.Setenv(KeyEnv, testKey)

	env, err := OpenEnv(false)
	if err != nil {
		t.Fatalf("OpenEnv: %v", err)
	}
	env.Registry.Add(registry.Ref{ID: "abc", URL: "https://example.com"}, "")
	if err := env.Config.Set(transfer.ServerConfig{URL: "relay.test", Password: "pw", Remember: true}); err != nil {
		t.Fatalf("Config.Set: %v", err)
	}
	jar, err := env.OpenJar("www.example.com")
	if err != nil {
		t.Fatalf("OpenJar: %v", err)
	}
	if err := jar.Set(context.Background(), cookies.Record{Name: "sid", Value: "secret", Domain: ".example.com"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := env.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := afero.ReadFile(fs, "/cfg/state.json")
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if strings.Contains(string(raw), `"pw"`) {
		t.Fatalf("password stored in plain text: %s", raw)
	}

	env, err = OpenEnv(false)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer env.Close()
	if _, ok := env.Registry.Get("abc"); !ok {
		t.Errorf("registry entry lost")
	}
	if cfg := env.Config.Get(); cfg.URL != "https://relay.test" || cfg.Password != "pw" {
		t.Errorf("unexpected config %+v", cfg)
	}
	jar, err = env.OpenJar("example.com")
	if err != nil {
		t.Fatalf("OpenJar: %v", err)
	}
	if jar.Len() != 1 {
		t.Errorf("jar not persisted")
	}
}

func TestOpenEnv_InvalidKey(t *testing.T) {
	useMemFs(t)
	t.Setenv(KeyEnv, "zz")
	if _, err := OpenEnv(false); err == nil || !strings.Contains(err.Error(), KeyEnv) {
		t.Fatalf("expected key error, got %v", err)
	}
}

func TestOpenEnv_FallsBackToKeyFile(t *testing.T) {
	fs := useMemFs(t)
	t.Setenv(KeyEnv, "")
	orig := newKeyring
	newKeyring = func() keyring.Provider { return failingKeyring{} }
	defer func() { newKeyring = orig }()

	env, err := OpenEnv(false)
	if err != nil {
		t.Fatalf("OpenEnv: %v", err)
	}
	env.Close()
	raw, err := afero.ReadFile(fs, "/cfg/cookie.key")
	if err != nil {
		t.Fatalf("key file not written: %v", err)
	}
	if _, err := hex.DecodeString(strings.TrimSpace(string(raw))); err != nil {
		t.Errorf("key file is not hex: %q", raw)
	}
}

func TestEnv_ServerOverrides(t *testing.T) {
	useMemFs(t)
	t.Setenv(KeyEnv, testKey)
	env, err := OpenEnv(false)
	if err != nil {
		t.Fatalf("OpenEnv: %v", err)
	}
	defer env.Close()
	_ = env.Config.Set(transfer.ServerConfig{URL: "https://stored.test"})

	if got := env.Server().Get(); got.URL != "https://stored.test" {
		t.Errorf("expected stored URL, got %+v", got)
	}
	t.Setenv(ServerEnv, "env.test/")
	t.Setenv(PasswordEnv, "envpw")
	got := env.Server().Get()
	if got.URL != "https://env.test" || got.Password != "envpw" {
		t.Errorf("expected env overrides, got %+v", got)
	}
	t.Setenv(ServerEnv, "http://")
	if got := env.Server().Get(); got.URL != "https://stored.test" {
		t.Errorf("invalid override should be ignored, got %+v", got)
	}
}
