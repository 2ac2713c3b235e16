package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/cookieshare/cmd/common"
	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/internal/registry"
	"github.com/warpdl/cookieshare/internal/transfer"
)

// fakeRelay keeps the bundles sent to it. When password is set, receive
// and listing require it in X-Admin-Password.
type fakeRelay struct {
	*httptest.Server
	password string

	mu      sync.Mutex
	bundles map[string]transfer.Bundle
}

func newFakeRelay(t *testing.T, password string) *fakeRelay {
	t.Helper()
	r := &fakeRelay{password: password, bundles: make(map[string]transfer.Bundle)}
	r.Server = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.Close)
	return r
}

func (r *fakeRelay) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.URL.Path == "/send-cookies" {
		var b transfer.Bundle
		if err := json.NewDecoder(req.Body).Decode(&b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		r.bundles[b.ID] = b
		_, _ = w.Write([]byte(`{"success":true,"message":"stored"}`))
		return
	}
	if r.password != "" && req.Header.Get("X-Admin-Password") != r.password {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	switch {
	case strings.HasPrefix(req.URL.Path, "/receive-cookies/"):
		b, ok := r.bundles[strings.TrimPrefix(req.URL.Path, "/receive-cookies/")]
		if !ok {
			http.NotFound(w, req)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "cookies": b.Cookies})
	case strings.HasPrefix(req.URL.Path, "/admin/list-cookies-by-host/"):
		host := strings.TrimPrefix(req.URL.Path, "/admin/list-cookies-by-host/")
		refs := []registry.Ref{}
		for _, b := range r.bundles {
			if strings.HasSuffix(b.URL, host) {
				refs = append(refs, registry.Ref{ID: b.ID, URL: b.URL})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "cookies": refs})
	default:
		http.NotFound(w, req)
	}
}

func (r *fakeRelay) bundle(id string) (transfer.Bundle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bundles[id]
	return b, ok
}

// setupCLI points every command at an in-memory config dir with a fixed key.
func setupCLI(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	origFs, origOut, origSleep, origShell := common.AppFs, progressOutput, sleep, runShell
	common.AppFs = fs
	progressOutput = io.Discard
	sleep = func(time.Duration) {}
	t.Cleanup(func() {
		common.AppFs = origFs
		progressOutput = origOut
		sleep = origSleep
		runShell = origShell
	})
	t.Setenv(common.ConfigDirEnv, "/cfg")
	t.Setenv(common.KeyEnv, strings.Repeat("5a", 32))
	t.Setenv(common.ServerEnv, "")
	t.Setenv(common.PasswordEnv, "")
	return fs
}

// withTestEnv opens the environment the commands use.
func withTestEnv(t *testing.T, fn func(env *common.Env)) {
	t.Helper()
	env, err := common.OpenEnv(false)
	if err != nil {
		t.Fatalf("OpenEnv: %v", err)
	}
	defer env.Close()
	fn(env)
}

func seedJar(t *testing.T, host string, records ...cookies.Record) {
	t.Helper()
	withTestEnv(t, func(env *common.Env) {
		jar, err := env.OpenJar(host)
		if err != nil {
			t.Fatalf("OpenJar: %v", err)
		}
		for _, r := range records {
			if err := jar.Set(context.Background(), r); err != nil {
				t.Fatalf("Set: %v", err)
			}
		}
	})
}

func jarRecords(t *testing.T, host string) []cookies.Record {
	t.Helper()
	var out []cookies.Record
	withTestEnv(t, func(env *common.Env) {
		jar, err := env.OpenJar(host)
		if err != nil {
			t.Fatalf("OpenJar: %v", err)
		}
		if out, err = jar.List(context.Background()); err != nil {
			t.Fatalf("List: %v", err)
		}
	})
	return out
}

// run executes the CLI and returns what it printed.
func run(t *testing.T, args ...string) string {
	t.Helper()
	var err error
	out := captureOutput(func() {
		err = Execute(append([]string{"cookieshare"}, args...), BuildArgs{Version: "1.0.0", BuildType: "test"})
	})
	if err != nil {
		t.Fatalf("cookieshare %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	f()
	w.Close()
	os.Stdout = old
	out := <-done
	r.Close()
	return out
}

func assertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}
