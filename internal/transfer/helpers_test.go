package transfer

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/warpdl/cookieshare/internal/cell"
	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/internal/kvstore"
	"github.com/warpdl/cookieshare/internal/registry"
)

var fixedNow = time.Unix(1_700_000_000, 0)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

type seenRequest struct {
	Method   string
	Path     string
	Password string
	Header   http.Header
	Body     []byte
}

// fakeRelay is an in-memory relay speaking the cookie-share HTTP API.
type fakeRelay struct {
	*httptest.Server

	mu       sync.Mutex
	bundles  map[string]Bundle
	refs     []registry.Ref
	requests []seenRequest
	// receiveBody overrides the /receive-cookies response when set.
	receiveBody string
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	fr := &fakeRelay{bundles: make(map[string]Bundle)}
	fr.Server = httptest.NewServer(http.HandlerFunc(fr.serve))
	t.Cleanup(fr.Close)
	return fr
}

func (fr *fakeRelay) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.requests = append(fr.requests, seenRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		Password: r.Header.Get("X-Admin-Password"),
		Header:   r.Header.Clone(),
		Body:     body,
	})

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/send-cookies":
		var b Bundle
		if err := json.Unmarshal(body, &b); err != nil {
			http.Error(w, "bad bundle", http.StatusBadRequest)
			return
		}
		fr.bundles[b.ID] = b
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "stored"})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/receive-cookies/"):
		if fr.receiveBody != "" {
			_, _ = w.Write([]byte(fr.receiveBody))
			return
		}
		b, ok := fr.bundles[strings.TrimPrefix(r.URL.Path, "/receive-cookies/")]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "cookies": b.Cookies})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/admin/list-cookies-by-host/"):
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "cookies": fr.refs})
	default:
		http.NotFound(w, r)
	}
}

func (fr *fakeRelay) seen() []seenRequest {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return append([]seenRequest(nil), fr.requests...)
}

// afterRecorder captures the scheduled reload instead of running a timer.
type afterRecorder struct {
	delays []time.Duration
	fns    []func()
}

func (a *afterRecorder) after(d time.Duration, fn func()) {
	a.delays = append(a.delays, d)
	a.fns = append(a.fns, fn)
}

func configCell(url, password string) *cell.Cell[ServerConfig] {
	return cell.New(kvstore.NewMemStore().Context(), ConfigKey, ServerConfig{URL: url, Password: password})
}

func exampleCookie(name, value string) cookies.Record {
	return cookies.Record{Name: name, Value: value, Domain: "example.com"}
}

func ioNopCloser(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}
