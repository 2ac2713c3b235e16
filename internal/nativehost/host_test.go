package nativehost

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/internal/kvstore"
	"github.com/warpdl/cookieshare/internal/registry"
	"github.com/warpdl/cookieshare/internal/transfer"
	"github.com/warpdl/cookieshare/pkg/logger"
)

// relayStub stores bundles sent to it and serves them back.
type relayStub struct {
	mu      sync.Mutex
	bundles map[string]transfer.Bundle
}

func newRelayStub(t *testing.T) *httptest.Server {
	t.Helper()
	rs := &relayStub{bundles: make(map[string]transfer.Bundle)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		defer rs.mu.Unlock()
		switch {
		case r.URL.Path == "/send-cookies":
			var b transfer.Bundle
			_ = json.NewDecoder(r.Body).Decode(&b)
			rs.bundles[b.ID] = b
			_, _ = w.Write([]byte(`{"success":true}`))
		case strings.HasPrefix(r.URL.Path, "/receive-cookies/"):
			b, ok := rs.bundles[strings.TrimPrefix(r.URL.Path, "/receive-cookies/")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "cookies": b.Cookies})
		case strings.HasPrefix(r.URL.Path, "/admin/list-cookies-by-host/"):
			var refs []registry.Ref
			for _, b := range rs.bundles {
				refs = append(refs, registry.Ref{ID: b.ID, URL: b.URL})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "cookies": refs})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testHost struct {
	*Host
	jars map[string]*cookies.MemJar
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	store := kvstore.NewMemStore()
	th := &testHost{jars: make(map[string]*cookies.MemJar)}
	th.Host = NewHost(Backend{
		Version:  "1.2.3",
		Registry: registry.New(store.Context(), logger.NewNopLogger()),
		Config:   transfer.NewConfigStore(store.Context(), nil, nil),
		OpenJar: func(host string) (cookies.Jar, error) {
			rd := cookies.RegistrableDomain(host)
			if th.jars[rd] == nil {
				th.jars[rd] = cookies.NewMemJar()
			}
			return th.jars[rd], nil
		},
		NewID: func() (string, error) { return "generated1", nil },
	}, logger.NewNopLogger())
	return th
}

// call runs the host over the given requests and returns its responses.
func (th *testHost) call(t *testing.T, reqs ...Request) []Response {
	t.Helper()
	var in bytes.Buffer
	for _, r := range reqs {
		b, _ := json.Marshal(r)
		if err := WriteMessage(&in, b); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}
	var out bytes.Buffer
	th.stdin, th.stdout = &in, &out
	if err := th.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var resps []Response
	for {
		msg, err := ReadMessage(&out)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		var r Response
		if err := json.Unmarshal(msg, &r); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		resps = append(resps, r)
	}
	if len(resps) != len(reqs) {
		t.Fatalf("expected %d responses, got %d", len(reqs), len(resps))
	}
	return resps
}

func msg(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func decodeResult(t *testing.T, r Response, v any) {
	t.Helper()
	if !r.Ok {
		t.Fatalf("request %d failed: %s (%s)", r.ID, r.Error, r.Kind)
	}
	b, _ := json.Marshal(r.Result)
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func TestHost_Version(t *testing.T) {
	th := newTestHost(t)
	resps := th.call(t, Request{ID: 1, Method: "version"})
	var v map[string]string
	decodeResult(t, resps[0], &v)
	if resps[0].ID != 1 || v["version"] != "1.2.3" {
		t.Errorf("unexpected response %+v", resps[0])
	}
}

func TestHost_UnknownMethodDoesNotStopLoop(t *testing.T) {
	th := newTestHost(t)
	resps := th.call(t,
		Request{ID: 1, Method: "download"},
		Request{ID: 2, Method: "saved.remove", Message: json.RawMessage(`{"id":1}`)},
		Request{ID: 3, Method: "version"},
	)
	if resps[0].Ok || !strings.Contains(resps[0].Error, "unknown method") {
		t.Errorf("unexpected response %+v", resps[0])
	}
	if resps[1].Ok || !strings.Contains(resps[1].Error, "invalid saved.remove params") {
		t.Errorf("unexpected response %+v", resps[1])
	}
	if !resps[2].Ok {
		t.Errorf("loop stopped after errors: %+v", resps[2])
	}
}

func TestHost_InvalidJSON(t *testing.T) {
	th := newTestHost(t)
	var in, out bytes.Buffer
	_ = WriteMessage(&in, []byte(`{not json`))
	th.stdin, th.stdout = &in, &out
	if err := th.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	raw, err := ReadMessage(&out)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var r Response
	_ = json.Unmarshal(raw, &r)
	if r.Ok || r.ID != 0 || !strings.Contains(r.Error, "invalid request") {
		t.Errorf("unexpected response %+v", r)
	}
}

func TestHost_SendAndReceiveInline(t *testing.T) {
	relay := newRelayStub(t)
	th := newTestHost(t)

	resps := th.call(t,
		Request{ID: 1, Method: "send", Message: msg(TransferParams{
			Relay:   relay.URL,
			Host:    "www.example.com",
			Note:    "laptop",
			Cookies: []cookies.Record{{Name: "sid", Value: "xyz", Domain: "www.example.com"}},
		})},
		Request{ID: 2, Method: "receive", Message: msg(TransferParams{
			ID:      "generated1",
			Relay:   relay.URL,
			Host:    "example.com",
			Cookies: []cookies.Record{{Name: "old", Value: "1", Domain: ".example.com"}},
		})},
		Request{ID: 3, Method: "saved.list"},
	)

	var sent TransferResult
	decodeResult(t, resps[0], &sent)
	if sent.ID != "generated1" || sent.URL != "https://example.com" || sent.Count != 1 {
		t.Errorf("unexpected send result %+v", sent)
	}

	var got TransferResult
	decodeResult(t, resps[1], &got)
	if got.Count != 1 || got.Cleared != 1 || !got.Reload || got.ReloadAfterMs != 500 {
		t.Errorf("unexpected receive result %+v", got)
	}
	if len(got.Cookies) != 1 || got.Cookies[0].Name != "sid" || got.Cookies[0].Domain != ".example.com" {
		t.Errorf("unexpected resulting jar %+v", got.Cookies)
	}
	if len(got.Messages) == 0 || got.Messages[len(got.Messages)-1].Level != "success" {
		t.Errorf("expected notifications, got %+v", got.Messages)
	}

	var saved []registry.Entry
	decodeResult(t, resps[2], &saved)
	if len(saved) != 1 || saved[0].ID != "generated1" || saved[0].Note != "laptop" {
		t.Errorf("send should save the id once, got %+v", saved)
	}
}

func TestHost_ReceiveStoredJarAndErrorKind(t *testing.T) {
	relay := newRelayStub(t)
	th := newTestHost(t)
	th.jars["example.com"] = cookies.NewMemJar(cookies.Record{Name: "sid", Value: "xyz", Domain: ".example.com"})

	resps := th.call(t,
		Request{ID: 1, Method: "send", Message: msg(TransferParams{ID: "fixed", Relay: relay.URL, Host: "example.com"})},
		Request{ID: 2, Method: "receive", Message: msg(TransferParams{ID: "fixed", Relay: relay.URL, Host: "example.org"})},
		Request{ID: 3, Method: "receive", Message: msg(TransferParams{ID: "missing", Relay: relay.URL, Host: "example.org"})},
		Request{ID: 4, Method: "send", Message: msg(TransferParams{ID: "x", Relay: relay.URL, Host: "empty.net"})},
	)
	if !resps[0].Ok || !resps[1].Ok {
		t.Fatalf("unexpected failures %+v %+v", resps[0], resps[1])
	}
	if sid, ok := th.jars["example.org"].Lookup("sid"); !ok || sid.Domain != ".example.com" {
		t.Errorf("stored jar not updated: %+v", sid)
	}
	if resps[2].Ok || resps[2].Kind != "HttpStatusError" {
		t.Errorf("expected HttpStatusError, got %+v", resps[2])
	}
	if resps[3].Ok || resps[3].Kind != "NothingToSend" {
		t.Errorf("expected NothingToSend, got %+v", resps[3])
	}
}

func TestHost_ReceiveNothingImportedReportsClearedJar(t *testing.T) {
	relay := newRelayStub(t)
	th := newTestHost(t)

	resps := th.call(t,
		Request{ID: 1, Method: "send", Message: msg(TransferParams{
			ID: "xsrf", Relay: relay.URL, Host: "example.com",
			Cookies: []cookies.Record{{Name: "XSRF-TOKEN", Value: "new", Domain: ".example.com"}},
		})},
		Request{ID: 2, Method: "receive", Message: msg(TransferParams{
			ID: "xsrf", Relay: relay.URL, Host: "example.com",
			Cookies: []cookies.Record{
				{Name: "old", Value: "1", Domain: ".example.com"},
				{Name: "XSRF-TOKEN", Value: "orig", Domain: ".example.com"},
			},
		})},
		Request{ID: 3, Method: "receive", Message: msg(TransferParams{Relay: relay.URL, Host: "example.com"})},
	)
	if !resps[0].Ok {
		t.Fatalf("send failed: %+v", resps[0])
	}
	if resps[1].Ok || resps[1].Kind != "NoCookiesImported" {
		t.Fatalf("expected NoCookiesImported, got %+v", resps[1])
	}
	b, _ := json.Marshal(resps[1].Result)
	var left TransferResult
	if err := json.Unmarshal(b, &left); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !left.Replaced || len(left.Cookies) != 1 || left.Cookies[0].Name != "XSRF-TOKEN" || left.Cookies[0].Value != "orig" {
		t.Errorf("failed import must still report the cleared jar, got %+v", left)
	}
	if resps[2].Ok || resps[2].Kind != "MissingId" || resps[2].Result != nil {
		t.Errorf("expected MissingId without a result, got %+v", resps[2])
	}
}

func TestHost_ListAndConfig(t *testing.T) {
	relay := newRelayStub(t)
	th := newTestHost(t)

	resps := th.call(t,
		Request{ID: 1, Method: "list", Message: msg(ListParams{Host: "example.com"})},
		Request{ID: 2, Method: "config.set", Message: msg(ConfigParams{URL: relay.URL + "/", Password: "pw"})},
		Request{ID: 3, Method: "send", Message: msg(TransferParams{
			ID: "a", Host: "example.com",
			Cookies: []cookies.Record{{Name: "sid", Value: "1"}},
		})},
		Request{ID: 4, Method: "list", Message: msg(ListParams{Host: "www.example.com"})},
		Request{ID: 5, Method: "config.get"},
	)
	if resps[0].Ok || resps[0].Kind != "NotConfigured" {
		t.Errorf("expected NotConfigured, got %+v", resps[0])
	}
	var view ConfigView
	decodeResult(t, resps[1], &view)
	if view.URL != relay.URL || !view.HasPassword {
		t.Errorf("unexpected config %+v", view)
	}
	var list ListResult
	decodeResult(t, resps[3], &list)
	if len(list.Cookies) != 1 || list.Cookies[0].ID != "a" || list.LastRefresh.IsZero() {
		t.Errorf("unexpected list %+v", list)
	}
	raw, _ := json.Marshal(resps[4].Result)
	if strings.Contains(string(raw), "pw") {
		t.Errorf("password leaked to the extension: %s", raw)
	}
}

func TestHost_SavedOperations(t *testing.T) {
	th := newTestHost(t)
	note := "work"
	pinned := true
	resps := th.call(t,
		Request{ID: 1, Method: "saved.add", Message: msg(map[string]string{"id": "a", "url": "https://a.com"})},
		Request{ID: 2, Method: "saved.add", Message: msg(map[string]string{"id": "b", "url": "https://b.com"})},
		Request{ID: 3, Method: "saved.add", Message: msg(map[string]string{"id": "a"})},
		Request{ID: 4, Method: "saved.update", Message: msg(SavedParams{ID: "b", Note: &note, Pinned: &pinned})},
		Request{ID: 5, Method: "saved.reorder", Message: msg(ReorderParams{From: 1, To: 0})},
		Request{ID: 6, Method: "saved.reorder", Message: msg(ReorderParams{From: 0, To: 5})},
		Request{ID: 7, Method: "saved.touch", Message: msg(map[string]string{"id": "a"})},
		Request{ID: 8, Method: "saved.remove", Message: msg(map[string]string{"id": "a"})},
		Request{ID: 9, Method: "saved.add", Message: msg(map[string]string{})},
		Request{ID: 10, Method: "saved.list"},
	)
	var added map[string]bool
	decodeResult(t, resps[2], &added)
	if added["added"] {
		t.Errorf("duplicate add reported success")
	}
	var order []registry.Entry
	decodeResult(t, resps[4], &order)
	if len(order) != 2 || order[0].ID != "b" || order[0].Note != "work" || !order[0].Pinned {
		t.Errorf("unexpected order %+v", order)
	}
	if resps[5].Ok {
		t.Errorf("out-of-range reorder should fail")
	}
	if resps[8].Ok || resps[8].Kind != "MissingId" || !strings.Contains(resps[8].Error, "id is required") {
		t.Errorf("unexpected response %+v", resps[8])
	}
	var final []registry.Entry
	decodeResult(t, resps[9], &final)
	if len(final) != 1 || final[0].ID != "b" || final[0].Order != 0 {
		t.Errorf("unexpected final list %+v", final)
	}
}

func TestHost_StopsOnContextDone(t *testing.T) {
	th := newTestHost(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	th.stdin, th.stdout = &bytes.Buffer{}, io.Discard
	if err := th.Run(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
