package cookies

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRecord_Normalize(t *testing.T) {
	r := Record{Name: "sid", Value: "xyz", Domain: "www.example.com"}.Normalize()
	if r.Domain != ".example.com" {
		t.Errorf("expected domain .example.com, got %q", r.Domain)
	}
	if r.Path != "/" {
		t.Errorf("expected default path, got %q", r.Path)
	}
	if r.SameSite != SameSiteLax {
		t.Errorf("expected default SameSite Lax, got %q", r.SameSite)
	}

	kept := Record{Name: "a", Value: "b", Domain: "example.com", Path: "/app", SameSite: SameSiteStrict}.Normalize()
	if kept.Path != "/app" || kept.SameSite != SameSiteStrict {
		t.Errorf("explicit fields overwritten: %+v", kept)
	}
}

func TestRecord_UnmarshalBrowserShape(t *testing.T) {
	raw := `{"name":"sid","value":"xyz","domain":"example.com","path":"/","secure":true,
		"httpOnly":true,"sameSite":"no_restriction","hostOnly":false,"session":false,
		"expirationDate":1767225600.5}`
	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.SameSite != SameSiteNone {
		t.Errorf("expected SameSite None, got %q", r.SameSite)
	}
	if !r.Secure || !r.HttpOnly {
		t.Errorf("flags lost: %+v", r)
	}
	if r.Expires().Unix() != 1767225600 {
		t.Errorf("unexpected expiry %v", r.Expires())
	}
}

func TestRecord_MarshalOmitsSessionExpiry(t *testing.T) {
	b, err := json.Marshal(Record{Name: "sid", Value: "xyz", Domain: ".example.com"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if _, ok := m["expirationDate"]; ok {
		t.Errorf("session cookie should omit expirationDate: %s", b)
	}
}

func TestRecord_SessionAndExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	if !(Record{}).Session() {
		t.Error("zero expiration should be a session cookie")
	}
	if (Record{}).Expired(now) {
		t.Error("session cookies never expire")
	}
	past := Record{ExpirationDate: float64(now.Add(-time.Hour).Unix())}
	if !past.Expired(now) {
		t.Error("expected past cookie to be expired")
	}
}

func TestRecord_Usable(t *testing.T) {
	if (Record{Name: "a"}).Usable() {
		t.Error("empty value should not be usable")
	}
	if (Record{Value: "a"}).Usable() {
		t.Error("empty name should not be usable")
	}
	if !(Record{Name: "a", Value: "b"}).Usable() {
		t.Error("expected usable record")
	}
}

func TestParseSameSite(t *testing.T) {
	tests := map[string]SameSite{
		"lax":            SameSiteLax,
		"Strict":         SameSiteStrict,
		"none":           SameSiteNone,
		"no_restriction": SameSiteNone,
		"unspecified":    SameSiteLax,
		"":               SameSiteLax,
	}
	for in, want := range tests {
		if got := ParseSameSite(in); got != want {
			t.Errorf("ParseSameSite(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildCookieHeader(t *testing.T) {
	got := BuildCookieHeader([]Record{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}})
	if got != "a=1; b=2" {
		t.Errorf("unexpected header %q", got)
	}
	if BuildCookieHeader(nil) != "" {
		t.Error("expected empty header for no records")
	}
}
