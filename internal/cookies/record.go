package cookies

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SameSite is the SameSite attribute of a cookie.
type SameSite string

const (
	SameSiteLax    SameSite = "Lax"
	SameSiteStrict SameSite = "Strict"
	SameSiteNone   SameSite = "None"
)

// DefaultPath is applied to records that carry no path.
const DefaultPath = "/"

// ParseSameSite maps the spellings used by browsers ("lax", "no_restriction",
// "unspecified", ...) onto SameSite. Unknown values default to Lax.
func ParseSameSite(s string) SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return SameSiteStrict
	case "none", "no_restriction":
		return SameSiteNone
	default:
		return SameSiteLax
	}
}

// UnmarshalJSON accepts any browser spelling of the attribute.
func (s *SameSite) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("sameSite: %w", err)
	}
	*s = ParseSameSite(raw)
	return nil
}

// Record is one browser cookie as exchanged with the relay.
// The JSON layout matches the cookie objects produced by browser cookie APIs.
type Record struct {
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	Domain   string   `json:"domain"`
	Path     string   `json:"path,omitempty"`
	Secure   bool     `json:"secure"`
	HttpOnly bool     `json:"httpOnly"`
	SameSite SameSite `json:"sameSite,omitempty"`
	// ExpirationDate is in epoch seconds; browsers report fractional values.
	// Zero means a session cookie.
	ExpirationDate float64 `json:"expirationDate,omitempty"`
}

// Session reports whether the record is a session cookie.
func (r Record) Session() bool {
	return r.ExpirationDate <= 0
}

// Expires returns the expiration time, or the zero time for session cookies.
func (r Record) Expires() time.Time {
	if r.Session() {
		return time.Time{}
	}
	sec := int64(r.ExpirationDate)
	nsec := int64((r.ExpirationDate - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// Expired reports whether the record carries an expiration before now.
func (r Record) Expired(now time.Time) bool {
	return !r.Session() && r.Expires().Before(now)
}

// Usable reports whether the record can be applied to a jar:
// both name and value must be non-empty.
func (r Record) Usable() bool {
	return r.Name != "" && r.Value != ""
}

// Normalize returns a copy with the defaults filled in (path "/", SameSite
// Lax) and the domain widened to its registrable domain.
func (r Record) Normalize() Record {
	if r.Path == "" {
		r.Path = DefaultPath
	}
	if r.SameSite == "" {
		r.SameSite = SameSiteLax
	}
	r.Domain = NormalizeDomain(r.Domain)
	return r
}

// Key identifies a cookie within a jar.
func (r Record) Key() string {
	path := r.Path
	if path == "" {
		path = DefaultPath
	}
	return strings.ToLower(r.Domain) + ";" + path + ";" + r.Name
}

// NormalizeAll normalizes every record in order.
func NormalizeAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Normalize()
	}
	return out
}

// BuildCookieHeader builds an HTTP Cookie header value from records.
// Format: "name1=val1; name2=val2"
func BuildCookieHeader(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	parts := make([]string, len(records))
	for i, c := range records {
		parts[i] = c.Name + "=" + c.Value
	}
	return strings.Join(parts, "; ")
}
