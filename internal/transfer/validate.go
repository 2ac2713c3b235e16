package transfer

import (
	"errors"
	"net/url"
	"strings"
)

// ValidateURL turns user input into a relay base URL: https:// is prepended
// when no http(s) scheme is given and trailing slashes are removed.
//
//	ValidateURL("relay.example.com/") == "https://relay.example.com"
func ValidateURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", newError(KindInvalidURL, errors.New("empty URL"))
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "https://" + s
	}
	s = strings.TrimRight(s, "/")
	u, err := url.Parse(s)
	if err != nil {
		return "", newError(KindInvalidURL, err)
	}
	if u.Host == "" {
		return "", newError(KindInvalidURL, errors.New("missing host in "+raw))
	}
	return s, nil
}
