// Package cookies defines the cookie record exchanged with the relay, the
// domain normalization applied before cookies are sent or applied, and the
// Jar abstraction over a host's cookie storage.
//
// It also captures cookies from local browser stores: Firefox (moz_cookies
// SQLite), Chrome (cookies SQLite, unencrypted values only) and Netscape text
// files, so a jar can be seeded from a real browser profile.
//
// Cookie values are sensitive. They must never be logged or formatted into
// error messages; only names and domains may appear in logs.
package cookies
