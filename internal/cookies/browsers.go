package cookies

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// chromeEpochOffsetSeconds is the number of seconds between the Windows NT
// epoch (1601-01-01) and the Unix epoch.
const chromeEpochOffsetSeconds int64 = 11_644_473_600

func chromeToUnix(chromeUSec int64) int64 {
	return (chromeUSec / 1_000_000) - chromeEpochOffsetSeconds
}

func unixToChrome(unixSec int64) int64 {
	return (unixSec + chromeEpochOffsetSeconds) * 1_000_000
}

// sameSiteFromInt maps the integer encodings used by both Firefox and Chrome
// (0 none, 1 lax, 2 strict; Chrome uses -1 for unspecified).
func sameSiteFromInt(v int) SameSite {
	switch v {
	case 0:
		return SameSiteNone
	case 2:
		return SameSiteStrict
	default:
		return SameSiteLax
	}
}

// sqliteQuery describes how to pull cookie rows out of one browser schema.
type sqliteQuery struct {
	browser string
	sql     string
	// expiry converts the stored expiry column to epoch seconds.
	expiry func(int64) int64
	// cutoff is the stored-expiry value below which a cookie is expired.
	cutoff func(now int64) int64
}

var (
	firefoxQuery = sqliteQuery{
		browser: "Firefox",
		sql: `
        SELECT name, value, host, path, expiry, isSecure, isHttpOnly, sameSite
        FROM moz_cookies
        WHERE (host = ? OR host = ? OR host LIKE ?)
          AND expiry > ?
        ORDER BY path DESC, name ASC`,
		expiry: func(v int64) int64 { return v },
		cutoff: func(now int64) int64 { return now },
	}
	chromeQuery = sqliteQuery{
		browser: "Chrome",
		sql: `
        SELECT name, value, host_key, path, expires_utc, is_secure, is_httponly, samesite
        FROM cookies
        WHERE (host_key = ? OR host_key = ? OR host_key LIKE ?)
          AND value != ''
          AND expires_utc > ?
        ORDER BY path DESC, name ASC`,
		expiry: chromeToUnix,
		cutoff: unixToChrome,
	}
)

// ReadFirefox reads the unexpired cookies of domain from a copied Firefox
// cookies.sqlite.
func ReadFirefox(dbPath, domain string) ([]Record, error) {
	return readSQLite(dbPath, domain, firefoxQuery)
}

// ReadChrome reads the unexpired cookies of domain from a copied Chrome
// Cookies database. Rows whose value is encrypted (empty plain value) are
// skipped.
func ReadChrome(dbPath, domain string) ([]Record, error) {
	return readSQLite(dbPath, domain, chromeQuery)
}

func readSQLite(dbPath, domain string, q sqliteQuery) ([]Record, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?immutable=1", dbPath))
	if err != nil {
		return nil, fmt.Errorf("capture: cannot open %s cookie database: %w", q.browser, err)
	}
	defer db.Close()

	now := time.Now().Unix()
	rows, err := db.Query(q.sql, domain, "."+domain, "%."+domain, q.cutoff(now))
	if err != nil {
		return nil, fmt.Errorf("capture: failed to query %s cookies: %w", q.browser, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			name, value, host, path string
			expiry                  int64
			secure, httpOnly        int
			sameSite                int
		)
		if err := rows.Scan(&name, &value, &host, &path, &expiry, &secure, &httpOnly, &sameSite); err != nil {
			return nil, fmt.Errorf("capture: failed to scan %s cookie row: %w", q.browser, err)
		}
		records = append(records, Record{
			Name:           name,
			Value:          value,
			Domain:         host,
			Path:           path,
			Secure:         secure != 0,
			HttpOnly:       httpOnly != 0,
			SameSite:       sameSiteFromInt(sameSite),
			ExpirationDate: float64(q.expiry(expiry)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("capture: failed to iterate %s cookie rows: %w", q.browser, err)
	}
	return records, nil
}
