package cookies

import (
	"fmt"
	"path/filepath"
)

// Format identifies the on-disk format of a browser cookie store.
type Format int

const (
	FormatUnknown Format = iota
	// FormatFirefox is the Firefox moz_cookies SQLite schema.
	FormatFirefox
	// FormatChrome is the Chrome cookies SQLite schema. Only unencrypted
	// values are usable.
	FormatChrome
	// FormatNetscape is the Netscape tab-separated text format.
	FormatNetscape
)

func (f Format) String() string {
	switch f {
	case FormatFirefox:
		return "Firefox"
	case FormatChrome:
		return "Chrome"
	case FormatNetscape:
		return "Netscape"
	default:
		return "unknown"
	}
}

// Source describes where captured cookies came from.
type Source struct {
	Path   string
	Format Format
}

// Capture reads the cookies of host's registrable domain from the browser
// cookie store at path. SQLite stores are copied first so a running browser
// holding the database lock does not get in the way. Expired cookies are
// dropped and every record is normalized.
func Capture(path, host string) ([]Record, *Source, error) {
	domain := RegistrableDomain(host)
	if domain == "" {
		return nil, nil, fmt.Errorf("capture: invalid host %q", host)
	}
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}
	src := &Source{Path: path, Format: format}

	var records []Record
	switch format {
	case FormatFirefox:
		records, err = captureSQLite(path, domain, ReadFirefox)
	case FormatChrome:
		records, err = captureSQLite(path, domain, ReadChrome)
	case FormatNetscape:
		records, err = ReadNetscape(path, domain)
	}
	if err != nil {
		return nil, nil, err
	}
	return NormalizeAll(records), src, nil
}

func captureSQLite(path, domain string, read func(string, string) ([]Record, error)) ([]Record, error) {
	tempDir, cleanup, err := SafeCopy(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return read(filepath.Join(tempDir, filepath.Base(path)), domain)
}
