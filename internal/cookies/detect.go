package cookies

import (
	"bufio"
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

var sqliteMagic = []byte("SQLite format 3\x00")

// DetectFormat determines the format of the cookie store at path.
func DetectFormat(path string) (Format, error) {
	if err := checkStoreFile(path); err != nil {
		return FormatUnknown, err
	}
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("capture: cannot open cookie store: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(len(sqliteMagic))
	if bytes.Equal(head, sqliteMagic) {
		return detectSQLiteFormat(path)
	}

	line, _ := br.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "# Netscape HTTP Cookie File" || line == "# HTTP Cookie File" {
		return FormatNetscape, nil
	}
	return FormatUnknown, fmt.Errorf("capture: unsupported cookie store format at %s", path)
}

// detectSQLiteFormat tells Firefox and Chrome databases apart by their table.
func detectSQLiteFormat(path string) (Format, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return FormatUnknown, fmt.Errorf("capture: cannot open SQLite database: %w", err)
	}
	defer db.Close()

	candidates := []struct {
		table  string
		format Format
	}{
		{"moz_cookies", FormatFirefox},
		{"cookies", FormatChrome},
	}
	for _, c := range candidates {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, c.table).Scan(&name)
		if err == nil {
			return c.format, nil
		}
	}
	return FormatUnknown, fmt.Errorf("capture: unsupported cookie database schema at %s", path)
}
