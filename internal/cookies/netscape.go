package cookies

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const netscapeHeader = "# Netscape HTTP Cookie File"

// ReadNetscape reads the cookies of domain from a Netscape-format text file.
// Comment lines are skipped except the #HttpOnly_ prefix, which marks the
// cookie HttpOnly. Malformed lines are skipped with a warning.
func ReadNetscape(filePath, domain string) ([]Record, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("capture: cannot open Netscape cookie file: %w", err)
	}
	defer f.Close()
	return parseNetscape(f, domain, time.Now())
}

func parseNetscape(r io.Reader, domain string, now time.Time) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		httpOnly := false
		if strings.HasPrefix(line, "#HttpOnly_") {
			httpOnly = true
			line = line[len("#HttpOnly_"):]
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			log.Printf("warning: skipping malformed Netscape cookie line")
			continue
		}
		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			log.Printf("warning: skipping cookie %s with invalid expiry %q", fields[5], fields[4])
			continue
		}
		rec := Record{
			Domain:         fields[0],
			Path:           fields[2],
			Secure:         strings.EqualFold(fields[3], "TRUE"),
			ExpirationDate: float64(expiry),
			Name:           fields[5],
			Value:          fields[6],
			HttpOnly:       httpOnly,
			SameSite:       SameSiteLax,
		}
		if !MatchesHost(rec.Domain, domain) || rec.Expired(now) {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("capture: failed to read Netscape cookie file: %w", err)
	}
	return records, nil
}

// WriteNetscape writes records in Netscape format, the cookie file format
// understood by curl and wget.
func WriteNetscape(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, netscapeHeader)
	for _, r := range records {
		domain := r.Domain
		if r.HttpOnly {
			domain = "#HttpOnly_" + domain
		}
		path := r.Path
		if path == "" {
			path = DefaultPath
		}
		fmt.Fprintf(bw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			domain,
			netscapeBool(strings.HasPrefix(r.Domain, ".")),
			path,
			netscapeBool(r.Secure),
			int64(r.ExpirationDate),
			r.Name,
			r.Value,
		)
	}
	return bw.Flush()
}

func netscapeBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
