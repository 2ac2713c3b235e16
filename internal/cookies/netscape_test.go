package cookies

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestParseNetscape(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	future := now.Add(time.Hour).Unix()
	past := now.Add(-time.Hour).Unix()
	input := strings.Join([]string{
		"# Netscape HTTP Cookie File",
		"# a comment",
		"",
		fmt.Sprintf(".example.com\tTRUE\t/\tTRUE\t%d\tsid\tabc\r", future),
		fmt.Sprintf("#HttpOnly_.example.com\tTRUE\t/\tFALSE\t%d\ttoken\tt1", future),
		fmt.Sprintf(".example.com\tTRUE\t/\tFALSE\t%d\told\tx", past),
		".example.com\tTRUE\t/\tFALSE\t0\tsession\ts",
		".example.com\tbroken line",
		".example.com\tTRUE\t/\tFALSE\tnotanumber\tbad\tv",
		fmt.Sprintf(".example.org\tTRUE\t/\tFALSE\t%d\tforeign\tf", future),
	}, "\n")

	records, err := parseNetscape(strings.NewReader(input), "example.com", now)
	if err != nil {
		t.Fatalf("parseNetscape: %v", err)
	}
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	if strings.Join(names, ",") != "sid,token,session" {
		t.Fatalf("unexpected cookies: %v", names)
	}
	if !records[0].Secure {
		t.Error("expected sid to be secure")
	}
	if !records[1].HttpOnly {
		t.Error("expected token to be HttpOnly")
	}
	if !records[2].Session() {
		t.Error("expected session cookie")
	}
}

func TestWriteNetscape_RoundTrip(t *testing.T) {
	now := time.Now()
	in := []Record{
		{Name: "sid", Value: "abc", Domain: ".example.com", Path: "/", Secure: true, ExpirationDate: float64(now.Add(time.Hour).Unix())},
		{Name: "token", Value: "t", Domain: ".example.com", HttpOnly: true},
	}
	var buf bytes.Buffer
	if err := WriteNetscape(&buf, in); err != nil {
		t.Fatalf("WriteNetscape: %v", err)
	}
	if !strings.HasPrefix(buf.String(), netscapeHeader+"\n") {
		t.Fatalf("missing header: %q", buf.String())
	}
	out, err := parseNetscape(&buf, "example.com", now)
	if err != nil {
		t.Fatalf("parseNetscape: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0].Name != "sid" || !out[0].Secure || out[1].Path != "/" || !out[1].HttpOnly {
		t.Errorf("round trip lost fields: %+v", out)
	}
}
