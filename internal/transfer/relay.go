package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/internal/registry"
)

// DefaultTimeout bounds every relay request.
const DefaultTimeout = 10 * time.Second

const maxResponseBytes = 8 << 20

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Bundle is the body of POST /send-cookies.
type Bundle struct {
	ID      string           `json:"id"`
	URL     string           `json:"url"`
	Cookies []cookies.Record `json:"cookies"`
}

type sendReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type receiveReply struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Cookies []cookies.Record `json:"cookies"`
}

type listReply struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Cookies []registry.Ref `json:"cookies"`
}

type relayClient struct {
	http    Doer
	timeout time.Duration
}

// do performs one request and returns the body of a 2xx response.
// Credentials are never forwarded; only the admin password header is set,
// and only when password is non-empty.
func (c *relayClient) do(ctx context.Context, method, endpoint, password string, body any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return nil, newError(KindInvalidURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if password != "" {
		req.Header.Set("X-Admin-Password", password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classify(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindHTTPStatus, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

func classify(ctx context.Context, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return newError(KindTimeout, err)
	}
	return newError(KindNetwork, err)
}
