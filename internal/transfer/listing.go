package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/internal/registry"
)

// LoadCookieList fetches the bundles the configured relay keeps for the
// page's registrable domain. It makes up to attempts requests spaced by
// RetryDelay, warning before each retry. On success the list and refresh
// time are replaced; after the last failure the list is cleared.
// A call made while another is in flight returns the current list.
func (e *Engine) LoadCookieList(ctx context.Context, attempts int) ([]registry.Ref, error) {
	cfg := e.config()
	if !cfg.Configured() {
		return nil, &Error{Kind: KindNotConfigured}
	}
	base, err := ValidateURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.listing {
		list := append([]registry.Ref(nil), e.list...)
		e.mu.Unlock()
		return list, nil
	}
	e.listing = true
	e.states[OpList] = InFlight
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.listing = false
		e.mu.Unlock()
	}()

	if attempts < 1 {
		attempts = 1
	}
	host := cookies.RegistrableDomain(e.page.Host)
	endpoint := base + "/admin/list-cookies-by-host/" + url.PathEscape(host)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := e.sleep(ctx, RetryDelay); err != nil {
				lastErr = err
				break
			}
		}
		refs, err := e.fetchList(ctx, endpoint, cfg.Password)
		if err == nil {
			e.mu.Lock()
			e.list = refs
			e.lastRefresh = e.now()
			e.states[OpList] = Success
			e.mu.Unlock()
			return append([]registry.Ref(nil), refs...), nil
		}
		lastErr = err
		e.log.Warning("list %s: attempt %d/%d: %v", host, attempt, attempts, err)
		if attempt < attempts {
			e.notify.Warning(fmt.Sprintf("loading failed, retrying (%d attempts left)", attempts-attempt))
		}
	}

	e.notify.Error("loading failed: " + lastErr.Error())
	e.mu.Lock()
	e.list = nil
	e.states[OpList] = Failed
	e.mu.Unlock()
	return nil, lastErr
}

func (e *Engine) fetchList(ctx context.Context, endpoint, password string) ([]registry.Ref, error) {
	data, err := e.relay.do(ctx, http.MethodGet, endpoint, password, nil)
	if err != nil {
		return nil, err
	}
	var reply listReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, newError(KindInvalidResponseFormat, err)
	}
	if !reply.Success {
		return nil, &Error{Kind: KindInvalidResponseFormat, Body: reply.Message}
	}
	if reply.Cookies == nil {
		return []registry.Ref{}, nil
	}
	return reply.Cookies, nil
}

// CookieList returns the list from the last successful LoadCookieList.
func (e *Engine) CookieList() []registry.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]registry.Ref(nil), e.list...)
}

// LastRefresh returns when the list was last loaded, zero if never.
func (e *Engine) LastRefresh() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRefresh
}
