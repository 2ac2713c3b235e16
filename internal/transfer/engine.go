// Package transfer moves cookie-sets between a browsing context's jar and a
// relay: Send captures and uploads, Receive downloads and replaces the jar's
// cookies, and LoadCookieList browses the bundles saved for a host.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/internal/registry"
	"github.com/warpdl/cookieshare/pkg/logger"
)

const (
	// ReloadDelay separates a successful Receive from the page reload.
	ReloadDelay = 500 * time.Millisecond
	// RetryDelay separates LoadCookieList attempts.
	RetryDelay = 2 * time.Second
	// DefaultRetries is the default number of LoadCookieList attempts.
	DefaultRetries = 3
	// SessionLifetime is the expiration given to imported session cookies.
	SessionLifetime = 24 * time.Hour
)

// Page is the browsing context the engine operates on.
type Page struct {
	// Host is the hostname of the current page.
	Host string
	Jar  cookies.Jar
	// Reload makes newly applied cookies take effect; may be nil.
	Reload func()
}

// Op names a call family for State.
type Op int

const (
	OpSend Op = iota
	OpReceive
	OpList
)

// State is the lifecycle of the latest call of one family.
type State int

const (
	Idle State = iota
	InFlight
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in-flight"
	case Success:
		return "success"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// SendResult describes a successful Send.
type SendResult struct {
	ID    string
	URL   string
	Count int
	// Message is the relay's optional reply message.
	Message string
}

// ReceiveResult describes a successful Receive.
type ReceiveResult struct {
	ID       string
	Imported int
	Skipped  int
	Cleared  int
}

// Engine runs transfers for one page.
type Engine struct {
	page      Page
	cfg       ConfigSource
	relay     *relayClient
	log       logger.Logger
	notify    Notifier
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
	afterFunc func(time.Duration, func())
	protected cookies.ProtectedSet
	progress  func(done, total int)

	mu          sync.Mutex
	receiving   bool
	listing     bool
	states      [3]State
	list        []registry.Ref
	lastRefresh time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient sets the client used to reach the relay.
func WithHTTPClient(d Doer) Option {
	return func(e *Engine) { e.relay.http = d }
}

// WithTimeout overrides the per-request timeout. Non-positive values keep
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.relay.timeout = d
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notify = n }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSleep replaces the wait between LoadCookieList attempts.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// WithAfterFunc replaces the scheduler of the post-receive reload.
func WithAfterFunc(after func(time.Duration, func())) Option {
	return func(e *Engine) { e.afterFunc = after }
}

// WithProtectedNames replaces the protected cookie allow-list.
func WithProtectedNames(names ...string) Option {
	return func(e *Engine) { e.protected = cookies.NewProtectedSet(names...) }
}

// WithProgress registers a callback run after each cookie Receive applies.
func WithProgress(fn func(done, total int)) Option {
	return func(e *Engine) { e.progress = fn }
}

// NewEngine creates an engine for page. cfg may be nil when every call
// passes an explicit relay URL.
func NewEngine(page Page, cfg ConfigSource, opts ...Option) *Engine {
	e := &Engine{
		page:      page,
		cfg:       cfg,
		relay:     &relayClient{http: http.DefaultClient, timeout: DefaultTimeout},
		log:       logger.NewNopLogger(),
		notify:    NopNotifier{},
		now:       time.Now,
		sleep:     sleepContext,
		afterFunc: func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		protected: cookies.NewProtectedSet(cookies.DefaultProtectedNames...),
		progress:  func(int, int) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// State returns the state of the latest call of op.
func (e *Engine) State(op Op) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[op]
}

func (e *Engine) setState(op Op, s State) {
	e.mu.Lock()
	e.states[op] = s
	e.mu.Unlock()
}

func (e *Engine) finish(op Op, err error) {
	if err != nil {
		e.setState(op, Failed)
		return
	}
	e.setState(op, Success)
}

func (e *Engine) config() ServerConfig {
	if e.cfg == nil {
		return ServerConfig{}
	}
	return e.cfg.Get()
}

// relayBase validates raw, falling back to the configured server when raw
// is empty.
func (e *Engine) relayBase(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = e.config().URL
		if raw == "" {
			return "", &Error{Kind: KindNotConfigured}
		}
	}
	return ValidateURL(raw)
}

// Send uploads every cookie of the page to the relay at targetURL under id.
func (e *Engine) Send(ctx context.Context, id, targetURL string) (*SendResult, error) {
	e.setState(OpSend, InFlight)
	res, err := e.send(ctx, id, targetURL)
	e.finish(OpSend, err)
	if err != nil {
		e.log.Error("send %s: %v", id, err)
		return nil, err
	}
	e.log.Info("sent %d cookies of %s as %s", res.Count, res.URL, id)
	e.notify.Success(fmt.Sprintf("sent %d cookies as %s", res.Count, id))
	return res, nil
}

func (e *Engine) send(ctx context.Context, id, targetURL string) (*SendResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &Error{Kind: KindMissingID}
	}
	base, err := e.relayBase(targetURL)
	if err != nil {
		return nil, err
	}
	records, err := e.page.Jar.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cookies: %w", err)
	}
	if len(records) == 0 {
		return nil, &Error{Kind: KindNothingToSend}
	}

	bundle := Bundle{
		ID:      id,
		URL:     cookies.SourceURL(e.page.Host),
		Cookies: cookies.NormalizeAll(records),
	}
	data, err := e.relay.do(ctx, http.MethodPost, base+"/send-cookies", "", bundle)
	if err != nil {
		return nil, err
	}
	res := &SendResult{ID: id, URL: bundle.URL, Count: len(bundle.Cookies)}
	var reply sendReply
	if len(data) > 0 && json.Unmarshal(data, &reply) == nil {
		res.Message = reply.Message
	}
	return res, nil
}

// Receive downloads the bundle id from sourceURL and replaces the page's
// cookies with it: every unprotected cookie is deleted first, then the
// bundle is applied in order. Only one Receive runs at a time.
func (e *Engine) Receive(ctx context.Context, id, sourceURL string) (*ReceiveResult, error) {
	e.mu.Lock()
	if e.receiving {
		e.mu.Unlock()
		return nil, &Error{Kind: KindBusy}
	}
	e.receiving = true
	e.states[OpReceive] = InFlight
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.receiving = false
		e.mu.Unlock()
	}()

	res, err := e.receive(ctx, id, sourceURL)
	e.finish(OpReceive, err)
	if err != nil {
		e.log.Error("receive %s: %v", id, err)
		return nil, err
	}
	e.log.Info("imported %d cookies from %s", res.Imported, id)
	e.notify.Success(fmt.Sprintf("imported %d cookies", res.Imported))
	if e.page.Reload != nil {
		e.afterFunc(ReloadDelay, e.page.Reload)
	}
	return res, nil
}

func (e *Engine) receive(ctx context.Context, id, sourceURL string) (*ReceiveResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &Error{Kind: KindMissingID}
	}
	base, err := e.relayBase(sourceURL)
	if err != nil {
		return nil, err
	}
	e.notify.Info("importing cookies, please wait")

	data, err := e.relay.do(ctx, http.MethodGet, base+"/receive-cookies/"+url.PathEscape(id), e.config().Password, nil)
	if err != nil {
		return nil, err
	}
	var reply receiveReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, newError(KindInvalidResponseFormat, err)
	}
	if !reply.Success || reply.Cookies == nil {
		return nil, &Error{Kind: KindInvalidResponseFormat, Body: reply.Message}
	}
	if len(reply.Cookies) == 0 {
		return nil, &Error{Kind: KindNothingToImport}
	}

	res := &ReceiveResult{ID: id}
	if res.Cleared, err = e.clear(ctx); err != nil {
		return nil, err
	}
	res.Imported, res.Skipped, err = e.apply(ctx, reply.Cookies)
	if err != nil {
		return nil, err
	}
	if res.Imported == 0 {
		return nil, &Error{Kind: KindNoCookiesImported}
	}
	return res, nil
}

// clear deletes every unprotected cookie of the page, one at a time.
func (e *Engine) clear(ctx context.Context) (int, error) {
	current, err := e.page.Jar.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cookies: %w", err)
	}
	cleared := 0
	for _, c := range current {
		if e.protected.Has(c.Name) {
			continue
		}
		path := c.Path
		if path == "" {
			path = cookies.DefaultPath
		}
		if err := e.page.Jar.Delete(ctx, c.Name, c.Domain, path); err != nil {
			if ctx.Err() != nil {
				return cleared, ctx.Err()
			}
			e.log.Warning("receive: delete %s (%s): %v", c.Name, c.Domain, err)
			continue
		}
		cleared++
	}
	return cleared, nil
}

// apply sets the usable records in order. Every record is attempted; a
// failure is logged and skipped, silently when the name is protected.
func (e *Engine) apply(ctx context.Context, incoming []cookies.Record) (imported, skipped int, err error) {
	total := 0
	for _, r := range incoming {
		if r.Usable() {
			total++
		}
	}
	now := e.now()
	done := 0
	for _, in := range incoming {
		if !in.Usable() {
			skipped++
			continue
		}
		rec := e.prepare(in, now)
		setErr := e.page.Jar.Set(ctx, rec)
		done++
		e.progress(done, total)
		if setErr != nil {
			if ctx.Err() != nil {
				return imported, skipped, ctx.Err()
			}
			skipped++
			if !e.protected.Has(rec.Name) {
				e.log.Warning("receive: set %s (%s): %v", rec.Name, rec.Domain, setErr)
			}
			continue
		}
		imported++
	}
	return imported, skipped, nil
}

func (e *Engine) prepare(in cookies.Record, now time.Time) cookies.Record {
	rec := in.Normalize()
	if rec.Domain == "" {
		rec.Domain = cookies.NormalizeDomain(e.page.Host)
	}
	if rec.Session() {
		rec.ExpirationDate = float64(now.Add(SessionLifetime).Unix())
	}
	return rec
}
