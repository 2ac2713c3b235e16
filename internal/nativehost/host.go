package nativehost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/internal/registry"
	"github.com/warpdl/cookieshare/internal/transfer"
	"github.com/warpdl/cookieshare/pkg/logger"
)

// Backend holds what the host operates on.
type Backend struct {
	Version  string
	Registry *registry.Registry
	Config   *transfer.ConfigStore
	// OpenJar returns the stored jar of host. It serves calls that carry
	// no inline cookies.
	OpenJar func(host string) (cookies.Jar, error)
	// EngineOptions are applied to every engine the host creates.
	EngineOptions []transfer.Option
	// NewID generates ids for send calls without one.
	NewID func() (string, error)
}

// TransferParams are the parameters of send and receive.
type TransferParams struct {
	ID    string `json:"id"`
	Relay string `json:"relay,omitempty"`
	Host  string `json:"host"`
	Note  string `json:"note,omitempty"`
	// Cookies is the browser's current jar for Host. When present the
	// operation runs against it and the resulting jar is returned.
	Cookies []cookies.Record `json:"cookies,omitempty"`
}

// ListParams are the parameters of list.
type ListParams struct {
	Host    string `json:"host"`
	Retries int    `json:"retries,omitempty"`
}

// SavedParams address a registry entry.
type SavedParams struct {
	ID     string  `json:"id"`
	URL    *string `json:"url,omitempty"`
	Note   *string `json:"note,omitempty"`
	Pinned *bool   `json:"pinned,omitempty"`
}

// ReorderParams move an entry of the saved list.
type ReorderParams struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ConfigParams set the relay configuration.
type ConfigParams struct {
	URL      string `json:"url"`
	Password string `json:"password,omitempty"`
	Remember bool   `json:"remember"`
}

// ConfigView is the configuration as reported to the extension; the
// password itself never leaves the host.
type ConfigView struct {
	URL         string `json:"url"`
	Remember    bool   `json:"remember"`
	HasPassword bool   `json:"hasPassword"`
}

// TransferResult is returned by send and receive.
type TransferResult struct {
	ID            string             `json:"id"`
	URL           string             `json:"url,omitempty"`
	Count         int                `json:"count"`
	Cleared       int                `json:"cleared,omitempty"`
	Message       string             `json:"message,omitempty"`
	Reload        bool               `json:"reload,omitempty"`
	ReloadAfterMs int64              `json:"reloadAfterMs,omitempty"`
	// Replaced is set when Cookies is the page's whole jar after the call,
	// possibly empty, and the extension must make the browser match it.
	Replaced      bool               `json:"replaced,omitempty"`
	Cookies       []cookies.Record   `json:"cookies,omitempty"`
	Messages      []transfer.Message `json:"messages,omitempty"`
}

// ListResult is returned by list.
type ListResult struct {
	Cookies     []registry.Ref     `json:"cookies"`
	LastRefresh time.Time          `json:"lastRefresh"`
	Messages    []transfer.Message `json:"messages,omitempty"`
}

// Host is the native messaging host.
type Host struct {
	backend Backend
	log     logger.Logger
	stdin   io.Reader
	stdout  io.Writer
}

// NewHost creates a host speaking on os.Stdin and os.Stdout.
func NewHost(b Backend, log logger.Logger) *Host {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if b.NewID == nil {
		b.NewID = transfer.NewID
	}
	return &Host{backend: b, log: log, stdin: os.Stdin, stdout: os.Stdout}
}

// Run serves requests until stdin reaches EOF or ctx is done. Request
// errors are answered and never stop the loop.
func (h *Host) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := h.processOneMessage(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (h *Host) processOneMessage(ctx context.Context) error {
	data, err := ReadMessage(h.stdin)
	if err != nil {
		return err
	}
	req, err := ParseRequest(data)
	if err != nil {
		return WriteMessage(h.stdout, MakeErrorResponse(0, fmt.Errorf("invalid request: %w", err)))
	}
	return WriteMessage(h.stdout, h.handleRequest(ctx, req))
}

func decodeParams(req *Request, v any) error {
	if len(req.Message) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Message, v); err != nil {
		return fmt.Errorf("invalid %s params: %w", req.Method, err)
	}
	return nil
}

func (h *Host) handleRequest(ctx context.Context, req *Request) []byte {
	h.log.Debug("native: %d %s", req.ID, req.Method)
	var (
		result any
		err    error
	)
	switch req.Method {
	case "version":
		result = map[string]string{"version": h.backend.Version}
	case "send":
		result, err = h.send(ctx, req)
	case "receive":
		result, err = h.receive(ctx, req)
	case "list":
		result, err = h.list(ctx, req)
	case "saved.list":
		result = h.backend.Registry.List()
	case "saved.add":
		var p SavedParams
		if err = h.needID(req, &p); err == nil {
			url := ""
			if p.URL != nil {
				url = *p.URL
			}
			note := ""
			if p.Note != nil {
				note = *p.Note
			}
			result = map[string]bool{"added": h.backend.Registry.Add(registry.Ref{ID: p.ID, URL: url}, note)}
		}
	case "saved.remove":
		var p SavedParams
		if err = h.needID(req, &p); err == nil {
			result = map[string]bool{"removed": h.backend.Registry.Remove(p.ID)}
		}
	case "saved.update":
		var p SavedParams
		if err = h.needID(req, &p); err == nil {
			ok := h.backend.Registry.Update(p.ID, registry.Patch{URL: p.URL, Note: p.Note, Pinned: p.Pinned})
			result = map[string]bool{"updated": ok}
		}
	case "saved.touch":
		var p SavedParams
		if err = h.needID(req, &p); err == nil {
			result = map[string]bool{"touched": h.backend.Registry.Touch(p.ID)}
		}
	case "saved.reorder":
		var p ReorderParams
		if err = decodeParams(req, &p); err == nil {
			if err = h.backend.Registry.Reorder(p.From, p.To); err == nil {
				result = h.backend.Registry.List()
			}
		}
	case "config.get":
		result = h.configView()
	case "config.set":
		var p ConfigParams
		if err = decodeParams(req, &p); err == nil {
			if err = h.backend.Config.Set(transfer.ServerConfig(p)); err == nil {
				result = h.configView()
			}
		}
	default:
		return MakeErrorResponse(req.ID, fmt.Errorf("unknown method: %s", req.Method))
	}

	if err != nil {
		h.log.Warning("native: %s: %v", req.Method, err)
		return MakeErrorResponse(req.ID, err)
	}
	return MakeSuccessResponse(req.ID, result)
}

func (h *Host) needID(req *Request, p *SavedParams) error {
	if err := decodeParams(req, p); err != nil {
		return err
	}
	if p.ID == "" {
		return transfer.ErrMissingID
	}
	return nil
}

func (h *Host) configView() ConfigView {
	cfg := h.backend.Config.Get()
	return ConfigView{URL: cfg.URL, Remember: cfg.Remember, HasPassword: cfg.Password != ""}
}

// session is one engine bound to the jar a call operates on.
type session struct {
	engine   *transfer.Engine
	jar      cookies.Jar
	inline   *cookies.MemJar
	notes    *transfer.Recorder
	reloadIn time.Duration
	reload   bool
}

func (h *Host) newSession(host string, inline []cookies.Record) (*session, error) {
	if host == "" {
		return nil, errors.New("host is required")
	}
	s := &session{notes: &transfer.Recorder{}}
	if inline != nil {
		s.inline = cookies.NewMemJar(inline...).Protect(cookies.DefaultProtectedNames...)
		s.jar = s.inline
	} else {
		if h.backend.OpenJar == nil {
			return nil, errors.New("no cookies given and no stored jar available")
		}
		jar, err := h.backend.OpenJar(host)
		if err != nil {
			return nil, fmt.Errorf("open jar: %w", err)
		}
		s.jar = jar
	}
	opts := append([]transfer.Option{}, h.backend.EngineOptions...)
	opts = append(opts,
		transfer.WithLogger(h.log),
		transfer.WithNotifier(s.notes),
		// the extension performs the reload; report it instead of waiting
		transfer.WithAfterFunc(func(d time.Duration, fn func()) {
			s.reloadIn = d
			fn()
		}),
	)
	page := transfer.Page{Host: host, Jar: s.jar, Reload: func() { s.reload = true }}
	s.engine = transfer.NewEngine(page, h.backend.Config, opts...)
	return s, nil
}

func (s *session) result(ctx context.Context, r *TransferResult) (*TransferResult, error) {
	r.Messages = s.notes.Messages()
	if s.inline != nil {
		list, err := s.inline.List(ctx)
		if err != nil {
			return nil, err
		}
		r.Cookies = list
		r.Replaced = true
	}
	return r, nil
}

func (h *Host) send(ctx context.Context, req *Request) (any, error) {
	var p TransferParams
	if err := decodeParams(req, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		id, err := h.backend.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate id: %w", err)
		}
		p.ID = id
	}
	s, err := h.newSession(p.Host, p.Cookies)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Send(ctx, p.ID, p.Relay)
	if err != nil {
		return nil, err
	}
	h.backend.Registry.Add(registry.Ref{ID: res.ID, URL: res.URL}, p.Note)
	return s.result(ctx, &TransferResult{ID: res.ID, URL: res.URL, Count: res.Count, Message: res.Message})
}

func (h *Host) receive(ctx context.Context, req *Request) (any, error) {
	var p TransferParams
	if err := decodeParams(req, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, transfer.ErrMissingID
	}
	s, err := h.newSession(p.Host, p.Cookies)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Receive(ctx, p.ID, p.Relay)
	if err != nil {
		if s.inline != nil && errors.Is(err, transfer.ErrNoCookiesImported) {
			// the clear phase already ran; the browser has to drop those cookies too
			if cleared, rerr := s.result(ctx, &TransferResult{ID: p.ID}); rerr == nil {
				return nil, &resultError{err: err, result: cleared}
			}
		}
		return nil, err
	}
	if !h.backend.Registry.Touch(p.ID) {
		h.backend.Registry.Add(registry.Ref{ID: p.ID, URL: cookies.SourceURL(p.Host)}, p.Note)
	}
	return s.result(ctx, &TransferResult{
		ID:            p.ID,
		Count:         res.Imported,
		Cleared:       res.Cleared,
		Reload:        s.reload,
		ReloadAfterMs: s.reloadIn.Milliseconds(),
	})
}

func (h *Host) list(ctx context.Context, req *Request) (any, error) {
	var p ListParams
	if err := decodeParams(req, &p); err != nil {
		return nil, err
	}
	if p.Retries == 0 {
		p.Retries = transfer.DefaultRetries
	}
	if p.Host == "" {
		return nil, errors.New("host is required")
	}
	notes := &transfer.Recorder{}
	opts := append([]transfer.Option{}, h.backend.EngineOptions...)
	opts = append(opts, transfer.WithLogger(h.log), transfer.WithNotifier(notes))
	engine := transfer.NewEngine(transfer.Page{Host: p.Host}, h.backend.Config, opts...)

	refs, err := engine.LoadCookieList(ctx, p.Retries)
	if err != nil {
		return nil, err
	}
	return &ListResult{Cookies: refs, LastRefresh: engine.LastRefresh(), Messages: notes.Messages()}, nil
}
