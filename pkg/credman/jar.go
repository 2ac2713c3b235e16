// Package credman persists cookies and credentials encrypted at rest.
package credman

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/pkg/credman/encryption"
)

const (
	jarVersion = 1
	jarExt     = ".jar"
)

// ErrForeignDomain is returned by Set for cookies outside the jar's host.
var ErrForeignDomain = errors.New("cookie domain does not belong to this jar")

// Jar is a cookies.Jar for one registrable domain, stored as a gob file
// whose cookie values are sealed with AES-GCM.
type Jar struct {
	fs   afero.Fs
	path string
	host string
	key  []byte
	now  func() time.Time

	mu      sync.Mutex
	order   []string
	cookies map[string]storedCookie
}

type storedCookie struct {
	Name           string
	Domain         string
	Path           string
	Value          []byte
	Secure         bool
	HttpOnly       bool
	SameSite       string
	ExpirationDate float64
}

type jarFile struct {
	Version int
	Host    string
	Cookies []storedCookie
}

// JarPath returns the file holding the jar of host under dir.
func JarPath(dir, host string) string {
	return filepath.Join(dir, cookies.RegistrableDomain(host)+jarExt)
}

// OpenJar loads the jar of host from dir, creating an empty one when no
// file exists yet. key must be 32 bytes.
func OpenJar(fs afero.Fs, dir, host string, key []byte) (*Jar, error) {
	rd := cookies.RegistrableDomain(host)
	if rd == "" {
		return nil, fmt.Errorf("open jar: empty host")
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("open jar: invalid key length %d", len(key))
	}
	j := &Jar{
		fs:      fs,
		path:    JarPath(dir, rd),
		host:    rd,
		key:     key,
		now:     time.Now,
		cookies: make(map[string]storedCookie),
	}
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Jar) load() error {
	data, err := afero.ReadFile(j.fs, j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var f jarFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return fmt.Errorf("decode %s: %w", j.path, err)
	}
	if f.Version != jarVersion {
		return fmt.Errorf("decode %s: unsupported version %d", j.path, f.Version)
	}
	for _, c := range f.Cookies {
		k := recordKey(c.Name, c.Domain, c.Path)
		if _, dup := j.cookies[k]; !dup {
			j.order = append(j.order, k)
		}
		j.cookies[k] = c
	}
	return nil
}

func (j *Jar) save() error {
	f := jarFile{Version: jarVersion, Host: j.host, Cookies: make([]storedCookie, 0, len(j.order))}
	for _, k := range j.order {
		f.Cookies = append(f.Cookies, j.cookies[k])
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return err
	}

	dir := filepath.Dir(j.path)
	if err := j.fs.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tmp, err := afero.TempFile(j.fs, dir, "."+filepath.Base(j.path)+".tmp.*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		j.fs.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		j.fs.Remove(tmp.Name())
		return err
	}
	if err := j.fs.Rename(tmp.Name(), j.path); err != nil {
		j.fs.Remove(tmp.Name())
		return err
	}
	return nil
}

func recordKey(name, domain, path string) string {
	return cookies.Record{Name: name, Domain: domain, Path: path}.Key()
}

// aad binds a sealed value to its cookie so values cannot be swapped
// between entries or jars.
func (j *Jar) aad(key string) []byte {
	return []byte(j.host + "|" + key)
}

// Host returns the registrable domain the jar serves.
func (j *Jar) Host() string { return j.host }

// Path returns the jar file.
func (j *Jar) Path() string { return j.path }

// Len returns the number of stored cookies, expired ones included.
func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.order)
}

// List returns the unexpired cookies in insertion order with their values
// decrypted.
func (j *Jar) List(ctx context.Context) ([]cookies.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	out := make([]cookies.Record, 0, len(j.order))
	for _, k := range j.order {
		c := j.cookies[k]
		rec := cookies.Record{
			Name:           c.Name,
			Domain:         c.Domain,
			Path:           c.Path,
			Secure:         c.Secure,
			HttpOnly:       c.HttpOnly,
			SameSite:       cookies.SameSite(c.SameSite),
			ExpirationDate: c.ExpirationDate,
		}
		if rec.Expired(now) {
			continue
		}
		value, err := encryption.DecryptValue(c.Value, j.key, j.aad(k))
		if err != nil {
			return nil, fmt.Errorf("decrypt %s: %w", c.Name, err)
		}
		rec.Value = string(value)
		out = append(out, rec)
	}
	return out, nil
}

// Set stores r, replacing the cookie with the same domain, path and name.
// A record without a domain is scoped to the jar's host.
func (j *Jar) Set(ctx context.Context, r cookies.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Domain == "" {
		r.Domain = j.host
	}
	if !cookies.MatchesHost(r.Domain, j.host) {
		return fmt.Errorf("%w: %s", ErrForeignDomain, r.Domain)
	}
	if r.Path == "" {
		r.Path = cookies.DefaultPath
	}
	k := r.Key()
	sealed, err := encryption.EncryptValue(r.Value, j.key, j.aad(k))
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", r.Name, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	prev, existed := j.cookies[k]
	if !existed {
		j.order = append(j.order, k)
	}
	j.cookies[k] = storedCookie{
		Name:           r.Name,
		Domain:         r.Domain,
		Path:           r.Path,
		Value:          sealed,
		Secure:         r.Secure,
		HttpOnly:       r.HttpOnly,
		SameSite:       string(r.SameSite),
		ExpirationDate: r.ExpirationDate,
	}
	if err := j.save(); err != nil {
		if existed {
			j.cookies[k] = prev
		} else {
			delete(j.cookies, k)
			j.order = j.order[:len(j.order)-1]
		}
		return fmt.Errorf("save jar: %w", err)
	}
	return nil
}

// Delete removes one cookie. Missing cookies are not an error.
func (j *Jar) Delete(ctx context.Context, name, domain, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := recordKey(name, domain, path)
	j.mu.Lock()
	defer j.mu.Unlock()
	prev, ok := j.cookies[k]
	if !ok {
		return nil
	}
	prevOrder := append([]string(nil), j.order...)
	delete(j.cookies, k)
	for i, o := range j.order {
		if o == k {
			j.order = append(j.order[:i], j.order[i+1:]...)
			break
		}
	}
	if err := j.save(); err != nil {
		j.cookies[k] = prev
		j.order = prevOrder
		return fmt.Errorf("save jar: %w", err)
	}
	return nil
}

// Clear removes every cookie and returns how many were stored.
func (j *Jar) Clear(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	n := len(j.order)
	if n == 0 {
		return 0, nil
	}
	prev, prevOrder := j.cookies, j.order
	j.cookies = make(map[string]storedCookie)
	j.order = nil
	if err := j.save(); err != nil {
		j.cookies, j.order = prev, prevOrder
		return 0, fmt.Errorf("save jar: %w", err)
	}
	return n, nil
}

// Hosts lists the registrable domains with a jar under dir.
func Hosts(fs afero.Fs, dir string) ([]string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var hosts []string
	for _, fi := range infos {
		name := fi.Name()
		if fi.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, jarExt) {
			continue
		}
		hosts = append(hosts, strings.TrimSuffix(name, jarExt))
	}
	sort.Strings(hosts)
	return hosts, nil
}

var _ cookies.Jar = (*Jar)(nil)
