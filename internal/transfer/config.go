package transfer

import (
	"fmt"
	"sync"

	"github.com/warpdl/cookieshare/internal/cell"
	"github.com/warpdl/cookieshare/internal/kvstore"
	"github.com/warpdl/cookieshare/pkg/logger"
)

// ConfigKey is the store key holding the server configuration.
const ConfigKey = "cookie_share_server_config"

// ServerConfig holds the relay connection settings.
type ServerConfig struct {
	URL      string `json:"url"`
	Password string `json:"password,omitempty"`
	Remember bool   `json:"remember"`
}

// Configured reports whether a relay URL is set.
func (c ServerConfig) Configured() bool {
	return c.URL != ""
}

// ConfigSource provides the current server configuration.
// Both *cell.Cell[ServerConfig] and *ConfigStore satisfy it.
type ConfigSource interface {
	Get() ServerConfig
}

// Sealer protects the admin password at rest.
type Sealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}

// ConfigStore persists the server configuration. The password is written
// sealed when Remember is set and never written otherwise; Get always
// returns it in plain text for the running session.
type ConfigStore struct {
	cell   *cell.Cell[ServerConfig]
	sealer Sealer
	log    logger.Logger

	mu      sync.RWMutex
	current ServerConfig
	cancel  func()
}

// NewConfigStore binds the configuration key of store. A nil sealer
// disables password persistence.
func NewConfigStore(store kvstore.Store, sealer Sealer, log logger.Logger) *ConfigStore {
	if log == nil {
		log = logger.NewNopLogger()
	}
	cs := &ConfigStore{
		cell:   cell.New(store, ConfigKey, ServerConfig{}, cell.WithLogger(log)),
		sealer: sealer,
		log:    log,
	}
	cs.current = cs.open(cs.cell.Get())
	cs.cancel = cs.cell.Subscribe(func(_, stored ServerConfig) {
		plain := cs.open(stored)
		cs.mu.Lock()
		cs.current = plain
		cs.mu.Unlock()
	})
	return cs
}

func (cs *ConfigStore) open(stored ServerConfig) ServerConfig {
	if stored.Password == "" {
		return stored
	}
	if cs.sealer == nil {
		stored.Password = ""
		return stored
	}
	plain, err := cs.sealer.Open(stored.Password)
	if err != nil {
		cs.log.Warning("server config: stored password unreadable, ignoring it: %v", err)
		stored.Password = ""
		return stored
	}
	stored.Password = plain
	return stored
}

// Get returns the configuration with the plain password.
func (cs *ConfigStore) Get() ServerConfig {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.current
}

// Set validates and stores cfg.
func (cs *ConfigStore) Set(cfg ServerConfig) error {
	if cfg.URL != "" {
		u, err := ValidateURL(cfg.URL)
		if err != nil {
			return err
		}
		cfg.URL = u
	}
	persisted := cfg
	switch {
	case !cfg.Remember || cs.sealer == nil:
		persisted.Password = ""
	case cfg.Password != "":
		sealed, err := cs.sealer.Seal(cfg.Password)
		if err != nil {
			return fmt.Errorf("seal password: %w", err)
		}
		persisted.Password = sealed
	}
	cs.cell.Set(persisted)
	cs.mu.Lock()
	cs.current = cfg
	cs.mu.Unlock()
	return nil
}

// Clear removes the stored configuration.
func (cs *ConfigStore) Clear() {
	cs.cell.Remove()
	cs.mu.Lock()
	cs.current = ServerConfig{}
	cs.mu.Unlock()
}

// Close stops following changes from other contexts.
func (cs *ConfigStore) Close() {
	cs.cancel()
	cs.cell.Close()
}
