package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/internal/kvstore"
	"github.com/warpdl/cookieshare/internal/registry"
	"github.com/warpdl/cookieshare/internal/transfer"
	"github.com/warpdl/cookieshare/pkg/credman"
	"github.com/warpdl/cookieshare/pkg/credman/keyring"
	"github.com/warpdl/cookieshare/pkg/logger"
)

// Environment variables read by the CLI.
const (
	ConfigDirEnv = "COOKIESHARE_CONFIG_DIR"
	ServerEnv    = "COOKIESHARE_SERVER"
	PasswordEnv  = "COOKIESHARE_PASSWORD"
	KeyEnv       = "COOKIESHARE_KEY"
)

const (
	stateFileName = "state.json"
	logFileName   = "cookieshare.log"
	jarDirName    = "jars"
)

var (
	// AppFs is the filesystem every command works on.
	AppFs afero.Fs = afero.NewOsFs()
	// LogOutput receives log lines when verbose output is enabled.
	LogOutput io.Writer = os.Stderr

	userConfigDir = os.UserConfigDir
	newKeyring    = func() keyring.Provider { return keyring.NewKeyring() }
)

// ConfigDir returns the directory holding the state file, the jars and the
// fallback key file.
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	base, err := userConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "cookieshare"), nil
}

// Env is the state shared by the commands of one invocation.
type Env struct {
	Dir      string
	Fs       afero.Fs
	Log      logger.Logger
	Store    *kvstore.FileStore
	Registry *registry.Registry
	Config   *transfer.ConfigStore

	keys credman.Keys
}

// OpenEnv opens the state of the config directory. Logs go to the log file
// in that directory and, when verbose, to LogOutput as well.
func OpenEnv(verbose bool) (*Env, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	if err := AppFs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	l, err := openLogger(dir, verbose)
	if err != nil {
		return nil, err
	}
	env := &Env{Dir: dir, Fs: AppFs, Log: l}

	master, err := masterKey(dir, l)
	if err != nil {
		l.Close()
		return nil, err
	}
	if env.keys, err = credman.DeriveKeys(master); err != nil {
		l.Close()
		return nil, err
	}
	env.Store, err = kvstore.OpenFile(AppFs, filepath.Join(dir, stateFileName),
		kvstore.WithLogger(l), kvstore.WithWatch())
	if err != nil {
		l.Close()
		return nil, err
	}
	env.Registry = registry.New(env.Store, l)
	env.Config = transfer.NewConfigStore(env.Store, credman.NewSealer(env.keys.Password), l)
	return env, nil
}

func openLogger(dir string, verbose bool) (logger.Logger, error) {
	f, err := AppFs.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	var console logger.Logger
	if verbose {
		console = logger.NewVerboseLogger(log.New(LogOutput, "cookieshare: ", 0))
	}
	fileLog := logger.NewStandardLogger(log.New(f, "", log.LstdFlags)).WithCloser(f.Close)
	return logger.NewMultiLogger(fileLog, console), nil
}

func masterKey(dir string, l logger.Logger) ([]byte, error) {
	if v := os.Getenv(KeyEnv); v != "" {
		key, err := keyring.FromHex(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", KeyEnv, err)
		}
		return key, nil
	}
	return keyring.Resolve(l, newKeyring(), keyring.NewFileKeyStore(AppFs, dir))
}

// Server returns the relay configuration with the environment overrides
// applied.
func (e *Env) Server() transfer.ConfigSource {
	return envOverrides{base: e.Config, log: e.Log}
}

type envOverrides struct {
	base transfer.ConfigSource
	log  logger.Logger
}

func (o envOverrides) Get() transfer.ServerConfig {
	cfg := o.base.Get()
	if v := os.Getenv(ServerEnv); v != "" {
		u, err := transfer.ValidateURL(v)
		if err != nil {
			o.log.Warning("ignoring %s: %v", ServerEnv, err)
		} else {
			cfg.URL = u
		}
	}
	if v := os.Getenv(PasswordEnv); v != "" {
		cfg.Password = v
	}
	return cfg
}

// JarDir returns the directory holding the cookie jars.
func (e *Env) JarDir() string {
	return filepath.Join(e.Dir, jarDirName)
}

// OpenJar opens the stored jar of host.
func (e *Env) OpenJar(host string) (*credman.Jar, error) {
	return credman.OpenJar(e.Fs, e.JarDir(), host, e.keys.Jar)
}

// CookieJar is OpenJar returning the cookies.Jar interface.
func (e *Env) CookieJar(host string) (cookies.Jar, error) {
	j, err := e.OpenJar(host)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (e *Env) Close() error {
	e.Config.Close()
	e.Registry.Close()
	err := e.Store.Close()
	e.Log.Close()
	return err
}
