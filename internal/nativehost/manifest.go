package nativehost

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
)

// HostName identifies the host to browsers; extensions connect to it by
// this name.
const HostName = "com.cookieshare.host"

const manifestDescription = "cookieshare native host"

// Browser is a browser family with native messaging support.
type Browser string

const (
	BrowserChrome   Browser = "chrome"
	BrowserFirefox  Browser = "firefox"
	BrowserChromium Browser = "chromium"
	BrowserEdge     Browser = "edge"
	BrowserBrave    Browser = "brave"
)

func SupportedBrowsers() []Browser {
	return []Browser{BrowserChrome, BrowserFirefox, BrowserChromium, BrowserEdge, BrowserBrave}
}

// ParseBrowser validates a browser name.
func ParseBrowser(s string) (Browser, error) {
	for _, b := range SupportedBrowsers() {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("unsupported browser %q", s)
}

// ChromeManifest is the manifest format of Chromium-based browsers.
type ChromeManifest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Path           string   `json:"path"`
	Type           string   `json:"type"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// FirefoxManifest is the manifest format of Firefox.
type FirefoxManifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Type              string   `json:"type"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

// GenerateManifest returns the manifest of browser allowing extensionID
// to start the host at hostPath.
func GenerateManifest(browser Browser, hostPath, extensionID string) []byte {
	var m any
	if browser == BrowserFirefox {
		m = FirefoxManifest{
			Name:              HostName,
			Description:       manifestDescription,
			Path:              hostPath,
			Type:              "stdio",
			AllowedExtensions: []string{extensionID},
		}
	} else {
		m = ChromeManifest{
			Name:           HostName,
			Description:    manifestDescription,
			Path:           hostPath,
			Type:           "stdio",
			AllowedOrigins: []string{"chrome-extension://" + extensionID + "/"},
		}
	}
	b, _ := json.MarshalIndent(m, "", "  ")
	return b
}

var goos = runtime.GOOS

// ManifestPath returns where browser looks for the manifest on platform.
func ManifestPath(browser Browser, platform, homeDir string) string {
	file := HostName + ".json"
	switch platform {
	case "darwin":
		base := filepath.Join(homeDir, "Library", "Application Support")
		dirs := map[Browser]string{
			BrowserChrome:   filepath.Join(base, "Google", "Chrome"),
			BrowserChromium: filepath.Join(base, "Chromium"),
			BrowserFirefox:  filepath.Join(base, "Mozilla"),
			BrowserEdge:     filepath.Join(base, "Microsoft Edge"),
			BrowserBrave:    filepath.Join(base, "BraveSoftware", "Brave-Browser"),
		}
		if d, ok := dirs[browser]; ok {
			return filepath.Join(d, "NativeMessagingHosts", file)
		}
	case "linux":
		if browser == BrowserFirefox {
			return filepath.Join(homeDir, ".mozilla", "native-messaging-hosts", file)
		}
		dirs := map[Browser]string{
			BrowserChrome:   "google-chrome",
			BrowserChromium: "chromium",
			BrowserEdge:     "microsoft-edge",
			BrowserBrave:    filepath.Join("BraveSoftware", "Brave-Browser"),
		}
		if d, ok := dirs[browser]; ok {
			return filepath.Join(homeDir, ".config", d, "NativeMessagingHosts", file)
		}
	case "windows":
		// Windows browsers find manifests through the registry; this is only
		// where the file is kept.
		return filepath.Join(homeDir, "AppData", "Local", "cookieshare", string(browser), file)
	}
	return ""
}

// ManifestInstaller writes and removes manifests.
type ManifestInstaller struct {
	Fs       afero.Fs
	HostPath string
	// HomeDir overrides the user's home directory.
	HomeDir string
}

func (m *ManifestInstaller) home() (string, error) {
	if m.HomeDir != "" {
		return m.HomeDir, nil
	}
	return os.UserHomeDir()
}

// Install writes the manifest of browser for extensionID and returns its path.
func (m *ManifestInstaller) Install(browser Browser, extensionID string) (string, error) {
	if m.HostPath == "" {
		return "", errors.New("host path is required")
	}
	if extensionID == "" {
		return "", errors.New("extension ID is required")
	}
	home, err := m.home()
	if err != nil {
		return "", err
	}
	path := ManifestPath(browser, goos, home)
	if path == "" {
		return "", fmt.Errorf("unsupported browser/platform: %s/%s", browser, goos)
	}
	if err := m.Fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create manifest directory: %w", err)
	}
	if err := afero.WriteFile(m.Fs, path, GenerateManifest(browser, m.HostPath, extensionID), 0644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// Uninstall removes the manifest of browser. A missing manifest is not an error.
func (m *ManifestInstaller) Uninstall(browser Browser) (string, error) {
	home, err := m.home()
	if err != nil {
		return "", err
	}
	path := ManifestPath(browser, goos, home)
	if path == "" {
		return "", fmt.Errorf("unsupported browser/platform: %s/%s", browser, goos)
	}
	if err := m.Fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	return path, nil
}
