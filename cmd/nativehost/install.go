package nativehost

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"github.com/warpdl/cookieshare/cmd/common"
	"github.com/warpdl/cookieshare/internal/nativehost"
)

var executable = os.Executable

// selectBrowsers resolves the --browser flag.
func selectBrowsers(name string) ([]nativehost.Browser, error) {
	if name == "all" {
		return nativehost.SupportedBrowsers(), nil
	}
	b, err := nativehost.ParseBrowser(name)
	if err != nil {
		return nil, err
	}
	return []nativehost.Browser{b}, nil
}

func install(c *cli.Context) error {
	chromeID := c.String("chrome-extension-id")
	firefoxID := c.String("firefox-extension-id")

	if chromeID == "" && firefoxID == "" {
		return cli.NewExitError("at least one extension ID is required (--chrome-extension-id or --firefox-extension-id)", 1)
	}
	browsers, err := selectBrowsers(c.String("browser"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	hostPath, err := executable()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to get executable path: %v", err), 1)
	}
	installer := &nativehost.ManifestInstaller{Fs: common.AppFs, HostPath: hostPath}

	var installed, errs []string
	for _, b := range browsers {
		id := chromeID
		if b == nativehost.BrowserFirefox {
			id = firefoxID
		}
		if id == "" {
			if len(browsers) == 1 {
				errs = append(errs, fmt.Sprintf("%s: no extension ID given", b))
			}
			continue
		}
		path, err := installer.Install(b, id)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", b, err))
			continue
		}
		installed = append(installed, fmt.Sprintf("%s: %s", b, path))
	}

	if len(installed) > 0 {
		fmt.Println("Installed manifests:")
		for _, m := range installed {
			fmt.Printf("  %s\n", m)
		}
	}
	if len(errs) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range errs {
			fmt.Printf("  %s\n", e)
		}
		if len(installed) == 0 {
			return cli.NewExitError("installation failed", 1)
		}
	}
	return nil
}
