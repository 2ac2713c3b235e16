// Package nativehost holds the "native" commands: they register cookieshare
// with the browsers as a native messaging host and serve the extension.
package nativehost

import (
	"fmt"
	"strings"

	"github.com/urfave/cli"
	"github.com/warpdl/cookieshare/internal/nativehost"
)

var Commands = []cli.Command{
	{
		Name:  "install",
		Usage: "register cookieshare with the browsers",
		Description: "Writes the native messaging manifest of each browser so the\n" +
			"extension with the given id may launch cookieshare. Chromium-based\n" +
			"browsers use --chrome-extension-id, Firefox --firefox-extension-id.",
		Action: install,
		Flags:  installFlags,
	},
	{
		Name:   "uninstall",
		Usage:  "remove the browser registrations",
		Action: uninstall,
		Flags:  uninstallFlags,
	},
	{
		Name:   "status",
		Usage:  "show where cookieshare is registered",
		Action: status,
	},
	{
		// started by the browser, never by hand
		Name:   "run",
		Usage:  "serve the extension over stdin/stdout",
		Action: run,
		Hidden: true,
	},
}

// browserFlag is the --browser flag of the command doing verb.
func browserFlag(verb string) cli.StringFlag {
	names := make([]string, 0, len(nativehost.SupportedBrowsers())+1)
	for _, b := range nativehost.SupportedBrowsers() {
		names = append(names, string(b))
	}
	names = append(names, "all")
	return cli.StringFlag{
		Name:  "browser",
		Usage: fmt.Sprintf("browser to %s (%s)", verb, strings.Join(names, ", ")),
		Value: "all",
	}
}

var installFlags = []cli.Flag{
	browserFlag("register with"),
	cli.StringFlag{
		Name:  "chrome-extension-id",
		Usage: "id of the extension in Chrome, Chromium, Edge and Brave",
	},
	cli.StringFlag{
		Name:  "firefox-extension-id",
		Usage: "id of the Firefox add-on, e.g. cookieshare@example.com",
	},
}

var uninstallFlags = []cli.Flag{
	browserFlag("unregister from"),
}
