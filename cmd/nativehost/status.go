package nativehost

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/warpdl/cookieshare/cmd/common"
	"github.com/warpdl/cookieshare/internal/nativehost"
)

func status(c *cli.Context) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to get home directory: %v", err), 1)
	}

	fmt.Println("Native Messaging Host Status")
	fmt.Println("============================")
	fmt.Printf("Host Name: %s\n\n", nativehost.HostName)

	for _, b := range nativehost.SupportedBrowsers() {
		path := nativehost.ManifestPath(b, runtime.GOOS, homeDir)
		if ok, _ := afero.Exists(common.AppFs, path); path != "" && ok {
			fmt.Printf("%s: Installed\n", b)
			fmt.Printf("  Path: %s\n", path)
			continue
		}
		fmt.Printf("%s: Not installed\n", b)
	}
	return nil
}
