package nativehost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"github.com/warpdl/cookieshare/cmd/common"
	"github.com/warpdl/cookieshare/internal/nativehost"
	"github.com/warpdl/cookieshare/internal/transfer"
)

var openEnv = common.OpenEnv

var httpClient transfer.Doer = http.DefaultClient

func run(c *cli.Context) error {
	env, err := openEnv(false)
	if err != nil {
		// stdout belongs to the browser; it reads errors from stderr
		fmt.Fprintf(os.Stderr, "failed to open cookieshare state: %v\n", err)
		return cli.NewExitError("failed to open cookieshare state", 1)
	}
	defer env.Close()

	host := nativehost.NewHost(nativehost.Backend{
		Version:       c.App.Version,
		Registry:      env.Registry,
		Config:        env.Config,
		OpenJar:       env.CookieJar,
		EngineOptions: []transfer.Option{transfer.WithHTTPClient(httpClient)},
	}, env.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := host.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "native host error: %v\n", err)
		return cli.NewExitError("native host error", 1)
	}
	return nil
}
