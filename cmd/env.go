package cmd

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli"
	"github.com/warpdl/cookieshare/cmd/common"
	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/internal/transfer"
)

var openEnv = common.OpenEnv

var httpClient transfer.Doer = http.DefaultClient

// withEnv opens the cookieshare state around action.
func withEnv(name string, action func(*cli.Context, *common.Env) error) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		if ctx.Args().First() == "help" {
			return cli.ShowCommandHelp(ctx, ctx.Command.Name)
		}
		env, err := openEnv(ctx.GlobalBool("verbose"))
		if err != nil {
			common.PrintRuntimeErr(ctx, name, "open_env", err)
			return nil
		}
		defer env.Close()
		return action(ctx, env)
	}
}

var timeoutFlag = cli.DurationFlag{
	Name:  "timeout, t",
	Usage: "timeout of each relay request",
	Value: transfer.DefaultTimeout,
}

func engineOptions(ctx *cli.Context, env *common.Env) []transfer.Option {
	return []transfer.Option{
		transfer.WithHTTPClient(httpClient),
		transfer.WithTimeout(ctx.Duration("timeout")),
		transfer.WithLogger(env.Log),
		transfer.WithNotifier(consoleNotifier{}),
		transfer.WithProtectedNames(protectedNames(ctx)...),
	}
}

// consoleNotifier prints engine notifications for the user.
type consoleNotifier struct{}

func (consoleNotifier) Info(msg string)    { fmt.Println(msg) }
func (consoleNotifier) Warning(msg string) { fmt.Println("warning:", msg) }
func (consoleNotifier) Error(msg string)   { fmt.Println("error:", msg) }
func (consoleNotifier) Success(msg string) { fmt.Println(msg) }

// requireHost returns the --host flag or prints the command help.
func requireHost(ctx *cli.Context) (string, bool) {
	host := ctx.String("host")
	if host == "" || cookies.RegistrableDomain(host) == "" {
		_ = common.PrintErrWithCmdHelp(ctx, fmt.Errorf("a valid --host is required"))
		return "", false
	}
	return host, true
}

func protectedNames(ctx *cli.Context) []string {
	names := append([]string{}, cookies.DefaultProtectedNames...)
	return append(names, ctx.StringSlice("protect")...)
}
