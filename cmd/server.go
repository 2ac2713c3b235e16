package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli"
	"github.com/warpdl/cookieshare/cmd/common"
	"github.com/warpdl/cookieshare/internal/transfer"
)

var serverCommands = []cli.Command{
	{
		Name:   "show",
		Usage:  "print the relay configuration",
		Action: withEnv("server", serverShow),
	},
	{
		Name:      "set",
		Usage:     "set the default relay",
		ArgsUsage: "URL",
		Action:    withEnv("server", serverSet),
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "password",
				Usage: "admin password sent when receiving and listing",
			},
			cli.BoolFlag{
				Name:  "remember",
				Usage: "store the password (encrypted) for later runs",
			},
		},
	},
	{
		Name:   "clear",
		Usage:  "forget the relay configuration",
		Action: withEnv("server", serverClear),
	},
}

func serverShow(ctx *cli.Context, env *common.Env) error {
	cfg := env.Server().Get()
	if !cfg.Configured() {
		fmt.Println("No relay configured. Use \"cookieshare server set URL\".")
		return nil
	}
	fmt.Printf("Relay:    %s\n", cfg.URL)
	pw := "not set"
	if cfg.Password != "" {
		pw = "set"
	}
	fmt.Printf("Password: %s\n", pw)
	fmt.Printf("Remember: %t\n", env.Config.Get().Remember)
	for _, name := range []string{common.ServerEnv, common.PasswordEnv} {
		if os.Getenv(name) != "" {
			fmt.Printf("(%s overrides the stored value)\n", name)
		}
	}
	return nil
}

func serverSet(ctx *cli.Context, env *common.Env) error {
	raw := ctx.Args().First()
	if raw == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no relay URL provided"))
	}
	cfg := transfer.ServerConfig{
		URL:      raw,
		Password: ctx.String("password"),
		Remember: ctx.Bool("remember"),
	}
	if err := env.Config.Set(cfg); err != nil {
		common.PrintRuntimeErr(ctx, "server", "set", err)
		return nil
	}
	fmt.Printf("Relay set to %s\n", env.Config.Get().URL)
	if cfg.Password != "" && !cfg.Remember {
		fmt.Println("The password is not stored; pass --remember or set " + common.PasswordEnv + ".")
	}
	return nil
}

func serverClear(ctx *cli.Context, env *common.Env) error {
	env.Config.Clear()
	fmt.Println("Relay configuration cleared")
	return nil
}
