package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/urfave/cli"
	"github.com/warpdl/cookieshare/cmd/common"
	"github.com/warpdl/cookieshare/cmd/nativehost"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var globalFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "verbose, V",
		Usage: "print log messages to stderr",
	},
}

func Execute(args []string, bArgs BuildArgs) error {
	app := cli.App{
		Name:                  "cookieshare",
		HelpName:              "cookieshare",
		Usage:                 "Share browser cookies between machines.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "cookieshare <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:               "send",
				Aliases:            []string{"s"},
				Usage:              "upload the cookies of a host to the relay",
				UsageText:          "send [--host HOST] [--id ID] [RELAY]",
				Action:             withEnv("send", send),
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        SendDescription,
				Flags:              sendFlags,
			},
			{
				Name:               "receive",
				Aliases:            []string{"r"},
				Usage:              "replace the cookies of a host with a shared set",
				UsageText:          "receive [--host HOST] ID [RELAY]",
				Action:             withEnv("receive", receive),
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ReceiveDescription,
				Flags:              receiveFlags,
			},
			{
				Name:               "list",
				Aliases:            []string{"l"},
				Usage:              "list the cookie sets the relay holds for a host",
				UsageText:          "list --host HOST",
				Action:             withEnv("list", list),
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ListDescription,
				Flags:              listFlags,
			},
			{
				Name:        "saved",
				Usage:       "manage your saved cookie set ids",
				Description: SavedDescription,
				Subcommands: savedCommands,
			},
			{
				Name:        "server",
				Usage:       "show or change the default relay",
				Description: ServerDescription,
				Subcommands: serverCommands,
			},
			{
				Name:        "jar",
				Usage:       "manage the local cookie jars",
				Description: JarDescription,
				Subcommands: jarCommands,
			},
			{
				Name:        "native",
				Usage:       "browser extension integration",
				Description: NativeDescription,
				Subcommands: nativehost.Commands,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of cookieshare",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(nativeLaunch(args))
}

// nativeLaunch maps a browser starting the binary as a native messaging
// host onto "native run". Chrome passes the extension origin, Firefox the
// manifest path followed by the extension id.
func nativeLaunch(args []string) []string {
	if len(args) < 2 {
		return args
	}
	first := args[1]
	if strings.HasPrefix(first, "chrome-extension://") ||
		(strings.HasSuffix(first, ".json") && len(args) == 3) {
		return []string{args[0], "native", "run"}
	}
	return args
}
