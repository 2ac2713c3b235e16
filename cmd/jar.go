package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"
	"github.com/warpdl/cookieshare/cmd/common"
	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/pkg/credman"
)

var jarCommands = []cli.Command{
	{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "list the jars, or the cookies of one jar",
		Action:  withEnv("jar", jarList),
		Flags:   []cli.Flag{hostFlag},
	},
	{
		Name:      "capture",
		Usage:     "import cookies from a browser profile or cookies.txt",
		ArgsUsage: "PATH",
		Action:    withEnv("jar", jarCapture),
		Flags: []cli.Flag{
			hostFlag,
			cli.BoolFlag{
				Name:  "replace",
				Usage: "empty the jar before importing",
			},
		},
	},
	{
		Name:      "export",
		Usage:     "write a jar as a Netscape cookies.txt file",
		ArgsUsage: "[FILE]",
		Action:    withEnv("jar", jarExport),
		Flags:     []cli.Flag{hostFlag},
	},
	{
		Name:   "clear",
		Usage:  "remove every cookie of a jar",
		Action: withEnv("jar", jarClear),
		Flags:  []cli.Flag{hostFlag},
	},
}

func jarList(ctx *cli.Context, env *common.Env) error {
	if ctx.String("host") == "" {
		hosts, err := credman.Hosts(env.Fs, env.JarDir())
		if err != nil {
			common.PrintRuntimeErr(ctx, "jar", "list", err)
			return nil
		}
		if len(hosts) == 0 {
			fmt.Println("cookieshare: no cookie jars")
			return nil
		}
		for _, h := range hosts {
			fmt.Println(h)
		}
		return nil
	}
	host, ok := requireHost(ctx)
	if !ok {
		return nil
	}
	jar, err := env.OpenJar(host)
	if err != nil {
		common.PrintRuntimeErr(ctx, "jar", "open_jar", err)
		return nil
	}
	records, err := jar.List(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "jar", "list", err)
		return nil
	}
	if len(records) == 0 {
		fmt.Printf("The jar of %s is empty\n", jar.Host())
		return nil
	}
	txt := fmt.Sprintf("Cookies of %s:", jar.Host())
	txt += "\n\n|        Name        |       Domain       |      Expires     |"
	txt += "\n|--------------------|--------------------|------------------|"
	for _, r := range records {
		expires := "session"
		if !r.Session() {
			expires = r.Expires().Local().Format("2006-01-02 15:04")
		}
		txt += fmt.Sprintf("\n|%s|%s|%s|", common.Center(r.Name, 20), common.Center(r.Domain, 20), common.Center(expires, 18))
	}
	fmt.Println(txt)
	return nil
}


func jarCapture(ctx *cli.Context, env *common.Env) error {
	host, ok := requireHost(ctx)
	if !ok {
		return nil
	}
	path := ctx.Args().First()
	if path == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no cookie store path provided"))
	}
	records, src, err := cookies.Capture(path, host)
	if err != nil {
		common.PrintRuntimeErr(ctx, "jar", "capture", err)
		return nil
	}
	jar, err := env.OpenJar(host)
	if err != nil {
		common.PrintRuntimeErr(ctx, "jar", "open_jar", err)
		return nil
	}
	bg := context.Background()
	if ctx.Bool("replace") {
		if _, err := jar.Clear(bg); err != nil {
			common.PrintRuntimeErr(ctx, "jar", "clear", err)
			return nil
		}
	}
	stored := 0
	for _, r := range records {
		if err := jar.Set(bg, r); err != nil {
			env.Log.Warning("capture: skip %s (%s): %v", r.Name, r.Domain, err)
			continue
		}
		stored++
	}
	fmt.Printf("Captured %d cookies for %s from %s store %s\n", stored, jar.Host(), src.Format, src.Path)
	return nil
}

func jarExport(ctx *cli.Context, env *common.Env) error {
	host, ok := requireHost(ctx)
	if !ok {
		return nil
	}
	jar, err := env.OpenJar(host)
	if err != nil {
		common.PrintRuntimeErr(ctx, "jar", "open_jar", err)
		return nil
	}
	records, err := jar.List(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "jar", "list", err)
		return nil
	}
	out := ctx.Args().First()
	toFile := out != "" && out != "-"
	var w io.Writer = os.Stdout
	if toFile {
		f, err := env.Fs.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			common.PrintRuntimeErr(ctx, "jar", "export", err)
			return nil
		}
		defer f.Close()
		w = f
	}
	if err := cookies.WriteNetscape(w, records); err != nil {
		common.PrintRuntimeErr(ctx, "jar", "export", err)
		return nil
	}
	if toFile {
		fmt.Printf("Exported %d cookies of %s to %s\n", len(records), jar.Host(), out)
	}
	return nil
}

func jarClear(ctx *cli.Context, env *common.Env) error {
	host, ok := requireHost(ctx)
	if !ok {
		return nil
	}
	jar, err := env.OpenJar(host)
	if err != nil {
		common.PrintRuntimeErr(ctx, "jar", "open_jar", err)
		return nil
	}
	n, err := jar.Clear(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "jar", "clear", err)
		return nil
	}
	fmt.Printf("Removed %d cookies of %s\n", n, jar.Host())
	return nil
}
