package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/warpdl/cookieshare/cmd/common"
	"github.com/warpdl/cookieshare/internal/cookies"
	"github.com/warpdl/cookieshare/internal/registry"
	"github.com/warpdl/cookieshare/internal/transfer"
	"github.com/warpdl/cookieshare/pkg/logger"
)

var (
	newID                    = transfer.NewID
	sleep                    = time.Sleep
	progressOutput io.Writer = os.Stdout
	runShell                 = shellCommand
)

var hostFlag = cli.StringFlag{
	Name:  "host, H",
	Usage: "site whose cookies are shared, e.g. example.com",
}

var (
	sendFlags = []cli.Flag{
		hostFlag,
		cli.StringFlag{
			Name:  "id, i",
			Usage: "id to store the cookies under (default: generated)",
		},
		cli.StringFlag{
			Name:  "note, n",
			Usage: "note saved with the id",
		},
		timeoutFlag,
	}
	receiveFlags = []cli.Flag{
		hostFlag,
		cli.StringFlag{
			Name:  "on-reload",
			Usage: "shell command run once the cookies are applied",
		},
		cli.StringSliceFlag{
			Name:  "protect, p",
			Usage: "cookie names never removed or overwritten (repeatable)",
		},
		timeoutFlag,
	}
	listFlags = []cli.Flag{
		hostFlag,
		cli.IntFlag{
			Name:  "retries",
			Usage: "number of attempts before giving up",
			Value: transfer.DefaultRetries,
		},
		timeoutFlag,
	}
)

func send(ctx *cli.Context, env *common.Env) error {
	host, ok := requireHost(ctx)
	if !ok {
		return nil
	}
	id := ctx.String("id")
	if id == "" {
		var err error
		if id, err = newID(); err != nil {
			common.PrintRuntimeErr(ctx, "send", "new_id", err)
			return nil
		}
	}
	jar, err := env.OpenJar(host)
	if err != nil {
		common.PrintRuntimeErr(ctx, "send", "open_jar", err)
		return nil
	}
	engine := transfer.NewEngine(transfer.Page{Host: host, Jar: jar}, env.Server(), engineOptions(ctx, env)...)
	res, err := engine.Send(context.Background(), id, ctx.Args().First())
	if err != nil {
		common.PrintRuntimeErr(ctx, "send", "relay", err)
		return nil
	}
	env.Registry.Add(registry.Ref{ID: res.ID, URL: res.URL}, ctx.String("note"))
	fmt.Printf("Sent %d cookies of %s\n", res.Count, res.URL)
	fmt.Printf("Cookie set id: %s\n", res.ID)
	if res.Message != "" {
		fmt.Println(res.Message)
	}
	return nil
}

// hostOf returns the host of a saved entry's URL.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func receive(ctx *cli.Context, env *common.Env) error {
	id := ctx.Args().Get(0)
	if id == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no cookie id provided"))
	}
	host := ctx.String("host")
	if host == "" {
		if e, ok := env.Registry.Get(id); ok {
			host = hostOf(e.URL)
		}
	}
	if cookies.RegistrableDomain(host) == "" {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("%s is not in your saved list, pass --host", id))
	}
	jar, err := env.OpenJar(host)
	if err != nil {
		common.PrintRuntimeErr(ctx, "receive", "open_jar", err)
		return nil
	}

	p := mpb.New(mpb.WithOutput(progressOutput), mpb.WithWidth(40))
	var bar *mpb.Bar
	opts := append(engineOptions(ctx, env),
		transfer.WithProgress(func(done, total int) {
			if bar == nil {
				bar = common.InitApplyBar(p, "", total)
			}
			bar.SetCurrent(int64(done))
		}),
		transfer.WithAfterFunc(func(d time.Duration, fn func()) {
			sleep(d)
			fn()
		}),
	)
	page := transfer.Page{Host: host, Jar: jar}
	if cmdline := ctx.String("on-reload"); cmdline != "" {
		page.Reload = func() {
			if err := runShell(cmdline); err != nil {
				env.Log.Warning("reload command: %v", err)
				fmt.Println("warning: reload command failed:", err)
			}
		}
	}
	engine := transfer.NewEngine(page, env.Server(), opts...)
	res, err := engine.Receive(context.Background(), id, ctx.Args().Get(1))
	if bar != nil && !bar.Completed() {
		bar.Abort(false)
	}
	p.Wait()
	if err != nil {
		common.PrintRuntimeErr(ctx, "receive", "relay", err)
		return nil
	}

	if !env.Registry.Touch(id) {
		env.Registry.Add(registry.Ref{ID: id, URL: cookies.SourceURL(host)}, "")
	}
	fmt.Printf("Imported %d cookies into %s (%d removed, %d skipped)\n",
		res.Imported, jar.Host(), res.Cleared, res.Skipped)
	return nil
}

func shellCommand(cmdline string) error {
	var c *exec.Cmd
	if runtime.GOOS == "windows" {
		c = exec.Command("cmd", "/C", cmdline)
	} else {
		c = exec.Command("sh", "-c", cmdline)
	}
	c.Stdout, c.Stderr = os.Stdout, os.Stderr
	return c.Run()
}

func list(ctx *cli.Context, env *common.Env) error {
	host, ok := requireHost(ctx)
	if !ok {
		return nil
	}
	engine := transfer.NewEngine(transfer.Page{Host: host}, env.Server(), engineOptions(ctx, env)...)
	refs, err := engine.LoadCookieList(context.Background(), ctx.Int("retries"))
	if err != nil {
		common.PrintRuntimeErr(ctx, "list", "relay", err)
		return nil
	}
	rd := cookies.RegistrableDomain(host)
	if len(refs) == 0 {
		fmt.Printf("No cookie sets found for %s\n", rd)
		return nil
	}
	printRefs(env.Log, rd, refs, env.Registry)
	return nil
}

func printRefs(l logger.Logger, rd string, refs []registry.Ref, reg *registry.Registry) {
	l.Debug("relay lists %d cookie sets for %s", len(refs), rd)
	txt := fmt.Sprintf("Cookie sets for %s:", rd)
	txt += "\n\n|Num|     ID     | Saved | URL"
	txt += "\n|---|------------|-------|------------------------------"
	for i, ref := range refs {
		saved := ""
		if _, ok := reg.Get(ref.ID); ok {
			saved = "yes"
		}
		txt += fmt.Sprintf("\n|%s|%s|%s| %s", common.Center(fmt.Sprint(i+1), 3), common.Center(ref.ID, 12), common.Center(saved, 7), ref.URL)
	}
	fmt.Println(txt)
}
