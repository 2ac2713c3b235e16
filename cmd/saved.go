package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli"
	"github.com/warpdl/cookieshare/cmd/common"
	"github.com/warpdl/cookieshare/internal/registry"
	"github.com/warpdl/cookieshare/internal/transfer"
)

var savedCommands = []cli.Command{
	{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "show your saved cookie sets",
		Action:  withEnv("saved", savedList),
	},
	{
		Name:      "add",
		Usage:     "save an id",
		ArgsUsage: "ID [URL]",
		Action:    withEnv("saved", savedAdd),
		Flags: []cli.Flag{
			cli.StringFlag{Name: "note, n", Usage: "note saved with the id"},
		},
	},
	{
		Name:      "rm",
		Aliases:   []string{"remove"},
		Usage:     "forget an id",
		ArgsUsage: "ID",
		Action:    withEnv("saved", savedRemove),
	},
	{
		Name:      "note",
		Usage:     "change the note of an id",
		ArgsUsage: "ID NOTE",
		Action:    withEnv("saved", savedNote),
	},
	{
		Name:      "pin",
		Usage:     "pin an id",
		ArgsUsage: "ID",
		Action:    withEnv("saved", savedPin(true)),
	},
	{
		Name:      "unpin",
		Usage:     "unpin an id",
		ArgsUsage: "ID",
		Action:    withEnv("saved", savedPin(false)),
	},
	{
		Name:      "mv",
		Usage:     "move the entry at position FROM to position TO",
		ArgsUsage: "FROM TO",
		Action:    withEnv("saved", savedMove),
	},
	{
		Name:      "touch",
		Usage:     "mark an id as just used",
		ArgsUsage: "ID",
		Action:    withEnv("saved", savedTouch),
	},
}

func savedList(ctx *cli.Context, env *common.Env) error {
	entries := env.Registry.List()
	if len(entries) == 0 {
		fmt.Println("cookieshare: no saved cookie sets")
		return nil
	}
	txt := "Your saved cookie sets:"
	txt += "\n\n|Num|     ID     |   Last used    | URL / note"
	txt += "\n|---|------------|----------------|------------------------------"
	for _, e := range entries {
		num := strconv.Itoa(e.Order + 1)
		if e.Pinned {
			num += "*"
		}
		used := "never"
		if t := e.LastUsedTime(); !t.IsZero() {
			used = t.Local().Format("2006-01-02 15:04")
		}
		line := e.URL
		if e.Note != "" {
			line += " (" + e.Note + ")"
		}
		txt += fmt.Sprintf("\n|%s|%s|%s| %s", common.Center(num, 3), common.Center(e.ID, 12), common.Center(used, 16), line)
	}
	fmt.Println(txt)
	return nil
}

func savedAdd(ctx *cli.Context, env *common.Env) error {
	id := ctx.Args().Get(0)
	if id == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no cookie id provided"))
	}
	u := ctx.Args().Get(1)
	if u != "" {
		var err error
		if u, err = transfer.ValidateURL(u); err != nil {
			common.PrintRuntimeErr(ctx, "saved", "add", err)
			return nil
		}
	}
	if !env.Registry.Add(registry.Ref{ID: id, URL: u}, ctx.String("note")) {
		fmt.Printf("%s is already saved\n", id)
		return nil
	}
	fmt.Printf("Saved %s\n", id)
	return nil
}

// entryAction runs fn on the id given as the first argument.
func entryAction(ctx *cli.Context, env *common.Env, action string, fn func(id string) bool) error {
	id := ctx.Args().Get(0)
	if id == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no cookie id provided"))
	}
	if !fn(id) {
		common.PrintRuntimeErr(ctx, "saved", action, fmt.Errorf("%s is not saved", id))
		return nil
	}
	return nil
}

func savedRemove(ctx *cli.Context, env *common.Env) error {
	return entryAction(ctx, env, "rm", env.Registry.Remove)
}

func savedTouch(ctx *cli.Context, env *common.Env) error {
	return entryAction(ctx, env, "touch", env.Registry.Touch)
}

func savedNote(ctx *cli.Context, env *common.Env) error {
	note := ctx.Args().Get(1)
	return entryAction(ctx, env, "note", func(id string) bool {
		return env.Registry.Update(id, registry.Patch{Note: &note})
	})
}

func savedPin(pinned bool) func(*cli.Context, *common.Env) error {
	return func(ctx *cli.Context, env *common.Env) error {
		return entryAction(ctx, env, "pin", func(id string) bool {
			return env.Registry.Update(id, registry.Patch{Pinned: &pinned})
		})
	}
}

func savedMove(ctx *cli.Context, env *common.Env) error {
	from, err1 := strconv.Atoi(ctx.Args().Get(0))
	to, err2 := strconv.Atoi(ctx.Args().Get(1))
	if err1 != nil || err2 != nil {
		return common.PrintErrWithCmdHelp(ctx, errors.New("FROM and TO must be positions from \"saved list\""))
	}
	if err := env.Registry.Reorder(from-1, to-1); err != nil {
		common.PrintRuntimeErr(ctx, "saved", "mv", err)
		return nil
	}
	return savedList(ctx, env)
}
