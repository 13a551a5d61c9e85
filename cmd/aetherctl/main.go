// Command aetherctl is the minimal CLI entrypoint spec.md §6 describes:
// the core is a library, this binary is the "calling shell" that wires a
// Core handle and dispatches the operation table to it. Real argument
// parsing/UX is an external collaborator's job (spec.md §1 Non-goals);
// this keeps to flag and one positional operation name, in the spirit of
// the teacher's own bare-bones CLI wiring.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/java"
)

// Exit codes per spec.md §6.
const (
	exitOK                     = 0
	exitGenericFailure         = 1
	exitInstanceInstalling     = 2
	exitInstanceAlreadyRunning = 3
	exitContentProviderMissing = 4
	exitPluginLoadError        = 5
	exitNoCredentials          = 6
)

func main() {
	configDir := flag.String("config-dir", defaultConfigDir(), "launcher config/data root")
	settingsDir := flag.String("settings-dir", defaultSettingsDir(), "launcher settings root")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: aetherctl [flags] <operation> [args...]")
		os.Exit(exitGenericFailure)
	}

	core, err := NewCore(*configDir, *settingsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(exitGenericFailure)
	}

	os.Exit(dispatch(context.Background(), core, args[0], args[1:]))
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".aether"
	}
	return dir + "/aether"
}

func defaultSettingsDir() string { return defaultConfigDir() }

// dispatch runs one operation table entry (spec.md §6) and returns the
// process exit code for it.
func dispatch(ctx context.Context, core *Core, op string, rest []string) int {
	switch op {
	case "instance.create":
		return cmdInstanceCreate(ctx, core, rest)
	case "instance.list":
		return cmdInstanceList(core)
	case "instance.get":
		return cmdInstanceGet(core, rest)
	case "instance.remove":
		return cmdInstanceRemove(core, rest)
	case "instance.install":
		return cmdInstanceInstall(ctx, core, rest)
	case "instance.update":
		return cmdInstanceUpdate(ctx, core, rest)
	case "instance.launch":
		return cmdInstanceLaunch(ctx, core, rest)
	case "instance.content.list":
		return cmdContentList(core, rest)
	case "plugin.sync":
		return cmdPluginSync(ctx, core)
	case "plugin.list":
		return cmdPluginList(core)
	case "plugin.enable":
		return cmdPluginEnable(ctx, core, rest)
	case "plugin.disable":
		return cmdPluginDisable(ctx, core, rest)
	case "java.get":
		return cmdJavaGet(core, rest)
	default:
		fmt.Fprintln(os.Stderr, "unknown operation:", op)
		return exitGenericFailure
	}
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitGenericFailure
	}
	return exitOK
}

// exitForErr maps a domainerr.Kind to spec.md §6's exit codes, falling
// back to generic failure for everything not explicitly enumerated.
func exitForErr(err error) int {
	if err == nil {
		return exitOK
	}
	switch domainerr.KindOf(err) {
	case domainerr.KindInstanceStillInstalling:
		return exitInstanceInstalling
	case domainerr.KindInstanceAlreadyRunning:
		return exitInstanceAlreadyRunning
	case domainerr.KindContentProviderNotFound:
		return exitContentProviderMissing
	case domainerr.KindPluginLoadFailed, domainerr.KindPluginAlreadyLoading:
		return exitPluginLoadError
	case domainerr.KindNoValueFor:
		return exitNoCredentials
	default:
		return exitGenericFailure
	}
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, "error:", err)
	return exitForErr(err)
}

func cmdInstanceCreate(ctx context.Context, core *Core, rest []string) int {
	fs := flag.NewFlagSet("instance.create", flag.ExitOnError)
	name := fs.String("name", "", "instance name")
	version := fs.String("game-version", "", "Minecraft version id")
	loader := fs.String("loader", "vanilla", "mod loader")
	fs.Parse(rest)

	id, err := core.Instances.Create(ctx, domain.NewInstance{
		Name: *name, GameVersion: *version, ModLoader: domain.ModLoader(*loader),
	})
	if err != nil {
		return fail(err)
	}
	return printJSON(map[string]string{"id": id})
}

func cmdInstanceList(core *Core) int {
	list, err := core.Instances.List()
	if err != nil {
		return fail(err)
	}
	return printJSON(list)
}

func cmdInstanceGet(core *Core, rest []string) int {
	if len(rest) < 1 {
		return exitGenericFailure
	}
	inst, err := core.Instances.Get(rest[0])
	if err != nil {
		return fail(err)
	}
	return printJSON(inst)
}

func cmdInstanceRemove(core *Core, rest []string) int {
	if len(rest) < 1 {
		return exitGenericFailure
	}
	if err := core.Instances.Remove(rest[0]); err != nil {
		return fail(err)
	}
	return exitOK
}

func cmdInstanceInstall(ctx context.Context, core *Core, rest []string) int {
	fs := flag.NewFlagSet("instance.install", flag.ExitOnError)
	force := fs.Bool("force", false, "reinstall even if already installed")
	fs.Parse(rest)
	if fs.NArg() < 1 {
		return exitGenericFailure
	}
	if err := core.Instances.Install(ctx, fs.Arg(0), *force); err != nil {
		return fail(err)
	}
	return exitOK
}

func cmdInstanceUpdate(ctx context.Context, core *Core, rest []string) int {
	if len(rest) < 1 {
		return exitGenericFailure
	}
	if err := core.Instances.Update(ctx, rest[0]); err != nil {
		return fail(err)
	}
	return exitOK
}

func cmdInstanceLaunch(ctx context.Context, core *Core, rest []string) int {
	if len(rest) < 1 {
		return exitGenericFailure
	}
	active, err := core.Credentials.Active()
	if err != nil {
		return fail(err)
	}
	if active == nil {
		return fail(domainerr.New(domainerr.KindNoValueFor, "active credentials"))
	}
	pid, err := core.Instances.Launch(ctx, rest[0], *active)
	if err != nil {
		return fail(err)
	}
	return printJSON(map[string]string{"process_id": pid})
}

func cmdContentList(core *Core, rest []string) int {
	if len(rest) < 1 {
		return exitGenericFailure
	}
	files, err := core.Instances.ListContent(rest[0])
	if err != nil {
		return fail(err)
	}
	return printJSON(files)
}

func cmdPluginSync(ctx context.Context, core *Core) int {
	if err := core.Plugins.Sync(ctx); err != nil {
		return fail(err)
	}
	return exitOK
}

func cmdPluginList(core *Core) int {
	return printJSON(core.Plugins.List())
}

func cmdPluginEnable(ctx context.Context, core *Core, rest []string) int {
	if len(rest) < 1 {
		return exitGenericFailure
	}
	if err := core.Plugins.Enable(ctx, rest[0]); err != nil {
		return fail(err)
	}
	return exitOK
}

func cmdPluginDisable(ctx context.Context, core *Core, rest []string) int {
	if len(rest) < 1 {
		return exitGenericFailure
	}
	if err := core.Plugins.Disable(ctx, rest[0]); err != nil {
		return fail(err)
	}
	return exitOK
}

func cmdJavaGet(core *Core, rest []string) int {
	if len(rest) < 1 {
		return exitGenericFailure
	}
	var major int
	if _, err := fmt.Sscanf(rest[0], "%d", &major); err != nil {
		return exitGenericFailure
	}
	known, err := core.Instances.JavaStore.List()
	if err != nil {
		return fail(err)
	}
	found, ok := java.GetBestJavaInstallation(known, major, "")
	if !ok {
		installed, err := core.JavaMgr.Install(context.Background(), major, "")
		if err != nil {
			return fail(err)
		}
		return printJSON(installed)
	}
	return printJSON(found)
}
