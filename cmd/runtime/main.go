package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/profile"

	"github.com/lupine-engine/lupine/internal/core/bundle"
	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/runtime"
)

// Exit codes: 0 clean shutdown, 1 runtime failure, 2 project load
// failure, 3 scene load failure.
const (
	exitOK      = 0
	exitRuntime = 1
	exitProject = 2
	exitScene   = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	profileCPU := flag.Bool("profile", false, "write a cpu profile to the working directory")
	flag.Parse()

	if *profileCPU {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	logger := log.Provide()

	// With a path-to-project.lupine argument (or, as a convenience, its
	// directory) the runtime reads loose files; without one it expects a
	// bundle embedded in its own executable.
	var fs runtime.FileSystem
	projectFile := "project.lupine"
	if flag.NArg() > 0 {
		var err error
		fs, projectFile, err = resolveProject(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot open project:", err)
			return exitProject
		}
	} else {
		exe, err := os.Executable()
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot locate executable:", err)
			return exitProject
		}
		reader, err := bundle.OpenEmbedded(exe)
		if err != nil {
			fmt.Fprintln(os.Stderr, "no project path given and no embedded bundle:", err)
			return exitProject
		}
		defer reader.Close()
		fs = runtime.NewBundleFS(reader)
	}

	eng := runtime.New(runtime.Options{Logger: logger, FS: fs})

	if err := eng.LoadProject(projectFile); err != nil {
		logger.Error("failed to load project", log.Error(err))
		return exitProject
	}
	if main := eng.Project().MainScene; main != "" {
		if err := eng.LoadScene(main); err != nil {
			logger.Error("failed to load main scene", log.Error(err))
			return exitScene
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("engine stopped", log.Error(err))
		return exitRuntime
	}
	return exitOK
}

// resolveProject maps the positional argument to a file system and the
// descriptor name within it. A file argument reads its parent directory; a
// directory argument assumes a project.lupine inside it.
func resolveProject(arg string) (runtime.FileSystem, string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, "", err
	}
	if info.IsDir() {
		return runtime.NewDirFS(arg), "project.lupine", nil
	}
	return runtime.NewDirFS(filepath.Dir(arg)), filepath.Base(arg), nil
}
