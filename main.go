/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/framegraph/engine"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/memory"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/testbed"
)

func main() {
	configPath := flag.String("config", "configs/engine.toml", "engine configuration file, reloaded on change")
	frames := flag.Int("frames", -1, "number of frames to draw, negative runs until interrupted")
	flag.Parse()

	config, err := core.LoadConfig(*configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		core.LogWarn("%s not found, using the default configuration", *configPath)
		config = core.DefaultConfig()
	case err != nil:
		core.LogFatal("failed to load configuration: %s", err)
	}

	tb := testbed.NewTestGame(config)

	e, err := engine.New(tb.Game, memory.New(metadata.Limits{}))
	if err != nil {
		core.LogFatal(err.Error())
	}
	if err := e.Initialize(); err != nil {
		core.LogFatal(err.Error())
	}
	if _, err := os.Stat(*configPath); err == nil {
		if err := e.WatchConfig(*configPath); err != nil {
			core.LogWarn("configuration will not be reloaded: %s", err)
		}
	}

	// signal context to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	runErr := e.RunFrames(ctx, *frames)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogFatal(runErr.Error())
	}
	core.LogInfo("%d frames drawn", e.Metrics().TotalFrames())
}
