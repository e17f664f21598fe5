/*
This is an example of application that will use the
engine package to render a packed scene
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/lantern-engine/lantern/engine"
	"github.com/lantern-engine/lantern/engine/core"
	"github.com/lantern-engine/lantern/testbed"
)

const configPath = "lantern.toml"

func main() {
	config, err := core.LoadConfig(configPath)
	if err != nil {
		core.LogWarn("could not load %s, using defaults: %v", configPath, err)
		config = core.DefaultConfig()
	}

	game := testbed.NewTestGame()

	eng, err := engine.New(game, config)
	if err != nil {
		panic(err)
	}

	if err := eng.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		<-sigCh
		_ = eng.Shutdown()
	}()

	// run engine
	if err := eng.Run(); err != nil {
		panic(err)
	}
}
