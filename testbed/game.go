package testbed

import (
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lantern-engine/lantern/engine"
	"github.com/lantern-engine/lantern/engine/core"
)

const defaultScenePath = "assets/scenes/demo.lant"

type gameState struct {
	width  uint32
	height uint32

	cameraSpeed float32
	sceneLoaded bool
}

// NewTestGame wires the testbed hooks into an engine.Game. It loads the
// demo scene if one is present on disk and flies the camera slowly around
// the origin.
func NewTestGame() *engine.Game {
	state := &gameState{
		cameraSpeed: 2.5,
	}
	game := &engine.Game{
		State: state,
	}

	game.FnInitialize = func(e *engine.Engine) error {
		core.LogInfo("initializing testbed...")

		e.Camera().SetPosition(mgl32.Vec3{0, 1.5, 6})

		if _, err := os.Stat(defaultScenePath); err != nil {
			core.LogWarn("no demo scene at %s, starting empty", defaultScenePath)
			return nil
		}
		if err := e.LoadScene(defaultScenePath); err != nil {
			return err
		}
		state.sceneLoaded = true
		return nil
	}

	game.FnUpdate = func(e *engine.Engine, deltaTime float64) error {
		// Slow orbit to keep the scene moving even without input handling.
		e.Camera().Yaw(float32(deltaTime) * 0.1)
		return nil
	}

	game.FnOnResize = func(width, height uint32) error {
		state.width = width
		state.height = height
		return nil
	}

	game.FnShutdown = func() error {
		core.LogInfo("testbed shutting down.")
		return nil
	}

	return game
}
