package engine

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lantern-engine/lantern/engine/assets"
	"github.com/lantern-engine/lantern/engine/core"
	"github.com/lantern-engine/lantern/engine/platform"
	"github.com/lantern-engine/lantern/engine/renderer/vulkan"
	"github.com/lantern-engine/lantern/engine/scene"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *core.EngineConfig
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	renderer     *vulkan.VulkanRenderer
	importer     *assets.Importer
	watcher      *assets.Watcher
	camera       *scene.Camera
	clock        *core.Clock
	lastTime     float64
	width        uint32
	height       uint32

	mu           sync.Mutex
	currentScene *assets.ImportedScene
	reloadPath   string
}

func New(g *Game, config *core.EngineConfig) (*Engine, error) {
	if config == nil {
		config = core.DefaultConfig()
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       config,
		platform:     platform.New(),
		camera:       scene.NewCamera(),
		clock:        core.NewClock(),
		isRunning:    true,
		width:        config.Window.Width,
		height:       config.Window.Height,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if !core.EventSystemInitialize() {
		err := errors.New("failed to initialize the event system")
		core.LogError(err.Error())
		return err
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_WINDOW_CLOSED, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, e, e.onAssetChanged)

	if err := e.platform.Startup(e.config.Window.Title,
		e.config.Window.PosX, e.config.Window.PosY,
		e.width, e.height); err != nil {
		return err
	}

	e.renderer = vulkan.New(e.platform, e.config)
	if err := e.renderer.Initialize(e.config.Window.Title, e.width, e.height); err != nil {
		return err
	}
	e.importer = assets.NewImporter(e.renderer)

	if e.config.Assets.WatchFiles {
		watcher, err := assets.NewWatcher(e.config.Assets.Dir)
		if err != nil {
			core.LogWarn("asset watching disabled: %v", err)
		} else {
			e.watcher = watcher
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// Camera returns the scene camera the render loop draws with.
func (e *Engine) Camera() *scene.Camera {
	return e.camera
}

// Scene returns the currently resident scene, or nil.
func (e *Engine) Scene() *assets.ImportedScene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentScene
}

// LoadScene reads a scene container from disk, uploads it to the GPU and
// makes it the scene the frame loop draws. The previous scene is released.
func (e *Engine) LoadScene(path string) error {
	asset, err := assets.LoadSceneAsset(path)
	if err != nil {
		return err
	}
	imported, err := e.importer.Import(asset)
	if err != nil {
		return err
	}

	e.mu.Lock()
	previous := e.currentScene
	e.currentScene = imported
	e.mu.Unlock()

	if previous != nil {
		previous.Release(e.renderer)
	}
	core.LogInfo("scene %q (%s) resident: %d textures, %d meshes, %d materials",
		imported.Name, imported.ID, len(imported.Textures), len(imported.Geometries), len(imported.Materials))
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
		}

		if e.isSuspended {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		core.MetricsFrameBegin()

		if path := e.takeReload(); path != "" {
			if err := e.LoadScene(path); err != nil {
				core.LogError("scene reload failed: %v", err)
			}
		}

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(e, delta); err != nil {
				core.LogFatal("game update failed, shutting down: %v", err)
				e.isRunning = false
				break
			}
		}

		var records []scene.DrawRecord
		e.mu.Lock()
		if e.currentScene != nil {
			records = scene.Collect(&e.currentScene.Graph, e.renderer.ResolvePipeline)
		}
		e.mu.Unlock()

		if err := e.renderer.DrawScene(records, e.camera, float32(currentTime)); err != nil {
			core.LogError("frame draw failed: %v", err)
			e.isRunning = false
			break
		}

		core.MetricsFrameEnd()
		core.MetricsUpdate(currentTime - e.lastTime)
		e.lastTime = currentTime
	}

	return e.Shutdown()
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown hook failed: %v", err)
		}
	}

	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			core.LogWarn("asset watcher close failed: %v", err)
		}
	}

	e.mu.Lock()
	current := e.currentScene
	e.currentScene = nil
	e.mu.Unlock()
	if current != nil {
		current.Release(e.renderer)
	}

	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			return err
		}
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	core.EventSystemShutdown()
	return nil
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) takeReload() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	path := e.reloadPath
	e.reloadPath = ""
	return path
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT, core.EVENT_CODE_WINDOW_CLOSED:
		core.LogInfo("quit event received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if code != core.EVENT_CODE_RESIZED {
		return false
	}
	width := context.Data.U32[0]
	height := context.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending frame loop.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("window restored, resuming frame loop.")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	e.renderer.Resized(width, height)
	return true
}

func (e *Engine) onAssetChanged(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if code != core.EVENT_CODE_ASSET_CHANGED {
		return false
	}
	path := context.Data.Str
	core.LogDebug("asset changed on disk: %s", path)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.currentScene != nil && assets.IsSceneContainer(path) {
		e.reloadPath = path
	}
	return true
}
