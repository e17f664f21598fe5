package assets

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/lantern-engine/lantern/engine/core"
)

// Watcher observes asset directories and fires EVENT_CODE_ASSET_CHANGED
// when a relevant file is written or created. Reload policy belongs to
// the listeners.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Extensions worth reacting to. Editors drop plenty of temp files next to
// the real ones.
var watchedExtensions = map[string]struct{}{
	".lant": {},
	".spv":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".bmp":  {},
	".toml": {},
}

// IsSceneContainer reports whether path looks like a packed scene file.
func IsSceneContainer(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".lant"
}

func NewWatcher(dirs ...string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating filesystem watcher")
	}
	for _, dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, errors.Wrapf(err, "watching %s", dir)
		}
		core.LogDebug("watching %s for asset changes", dir)
	}

	w := &Watcher{
		watcher: fsWatcher,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			ext := strings.ToLower(filepath.Ext(event.Name))
			if _, watched := watchedExtensions[ext]; !watched {
				continue
			}
			core.LogDebug("asset changed on disk: %s", event.Name)
			context := core.EventContext{}
			context.Data.Str = event.Name
			core.EventFire(core.EVENT_CODE_ASSET_CHANGED, w, context)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			core.LogWarn("asset watcher error: %v", err)
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
