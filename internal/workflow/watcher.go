package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vibed/internal/logging"
)

// invalidator watches project override directories and reports changed
// projects so the store can drop stale cache entries.
type invalidator struct {
	log      *logging.Logger
	fw       *fsnotify.Watcher
	onChange func(projectPath string)

	mu   sync.Mutex
	dirs map[string]string // watched dir -> project path

	closeOnce sync.Once
}

func newInvalidator(onChange func(string), log *logging.Logger) (*invalidator, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	inv := &invalidator{
		log:      log,
		fw:       fw,
		onChange: onChange,
		dirs:     make(map[string]string),
	}
	go inv.run()
	return inv, nil
}

// Watch adds a directory to the watch set. Idempotent per directory.
func (i *invalidator) Watch(dir, projectPath string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.dirs[dir]; ok {
		return nil
	}
	if err := i.fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	i.dirs[dir] = projectPath
	return nil
}

// Close stops the watcher. Idempotent.
func (i *invalidator) Close() error {
	var err error
	i.closeOnce.Do(func() {
		err = i.fw.Close()
	})
	return err
}

// run pumps filesystem events until the watcher is closed.
func (i *invalidator) run() {
	for {
		select {
		case ev, ok := <-i.fw.Events:
			if !ok {
				return
			}
			if !isDefinitionFile(ev.Name) {
				continue
			}
			// Removals and renames matter: deleting an override falls
			// back to the built-in definition.
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			i.mu.Lock()
			projectPath, watched := i.dirs[filepath.Dir(ev.Name)]
			i.mu.Unlock()
			if !watched {
				continue
			}
			i.onChange(projectPath)

		case err, ok := <-i.fw.Errors:
			if !ok {
				return
			}
			i.log.Warn(context.Background(), "override watcher error", zap.Error(err))
		}
	}
}

// isDefinitionFile reports whether a path looks like a workflow definition.
func isDefinitionFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}
