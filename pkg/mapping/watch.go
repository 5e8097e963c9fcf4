package mapping

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the rules file into the engine whenever it is written, until
// ctx is done. The parent directory is watched so editors that replace the
// file on save are picked up. A file that fails to load leaves the previous
// tables in place.
func (e *Engine) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create rules watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("resolve rules path: %w", err)
	}

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch rules directory: %w", err)
	}

	log := e.log.With("rules_file", absPath)
	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				rules, err := LoadRules(absPath)
				if err != nil {
					log.Warn("Keeping previous mapping rules", "error", err)
					continue
				}
				e.SetRules(rules)
				log.Info("Mapping rules reloaded", "textures", len(rules.Textures), "scalars", len(rules.Scalars), "vectors", len(rules.Vectors))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("Rules watcher error", "error", err)
			}
		}
	}()

	return nil
}
