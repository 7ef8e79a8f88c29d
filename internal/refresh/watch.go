package refresh

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch triggers a fetch whenever the file at path is written or replaced.
// The parent directory is watched so editors that rename over the file are
// still seen. Watching ends when ctx is done.
func (c *Controller) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve watch path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	log := c.log.WithValues("path", abs)
	log.V(1).Info("watching file")
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				log.V(1).Info("file changed", "op", event.Op.String())
				c.Trigger()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error(err, "watcher error")
			}
		}
	}()
	return nil
}
