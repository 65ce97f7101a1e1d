package secret

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchDir calls onChange with the name of each file in dir that is
// written, created, removed or renamed, until ctx is done. Watcher errors
// are passed to onError when it is non-nil.
func WatchDir(ctx context.Context, dir string, onChange func(name string), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			rel, err := filepath.Rel(dir, event.Name)
			if err != nil || !filepath.IsLocal(rel) {
				continue
			}
			onChange(rel)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}

// WatchFiles forgets memoized "file" secrets whenever their file in dir
// changes, so rotated credentials take effect without a restart.
func (r *Resolver) WatchFiles(ctx context.Context, dir string, onError func(error)) error {
	return WatchDir(ctx, dir, func(name string) {
		if err := r.Forget(ctx, "file", name); err != nil && onError != nil {
			onError(err)
		}
	}, onError)
}
