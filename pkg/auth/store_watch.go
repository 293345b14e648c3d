package auth

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch invokes fn with the current login whenever the login file for this
// profile is written or removed by another process, e.g. a CLI login running
// alongside a long-lived agent. fn receives nil when the login was deleted.
//
// Watch blocks until ctx is cancelled and returns ctx.Err().
func (s *FileStore) Watch(ctx context.Context, fn func(*Login)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors and atomic writers replace
	// files, which drops file-level watches.
	if err := watcher.Add(s.dir); err != nil {
		return err
	}

	name := filepath.Base(s.path())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			login, err := s.Retrieve(ctx)
			if err != nil {
				s.logger.Debug("failed to reload login after file change",
					"profile", s.profile,
					"error", err.Error(),
				)
				continue
			}
			fn(login)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Debug("login watch error",
				"profile", s.profile,
				"error", err.Error(),
			)
		}
	}
}
