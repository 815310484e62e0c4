package main

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillvault/pkg/logger"
	"github.com/jingkaihe/skillvault/pkg/presenter"
	"github.com/jingkaihe/skillvault/pkg/skills"
)

// FileEvent represents a file system event with additional metadata
type FileEvent struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

// watchBundle re-uploads dir after every burst of changes until ctx is done.
// Unchanged content hits the identity check and creates no version.
func watchBundle(ctx context.Context, a *app, dir string, config *SkillUploadConfig) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	excludes := append(append([]string{}, skills.DefaultBundleExcludes...), config.Excludes...)
	if err := addWatchDirs(watcher, dir, excludes); err != nil {
		return err
	}

	events := make(chan FileEvent)
	debounced := make(chan FileEvent)
	go debounceFileEvents(ctx, events, debounced, time.Duration(config.DebounceTime)*time.Millisecond)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				rel, err := filepath.Rel(dir, event.Name)
				if err != nil || matchesAny(excludes, filepath.ToSlash(rel)) {
					continue
				}
				// New directories need their own watch
				if event.Op.Has(fsnotify.Create) {
					if err := addWatchDirs(watcher, event.Name, nil); err != nil {
						logger.G(ctx).WithError(err).WithField("path", event.Name).Debug("not a directory, skipping watch")
					}
				}
				select {
				case events <- FileEvent{Path: event.Name, Op: event.Op, Time: time.Now()}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				presenter.Error(err, "File watcher error")
				logger.G(ctx).WithError(err).Error("error watching bundle")
			case <-ctx.Done():
				return
			}
		}
	}()

	presenter.Info(fmt.Sprintf("Watching %s for changes... Press Ctrl+C to stop", dir))
	for {
		select {
		case event := <-debounced:
			logger.G(ctx).WithFields(map[string]any{
				"file":      event.Path,
				"operation": event.Op.String(),
			}).Debug("bundle change detected")
			if _, err := uploadDir(ctx, a, dir, config.Excludes); err != nil {
				presenter.Error(err, "Upload failed")
			}
		case <-ctx.Done():
			presenter.Info("Stopped watching")
			return nil
		}
	}
}

// addWatchDirs watches root and every directory below it that is not excluded
func addWatchDirs(watcher *fsnotify.Watcher, root string, excludes []string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(root, p); err == nil && rel != "." {
			rel = filepath.ToSlash(rel)
			if matchesAny(excludes, rel) || matchesAny(excludes, rel+"/") {
				return filepath.SkipDir
			}
		}
		return watcher.Add(p)
	})
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// debounceFileEvents collapses a burst of events into the last one, emitted
// once no new event has arrived for delay
func debounceFileEvents(ctx context.Context, input <-chan FileEvent, output chan<- FileEvent, delay time.Duration) {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending FileEvent
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case event, ok := <-input:
			if !ok {
				stop()
				return
			}
			pending = event
			stop()
			timer = time.NewTimer(delay)
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case output <- pending:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			stop()
			return
		}
	}
}
