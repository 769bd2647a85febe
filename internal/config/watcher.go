package config

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 500 * time.Millisecond

// Watch calls onChange with a freshly resolved config whenever the YAML file
// c was loaded from changes. Bursts of events are coalesced; a file that
// fails to parse or validate is logged and skipped. Watch returns once the
// watcher is running and stops it when ctx is done.
func (c *Config) Watch(
	ctx context.Context,
	onChange func(*Config),
) error {
	if c.ConfigFile == "" {
		return errors.New("config was not loaded from a file")
	}
	path, err := filepath.Abs(c.ConfigFile)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// watch the directory; editors often replace the file instead of
	// writing it in place
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}

	reload := make(chan struct{}, 1)
	go c.scheduleReload(ctx, reload, onChange)
	go handleWatcher(ctx, watcher, path, reload)
	return nil
}

func handleWatcher(
	ctx context.Context,
	watcher *fsnotify.Watcher,
	path string,
	reload chan<- struct{},
) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != path {
				continue
			}
			if event.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename) {
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (c *Config) scheduleReload(
	ctx context.Context,
	reload <-chan struct{},
	onChange func(*Config),
) {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case <-reload:
			if timer != nil {
				timer.Reset(reloadDelay)
			} else {
				timer = time.NewTimer(reloadDelay)
				fire = timer.C
			}

		case <-fire:
			fire = nil
			timer = nil

			next, err := c.Reload()
			if err != nil {
				slog.Warn("ignoring config change", "file", c.ConfigFile, "error", err)
				continue
			}
			slog.Info("config reloaded", "file", c.ConfigFile)
			onChange(next)
		}
	}
}
