// SPDX-License-Identifier: MIT

package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/mabrink/busybeat/internal/log"
)

// WatchAttach watches the parent of the device volume and signals on the
// returned channel whenever the volume (re)appears, typically the user
// replugging the accessory. The channel closes when ctx ends.
//
// Detection is best-effort: on platforms where the parent directory cannot
// be watched the channel simply stays silent.
func WatchAttach(ctx context.Context, volumePath string) (<-chan struct{}, error) {
	attached := make(chan struct{}, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	parent := filepath.Dir(filepath.Clean(volumePath))
	if err := watcher.Add(parent); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", parent, err)
	}

	logger := log.WithComponent("device")
	target := filepath.Clean(volumePath)

	go func() {
		defer close(attached)
		defer watcher.Close() //nolint:errcheck

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Create) {
					continue
				}
				if _, err := os.Stat(target); err != nil {
					continue
				}
				logger.Info().Str(log.FieldPath, target).Msg("device volume attached")
				select {
				case attached <- struct{}{}:
				default: // a pending signal is enough
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Debug().Err(err).Msg("volume watcher error")
			}
		}
	}()

	return attached, nil
}
