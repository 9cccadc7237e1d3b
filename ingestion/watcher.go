// Copyright 2026 The Synapse Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Runner is the incremental ingestion entry point the watcher drives.
// *Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, force bool) (*Summary, error)
}

// Watcher re-runs incremental ingestion whenever corpus files change.
// Events are debounced so a burst of writes (editor saves, git checkout)
// produces a single run.
type Watcher struct {
	fsw      *fsnotify.Watcher
	runner   Runner
	root     string
	debounce time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	done     chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period after the last event before a run
// starts.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger overrides the watcher's logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates a watcher over the corpus rooted at root. The root and
// every non-hidden subdirectory are watched; directories created later are
// added as they appear.
func NewWatcher(runner Runner, root string, opts ...WatcherOption) (*Watcher, error) {
	if runner == nil {
		return nil, errors.New("ingestion: watcher requires a runner")
	}
	if root == "" {
		return nil, ErrCorpusRootRequired
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		runner:   runner,
		root:     root,
		debounce: 500 * time.Millisecond,
		logger:   slog.Default(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "corpus-watcher")

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Start blocks, running incremental ingestion after each debounced burst of
// events, until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	defer close(w.done)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// A new directory needs its own watch before files
				// inside it produce events.
				w.addTree(event.Name)
			}
			w.logger.Debug("corpus change detected", "path", event.Name, "op", event.Op.String())
			if pending {
				if !timer.Stop() {
					<-timer.C
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			pending = false
			summary, err := w.runner.Run(ctx, false)
			switch {
			case errors.Is(err, ErrRunInProgress):
				// Another run holds the writer slot. Try again after
				// one more debounce interval.
				timer.Reset(w.debounce)
				pending = true
			case err != nil:
				w.logger.Error("ingestion run failed", "err", err)
			default:
				w.logger.Info("ingestion run complete",
					"run_id", summary.RunID,
					"added", summary.Added,
					"modified", summary.Modified,
					"deleted", summary.Deleted)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "err", err)

		case <-ctx.Done():
			return ctx.Err()

		case <-w.stop:
			return nil
		}
	}
}

// Stop shuts the watcher down and waits for Start to return.
func (w *Watcher) Stop() error {
	close(w.stop)
	err := w.fsw.Close()
	<-w.done
	return err
}

// relevant reports whether an event should schedule a run: a supported
// corpus file, or a directory appearing or disappearing.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, supported := range defaultExtensions {
		if ext == supported {
			return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
		}
	}
	// Extensionless names are likely directories. Renames and removals of
	// a watched directory surface here too.
	return ext == "" && (event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename))
}

// addTree watches path and every non-hidden directory below it. Missing
// paths are ignored, they may have vanished between event and handling.
func (w *Watcher) addTree(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(p); addErr != nil {
			w.logger.Warn("cannot watch directory", "path", p, "err", addErr)
		}
		return nil
	})
}
