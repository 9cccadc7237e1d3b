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
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pjv-stack/synapse/core"
	"github.com/pjv-stack/synapse/storage"
)

// defaultExtensions lists the file extensions recognized as knowledge
// artifacts during a corpus walk.
var defaultExtensions = []string{".md", ".mdx", ".markdown", ".txt", ".rst", ".adoc"}

// Diff is the result of comparing the corpus on disk against the change
// registry. Paths are slash-separated and relative to the corpus root.
type Diff struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// Empty reports whether the diff contains no changes.
func (d *Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Deleted) == 0
}

// Changed returns the added and modified paths as one slice.
func (d *Diff) Changed() []string {
	changed := make([]string, 0, len(d.Added)+len(d.Modified))
	changed = append(changed, d.Added...)
	changed = append(changed, d.Modified...)
	return changed
}

// Tracker computes incremental ingestion diffs by comparing a fresh walk of
// the corpus root against the persisted change registry. The tracker itself
// never writes: registry entries are committed per-artifact by the pipeline
// only after that artifact's graph and vector writes succeed.
type Tracker struct {
	registry   storage.RegistryRepository
	root       string
	extensions map[string]struct{}
	logger     *slog.Logger
}

// NewTracker creates a change tracker rooted at the given corpus directory.
func NewTracker(registry storage.RegistryRepository, root string, logger *slog.Logger) (*Tracker, error) {
	if registry == nil {
		return nil, ErrRegistryRepositoryRequired
	}
	if root == "" {
		return nil, ErrCorpusRootRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	extensions := make(map[string]struct{}, len(defaultExtensions))
	for _, ext := range defaultExtensions {
		extensions[ext] = struct{}{}
	}

	return &Tracker{
		registry:   registry,
		root:       root,
		extensions: extensions,
		logger:     logger.With("component", "change-tracker"),
	}, nil
}

// Diff walks the corpus and computes added, modified and deleted paths
// versus the registry. With force set, every file on disk is reported as
// changed regardless of its registered fingerprint.
//
// Every surviving file is re-read and its content hash compared against the
// registry; timestamps never decide, so a rewrite that preserves the mtime
// is still detected.
func (t *Tracker) Diff(ctx context.Context, force bool) (*Diff, error) {
	registered, err := t.registry.All(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]*core.RegistryEntry, len(registered))
	for _, entry := range registered {
		known[entry.Path] = entry
	}

	walked, err := t.walk(ctx)
	if err != nil {
		return nil, err
	}

	diff := &Diff{}
	seen := make(map[string]struct{}, len(walked))
	for _, path := range walked {
		seen[path] = struct{}{}

		entry, ok := known[path]
		if !ok {
			diff.Added = append(diff.Added, path)
			continue
		}
		if force {
			diff.Modified = append(diff.Modified, path)
			continue
		}

		content, err := os.ReadFile(filepath.Join(t.root, filepath.FromSlash(path)))
		if err != nil {
			t.logger.Warn("skipping unreadable file during diff", "path", path, "err", err)
			continue
		}
		if core.HashContent(content) != entry.ContentHash {
			diff.Modified = append(diff.Modified, path)
		}
	}

	for path := range known {
		if _, ok := seen[path]; !ok {
			diff.Deleted = append(diff.Deleted, path)
		}
	}
	sort.Strings(diff.Deleted)

	return diff, nil
}

// walk returns the slash-separated paths of every corpus file under the
// root, relative to it, in sorted order.
func (t *Tracker) walk(ctx context.Context) ([]string, error) {
	var files []string

	err := filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			// Hidden directories hold no corpus content.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := t.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		rel, err := filepath.Rel(t.root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
