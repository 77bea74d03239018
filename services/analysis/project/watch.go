// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// Watcher invalidates a session's cached graphs when source files under
// a root change on disk.
//
// Description:
//
//	The root directory tree is registered with fsnotify (the built-in
//	exclusions are skipped). Events are debounced: a burst of writes
//	from a save-all or a branch switch collapses into one invalidation.
//	Newly created directories are added to the watch set as they appear.
type Watcher struct {
	root    string
	session *Session
	fsw     *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher starts watching root on behalf of session. Callers must
// Close the watcher when done.
func NewWatcher(root string, session *Session) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{root: root, session: session, fsw: fsw, done: make(chan struct{})}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	go w.run()
	return w, nil
}

// Close stops the watcher and releases its OS resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

// addTree registers root and every non-excluded subdirectory.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && defaultExcludedDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			slog.Warn("watcher: cannot watch directory", "dir", path, "error", err)
		}
		return nil
	})
}

// run pumps fsnotify events until Close. Invalidation is deferred by
// watchDebounce after the last event in a burst.
func (w *Watcher) run() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				// A new directory needs its own watch before anything
				// inside it can be seen.
				if err := w.addTree(event.Name); err != nil {
					slog.Warn("watcher: cannot extend watch", "path", event.Name, "error", err)
				}
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher: event stream error", "root", w.root, "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			slog.Debug("watcher: source change detected, invalidating", "root", w.root)
			w.session.Invalidate(w.root)
		}
	}
}

// WatchAndRebuild runs a watcher that eagerly rebuilds the graph after
// each invalidation, invoking onBuild with the fresh graph. It blocks
// until ctx is done.
func WatchAndRebuild(ctx context.Context, session *Session, opts Options, onBuild func(*Graph)) error {
	w, err := NewWatcher(opts.Root, session)
	if err != nil {
		return err
	}
	defer w.Close()

	ticker := time.NewTicker(watchDebounce * 2)
	defer ticker.Stop()

	var lastSig string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			g, err := session.Graph(ctx, opts)
			if err != nil {
				slog.Warn("watch rebuild failed", "root", opts.Root, "error", err)
				continue
			}
			if g.Signature != lastSig {
				lastSig = g.Signature
				if onBuild != nil {
					onBuild(g)
				}
			}
		}
	}
}
