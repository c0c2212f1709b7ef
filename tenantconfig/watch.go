package tenantconfig

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Logger defines the logging interface used by this package.
// It is compatible with log/slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// FileSource serves a YAML or JSON file and reloads it when it changes on
// disk, so tenants can be added without a restart. A reload that fails to
// parse keeps the previous content.
type FileSource struct {
	path    string
	logger  Logger
	watcher *fsnotify.Watcher
	current atomic.Pointer[MapSource]
	reloads atomic.Int64
	done    chan struct{}
}

// WatchFile loads path and watches it until ctx ends or Close is called.
// logger may be nil.
func WatchFile(ctx context.Context, path string, logger Logger) (*FileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	initial, err := LoadYAMLFile(abs)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Editors and config management replace files by rename, which a
	// watch on the file itself would lose.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
	}

	f := &FileSource{
		path:    abs,
		logger:  logger,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	f.current.Store(&initial)

	go f.run(ctx)
	return f, nil
}

// Section implements Source.
func (f *FileSource) Section(ctx context.Context, path string) (Section, bool, error) {
	return f.current.Load().Section(ctx, path)
}

// Reloads returns how many times the file has been reloaded successfully.
func (f *FileSource) Reloads() int64 {
	return f.reloads.Load()
}

// Close stops watching.
func (f *FileSource) Close() error {
	err := f.watcher.Close()
	<-f.done
	return err
}

func (f *FileSource) run(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			_ = f.watcher.Close()
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				f.reload()
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.warn("configuration watcher error", "path", f.path, "error", err)
		}
	}
}

func (f *FileSource) reload() {
	next, err := LoadYAMLFile(f.path)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			f.warn("failed to reload configuration, keeping previous", "path", f.path, "error", err)
		}
		return
	}
	f.current.Store(&next)
	f.reloads.Add(1)
	if f.logger != nil {
		f.logger.Info("configuration reloaded", "path", f.path)
	}
}

func (f *FileSource) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
