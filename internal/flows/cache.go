package flows

import (
	"context"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Source answers the flow and file-tree queries. *Runner is the production
// implementation.
type Source interface {
	Changed(ctx context.Context) (json.RawMessage, error)
	FileTree(ctx context.Context) (json.RawMessage, error)
}

// Cache memoizes query results until the repository changes on disk. The
// scripts walk the whole repository on every call, so the frontend polling
// the flow list would otherwise pay that cost per request.
type Cache struct {
	src     Source
	log     *zap.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu      sync.Mutex
	changed json.RawMessage
	tree    json.RawMessage
}

// NewCache watches repoRoot (and its visible subdirectories) and serves
// cached results until a filesystem event invalidates them.
func NewCache(src Source, repoRoot string, log *zap.Logger) (*Cache, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// fsnotify watches are not recursive; register every visible directory.
	// Hidden directories are skipped, same as the file-tree script does.
	err = filepath.WalkDir(repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != repoRoot && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	c := &Cache{
		src:     src,
		log:     log,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go c.loop()
	return c, nil
}

// Changed returns the cached changed-functions document, querying the source
// on a cold or invalidated cache.
func (c *Cache) Changed(ctx context.Context) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.changed != nil {
		return c.changed, nil
	}
	doc, err := c.src.Changed(ctx)
	if err != nil {
		return nil, err
	}
	c.changed = doc
	return doc, nil
}

// FileTree returns the cached file tree, querying the source on a cold or
// invalidated cache.
func (c *Cache) FileTree(ctx context.Context) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree != nil {
		return c.tree, nil
	}
	doc, err := c.src.FileTree(ctx)
	if err != nil {
		return nil, err
	}
	c.tree = doc
	return doc, nil
}

// Invalidate drops both cached documents.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changed = nil
	c.tree = nil
}

// Close stops the watcher goroutine.
func (c *Cache) Close() error {
	close(c.done)
	return c.watcher.Close()
}

func (c *Cache) loop() {
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			c.log.Debug("repository changed, dropping cached flows", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			if ev.Op.Has(fsnotify.Create) {
				// New directories need their own watch.
				_ = c.watcher.Add(ev.Name)
			}
			c.Invalidate()
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Warn("repository watcher error", zap.Error(err))
		}
	}
}
