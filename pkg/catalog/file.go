package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/validation"
)

// Document is the YAML layout of a catalog file
type Document struct {
	Apps []Item `yaml:"apps"`
}

// ParseDocument decodes and checks a catalog document
func ParseDocument(data []byte) ([]Item, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	seen := make(map[string]struct{}, len(doc.Apps))
	for i, item := range doc.Apps {
		if !validation.IsValidAppID(item.ID) {
			return nil, fmt.Errorf("%w: app %d has invalid id %q", ErrInvalidCatalog, i, item.ID)
		}
		if item.Name == "" {
			return nil, fmt.Errorf("%w: app %s has no name", ErrInvalidCatalog, item.ID)
		}
		switch item.PackageFormat {
		case "", FormatExecutable, FormatInstallerPackage:
		default:
			return nil, fmt.Errorf("%w: app %s has unknown package format %q", ErrInvalidCatalog, item.ID, item.PackageFormat)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate app id %s", ErrInvalidCatalog, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return doc.Apps, nil
}

// LoadFile reads a catalog document from disk
func LoadFile(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseDocument(data)
}

// FileCatalog serves lookups from a YAML file held in memory
type FileCatalog struct {
	path   string
	logger *observability.Logger

	mu    sync.RWMutex
	items map[string]Item
	hooks []func(ids []string)
}

// NewFileCatalog loads path and returns a catalog over its contents
func NewFileCatalog(path string, logger *observability.Logger) (*FileCatalog, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	c := &FileCatalog{
		path:   path,
		logger: logger.WithField("component", "file_catalog"),
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the file. On error the previous contents stay in place.
func (c *FileCatalog) Reload() error {
	items, err := LoadFile(c.path)
	if err != nil {
		return err
	}

	byID := make(map[string]Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	c.mu.Lock()
	previous := c.items
	c.items = byID
	hooks := append([]func([]string){}, c.hooks...)
	c.mu.Unlock()

	c.logger.WithField("apps", len(byID)).Info("Catalog loaded")

	if len(hooks) > 0 {
		touched := touchedIDs(previous, byID)
		for _, hook := range hooks {
			hook(touched)
		}
	}
	return nil
}

// OnReload registers fn to run after every successful Reload with the ids of
// the old and new contents. Caches in front of the catalog use it to drop
// entries that may have changed or disappeared.
func (c *FileCatalog) OnReload(fn func(ids []string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

func touchedIDs(previous, current map[string]Item) []string {
	ids := make([]string, 0, len(previous)+len(current))
	for id := range previous {
		ids = append(ids, id)
	}
	for id := range current {
		if _, ok := previous[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Items returns every item, in no particular order
func (c *FileCatalog) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]Item, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, item)
	}
	return items
}

// GetItemsByIDs implements Lookup
func (c *FileCatalog) GetItemsByIDs(ctx context.Context, ids []string) ([]Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var items []Item
	for _, id := range Unique(ids) {
		if item, ok := c.items[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// Watch reloads the catalog whenever the file is written or replaced, until ctx
// is done. The parent directory is watched so editors that swap files are seen.
func (c *FileCatalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		defer observability.RecoverPanic(c.logger, "catalog watcher")

		target := filepath.Clean(c.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := c.Reload(); err != nil {
					c.logger.WithError(err).Warn("Catalog reload failed, keeping previous contents")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.logger.WithError(err).Warn("Catalog watcher error")
			}
		}
	}()

	return nil
}
