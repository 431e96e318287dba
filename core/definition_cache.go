package core

import (
	"fmt"
	"log/slog"
	"sync"

	"gridbind/config"
)

// DefinitionCache maps a schema id to its parsed Definition. Each id is
// built at most once; callers always receive a private clone.
type DefinitionCache struct {
	mu       sync.RWMutex
	defs     map[string]*Definition
	provider config.Provider
}

// NewDefinitionCache creates a cache backed by provider.
func NewDefinitionCache(provider config.Provider) *DefinitionCache {
	return &DefinitionCache{
		defs:     make(map[string]*Definition),
		provider: provider,
	}
}

// Get returns a clone of the definition for id, building it on first use.
func (c *DefinitionCache) Get(id string) (*Definition, error) {
	c.mu.RLock()
	def, ok := c.defs[id]
	c.mu.RUnlock()
	if ok {
		return def.Clone(), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check: another goroutine may have built it while we waited.
	if def, ok := c.defs[id]; ok {
		return def.Clone(), nil
	}

	if c.provider == nil {
		return nil, fmt.Errorf("no schema provider configured for %s", id)
	}
	schema, err := c.provider.GetSchemaConfig(id)
	if err != nil {
		return nil, err
	}
	def, err = BuildDefinition(schema)
	if err != nil {
		return nil, fmt.Errorf("build definition %s: %w", id, err)
	}
	c.defs[id] = def
	slog.Debug("Definition built", "schema", id, "sheets", len(def.Sheets))
	return def.Clone(), nil
}

// Put stores an already built definition, replacing any cached one.
func (c *DefinitionCache) Put(def *Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[def.ID] = def
}

var (
	defaultCacheOnce sync.Once
	defaultCache     *DefinitionCache
)

// DefaultDefinitionCache returns the process-wide cache. The provider given
// on the first call wins; later arguments are ignored.
func DefaultDefinitionCache(provider config.Provider) *DefinitionCache {
	defaultCacheOnce.Do(func() {
		defaultCache = NewDefinitionCache(provider)
	})
	return defaultCache
}
