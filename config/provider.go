package config

import (
	"fmt"
	"sort"
	"sync"
)

// Provider defines the interface for retrieving configurations.
type Provider interface {
	GetSchemaConfig(id string) (*SchemaConfig, error)
	GetDataViewConfig(name string) (*DataViewConfig, error)
	GetDataSourceConfig(name string) (*DataSourceConfig, error)
}

// MemoryConfigRegistry implements Provider using in-memory maps.
type MemoryConfigRegistry struct {
	mu          sync.RWMutex
	schemas     map[string]*SchemaConfig
	dataViews   map[string]*DataViewConfig
	dataSources map[string]*DataSourceConfig
}

// NewMemoryConfigRegistry creates a new registry with the given configurations.
func NewMemoryConfigRegistry(v map[string]*DataViewConfig, ds map[string]*DataSourceConfig) *MemoryConfigRegistry {
	if v == nil {
		v = make(map[string]*DataViewConfig)
	}
	if ds == nil {
		ds = make(map[string]*DataSourceConfig)
	}
	return &MemoryConfigRegistry{
		schemas:     make(map[string]*SchemaConfig),
		dataViews:   v,
		dataSources: ds,
	}
}

// AddSchema registers a schema under its id, replacing any previous one.
func (r *MemoryConfigRegistry) AddSchema(s *SchemaConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Id] = s
}

// SetDataSources replaces the registered data sources.
func (r *MemoryConfigRegistry) SetDataSources(ds map[string]*DataSourceConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dataSources = ds
}

// GetSchemaConfig retrieves a SchemaConfig by id.
func (r *MemoryConfigRegistry) GetSchemaConfig(id string) (*SchemaConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if conf, ok := r.schemas[id]; ok {
		return conf, nil
	}
	return nil, fmt.Errorf("schema config not found: %s", id)
}

// GetDataViewConfig retrieves a DataViewConfig by name.
func (r *MemoryConfigRegistry) GetDataViewConfig(name string) (*DataViewConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if conf, ok := r.dataViews[name]; ok {
		return conf, nil
	}
	return nil, fmt.Errorf("data view config not found: %s", name)
}

// GetDataSourceConfig retrieves a DataSourceConfig by name.
func (r *MemoryConfigRegistry) GetDataSourceConfig(name string) (*DataSourceConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if conf, ok := r.dataSources[name]; ok {
		return conf, nil
	}
	return nil, fmt.Errorf("data source config not found: %s", name)
}

// DataViewNames lists the registered data views.
func (r *MemoryConfigRegistry) DataViewNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.dataViews))
	for name := range r.dataViews {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
