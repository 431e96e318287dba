package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigBundle is the on-disk layout of a bundle file: one schema plus the
// data views and data sources the write path binds from.
type ConfigBundle struct {
	Schema      SchemaConfig       `json:"schema"      yaml:"schema"`
	DataViews   []DataViewConfig   `json:"dataViews"   yaml:"dataViews"`
	DataSources []DataSourceConfig `json:"dataSources" yaml:"dataSources"`
	Parameters  map[string]string  `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

type dataSourcesBundle struct {
	DataSources []DataSourceConfig `json:"dataSources" yaml:"dataSources"`
}

// LoadSchemaConfig loads a bare schema (no views, no sources) from a YAML file.
func LoadSchemaConfig(path string) (*SchemaConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema config file: %w", err)
	}

	var cfg SchemaConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse schema config: %w", err)
	}

	if err := NewValidator(nil).ValidateSchema(&cfg); err != nil {
		return nil, fmt.Errorf("invalid schema config: %w", err)
	}
	return &cfg, nil
}

// LoadConfigBundle loads and validates a bundle file.
func LoadConfigBundle(path string) (*ConfigBundle, *MemoryConfigRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config bundle: %w", err)
	}

	var bundle ConfigBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config bundle: %w", err)
	}

	views := make(map[string]*DataViewConfig, len(bundle.DataViews))
	for i := range bundle.DataViews {
		views[bundle.DataViews[i].Name] = &bundle.DataViews[i]
	}
	sources := make(map[string]*DataSourceConfig, len(bundle.DataSources))
	for i := range bundle.DataSources {
		sources[bundle.DataSources[i].Name] = &bundle.DataSources[i]
	}

	registry := NewMemoryConfigRegistry(views, sources)
	registry.AddSchema(&bundle.Schema)

	validator := NewValidator(registry)
	if err := validator.ValidateSchema(&bundle.Schema); err != nil {
		return nil, nil, fmt.Errorf("invalid schema: %w", err)
	}
	for _, ds := range sources {
		if err := validator.ValidateDataSource(ds); err != nil {
			return nil, nil, err
		}
	}
	for _, dv := range views {
		if err := validator.ValidateDataView(dv); err != nil {
			return nil, nil, err
		}
	}

	return &bundle, registry, nil
}

// LoadDataSourcesBundle loads a standalone data source file, typically kept
// apart from the schema because it carries credentials.
func LoadDataSourcesBundle(path string) (map[string]*DataSourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data source bundle: %w", err)
	}

	var bundle dataSourcesBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse data source bundle: %w", err)
	}

	validator := NewValidator(nil)
	sources := make(map[string]*DataSourceConfig, len(bundle.DataSources))
	for i := range bundle.DataSources {
		ds := &bundle.DataSources[i]
		if err := validator.ValidateDataSource(ds); err != nil {
			return nil, err
		}
		sources[ds.Name] = ds
	}
	return sources, nil
}
