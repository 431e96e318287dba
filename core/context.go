package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gridbind/config"
)

// DataFetcher loads the rows of one table for the write path.
type DataFetcher interface {
	// Fetch returns the rows of table, narrowed by the parameters that name
	// one of its columns.
	Fetch(ctx context.Context, table string, params map[string]string) ([]map[string]any, error)
}

// GenerationContext holds the state of one write invocation: the merged
// parameters and the data views fetched so far.
type GenerationContext struct {
	Parameters     map[string]string
	Fetcher        DataFetcher
	ConfigProvider config.Provider
	// LoadedViews caches fetched views; callers always receive copies.
	LoadedViews map[string]*DataView
}

// NewGenerationContext merges the bundle parameters with the invocation ones
// (the latter win) and expands "$date:" expressions.
func NewGenerationContext(bundleParams map[string]string, provider config.Provider, fetcher DataFetcher, params map[string]string) *GenerationContext {
	merged := make(map[string]string, len(bundleParams)+len(params))
	for k, v := range bundleParams {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}

	now := time.Now()
	for k, v := range merged {
		if strings.HasPrefix(v, "$date:") {
			val, err := ParseDynamicDate(v, now)
			if err != nil {
				slog.Warn("ignoring dynamic date parameter", "param", k, "error", err)
				continue
			}
			merged[k] = val
		}
	}

	return &GenerationContext{
		Parameters:     merged,
		Fetcher:        fetcher,
		ConfigProvider: provider,
		LoadedViews:    make(map[string]*DataView),
	}
}

// GetDataView fetches a view once per invocation and hands out copies, so
// filtering one never affects another.
func (c *GenerationContext) GetDataView(ctx context.Context, viewName string) (*DataView, error) {
	if cached, ok := c.LoadedViews[viewName]; ok {
		return cached.Copy(), nil
	}
	if c.ConfigProvider == nil {
		return nil, fmt.Errorf("no config provider for data view %s", viewName)
	}
	conf, err := c.ConfigProvider.GetDataViewConfig(viewName)
	if err != nil {
		return nil, err
	}
	if c.Fetcher == nil {
		return nil, fmt.Errorf("no data fetcher for data view %s", viewName)
	}

	table := conf.Table
	if table == "" {
		table = conf.Name
	}
	data, err := c.Fetcher.Fetch(ctx, table, c.fetchParams(conf))
	if err != nil {
		return nil, fmt.Errorf("fetch data view %s: %w", viewName, err)
	}

	v := NewDataView(conf, data)
	c.LoadedViews[viewName] = v
	return v.Copy(), nil
}

// fetchParams translates parameters named after labels into column filters.
func (c *GenerationContext) fetchParams(conf *config.DataViewConfig) map[string]string {
	out := make(map[string]string)
	for _, l := range conf.Labels {
		if v, ok := c.Parameters[l.Name]; ok {
			out[l.Column] = v
		}
	}
	return out
}

// BuildDataGraph assembles the root object the writer binds: one entry per
// view, holding its relabeled rows (or the first row for single views).
func (c *GenerationContext) BuildDataGraph(ctx context.Context, viewNames []string) (map[string]any, error) {
	root := make(map[string]any, len(viewNames))
	for _, name := range viewNames {
		v, err := c.GetDataView(ctx, name)
		if err != nil {
			return nil, err
		}
		v.Filter(c.Parameters)
		rows := v.Rows()

		slog.Debug("data view fetched", "view", name, "params", c.Parameters, "rows", len(rows))

		if v.Config.Single {
			if len(rows) > 0 {
				root[name] = rows[0]
			}
			continue
		}
		list := make([]any, len(rows))
		for i, r := range rows {
			list[i] = r
		}
		root[name] = list
	}
	return root, nil
}

// ParameterContext exposes the parameters for path lookups.
func (c *GenerationContext) ParameterContext() map[string]any {
	out := make(map[string]any, len(c.Parameters))
	for k, v := range c.Parameters {
		out[k] = v
	}
	return out
}

// MockDataFetcher serves canned rows, keyed by table.
type MockDataFetcher struct {
	Data map[string][]map[string]any
}

func (m *MockDataFetcher) Fetch(_ context.Context, table string, _ map[string]string) ([]map[string]any, error) {
	if data, ok := m.Data[table]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("table not found: %s", table)
}
