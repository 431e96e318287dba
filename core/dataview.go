package core

import (
	"fmt"
	"sort"

	"gridbind/config"
)

// DataView is a fetched table seen through its label mapping.
type DataView struct {
	Config       *config.DataViewConfig
	Data         []map[string]any
	LabelMapping map[string]string // label name -> column name
}

func NewDataView(conf *config.DataViewConfig, data []map[string]any) *DataView {
	mapping := make(map[string]string, len(conf.Labels))
	for _, l := range conf.Labels {
		mapping[l.Name] = l.Column
	}
	return &DataView{Config: conf, Data: data, LabelMapping: mapping}
}

// DistinctLabelValues returns the sorted unique non-empty values of label.
func (v *DataView) DistinctLabelValues(label string) ([]string, error) {
	col, ok := v.LabelMapping[label]
	if !ok {
		return nil, fmt.Errorf("label '%s' not found in view '%s'", label, v.Config.Name)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, row := range v.Data {
		val, ok := row[col]
		if !ok {
			continue
		}
		s := fmt.Sprintf("%v", val)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Filter keeps the rows matching every parameter that names a label.
// Parameters without a label are ignored.
func (v *DataView) Filter(params map[string]string) {
	if len(params) == 0 {
		return
	}
	var filtered []map[string]any
	for _, row := range v.Data {
		match := true
		for key, want := range params {
			col, ok := v.LabelMapping[key]
			if !ok {
				continue
			}
			if got, has := row[col]; has && fmt.Sprintf("%v", got) != want {
				match = false
				break
			}
		}
		if match {
			filtered = append(filtered, row)
		}
	}
	v.Data = filtered
}

// Rows returns the data keyed by label name. A view without labels passes
// its columns through unchanged.
func (v *DataView) Rows() []map[string]any {
	out := make([]map[string]any, len(v.Data))
	for i, row := range v.Data {
		if len(v.Config.Labels) == 0 {
			out[i] = copyRow(row)
			continue
		}
		m := make(map[string]any, len(v.Config.Labels))
		for _, l := range v.Config.Labels {
			if val, ok := row[l.Column]; ok {
				m[l.Name] = val
			}
		}
		out[i] = m
	}
	return out
}

func (v *DataView) RowCount() int {
	return len(v.Data)
}

// Copy duplicates the rows so filtering the copy leaves v intact. Config and
// LabelMapping are read-only and shared.
func (v *DataView) Copy() *DataView {
	data := make([]map[string]any, len(v.Data))
	for i, row := range v.Data {
		data[i] = copyRow(row)
	}
	return &DataView{Config: v.Config, Data: data, LabelMapping: v.LabelMapping}
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, val := range row {
		out[k] = val
	}
	return out
}
