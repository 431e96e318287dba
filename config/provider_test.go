package config

import (
	"reflect"
	"testing"
)

func TestMemoryConfigRegistry_GetDataViewConfig(t *testing.T) {
	views := map[string]*DataViewConfig{
		"view1": {Name: "view1"},
	}
	registry := NewMemoryConfigRegistry(views, nil)

	conf, err := registry.GetDataViewConfig("view1")
	if err != nil {
		t.Fatalf("expected config, got error: %v", err)
	}
	if conf.Name != "view1" {
		t.Fatalf("unexpected config name: %s", conf.Name)
	}
}

func TestMemoryConfigRegistry_GetDataViewConfig_NotFound(t *testing.T) {
	registry := NewMemoryConfigRegistry(map[string]*DataViewConfig{}, nil)
	if _, err := registry.GetDataViewConfig("missing"); err == nil {
		t.Fatalf("expected error for missing config")
	}
}

func TestMemoryConfigRegistry_Schemas(t *testing.T) {
	registry := NewMemoryConfigRegistry(nil, nil)
	if _, err := registry.GetSchemaConfig("s1"); err == nil {
		t.Fatalf("expected error before registration")
	}
	registry.AddSchema(&SchemaConfig{Id: "s1"})
	conf, err := registry.GetSchemaConfig("s1")
	if err != nil {
		t.Fatalf("GetSchemaConfig error: %v", err)
	}
	if conf.Id != "s1" {
		t.Fatalf("unexpected schema id: %s", conf.Id)
	}
}

func TestMemoryConfigRegistry_DataViewNamesSorted(t *testing.T) {
	registry := NewMemoryConfigRegistry(map[string]*DataViewConfig{
		"b": {Name: "b"},
		"a": {Name: "a"},
	}, nil)
	if got := registry.DataViewNames(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("DataViewNames = %v", got)
	}
}
