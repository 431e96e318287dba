package core

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticketState string

func TestConvertBuiltins(t *testing.T) {
	reg := NewConvertorRegistry()
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  any
		cell *Cell
		typ  reflect.Type
		want any
	}{
		{"string from text", "Ann", &Cell{}, reflect.TypeOf(""), "Ann"},
		{"string from number", 30.0, &Cell{}, reflect.TypeOf(""), "30"},
		{"string from date", day, &Cell{Pattern: "dd/MM/yyyy"}, reflect.TypeOf(""), "09/03/2024"},
		{"int from number", 30.0, &Cell{}, reflect.TypeOf(0), 30},
		{"int from text", " 08 ", &Cell{}, reflect.TypeOf(0), 8},
		{"int8", 12.0, &Cell{}, reflect.TypeOf(int8(0)), int8(12)},
		{"uint", "7", &Cell{}, reflect.TypeOf(uint(0)), uint(7)},
		{"float32", "1.5", &Cell{}, reflect.TypeOf(float32(0)), float32(1.5)},
		{"bool from text", "yes", &Cell{}, reflect.TypeOf(false), true},
		{"bool from bool", false, &Cell{}, reflect.TypeOf(false), false},
		{"time from time", day, &Cell{}, timeType, day},
		{"time from pattern", "09.03.2024", &Cell{Pattern: "dd.MM.yyyy"}, timeType, time.Date(2024, 3, 9, 0, 0, 0, 0, time.Local)},
		{"named string", "open", &Cell{}, reflect.TypeOf(ticketState("")), ticketState("open")},
		{"any passes through", 2.5, &Cell{}, anyType, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Convert(0, "A1", tt.raw, tt.cell, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertPointer(t *testing.T) {
	reg := NewConvertorRegistry()
	got, err := reg.Convert(0, "A1", 5.0, &Cell{}, reflect.TypeOf((*int)(nil)))
	require.NoError(t, err)
	require.IsType(t, (*int)(nil), got)
	assert.Equal(t, 5, *got.(*int))

	// pointers are optional even for numbers
	got, err = reg.Convert(0, "A1", nil, &Cell{}, reflect.TypeOf((*int)(nil)))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConvertDataErrors(t *testing.T) {
	reg := NewConvertorRegistry()
	tests := []struct {
		name string
		raw  any
		cell *Cell
		typ  reflect.Type
	}{
		{"implicit mandatory int", nil, &Cell{DataName: "age"}, reflect.TypeOf(0)},
		{"implicit mandatory bool", "  ", &Cell{}, reflect.TypeOf(false)},
		{"explicit mandatory string", nil, &Cell{Mandatory: true}, reflect.TypeOf("")},
		{"fraction into int", 1.5, &Cell{}, reflect.TypeOf(0)},
		{"text into int", "abc", &Cell{}, reflect.TypeOf(0)},
		{"overflow", 300.0, &Cell{}, reflect.TypeOf(int8(0))},
		{"beyond int64", 1e20, &Cell{}, reflect.TypeOf(int64(0))},
		{"beyond int64 negative", -1e20, &Cell{}, reflect.TypeOf(0)},
		{"beyond int64 text", "1e20", &Cell{}, reflect.TypeOf(int64(0))},
		{"beyond float32", 1e300, &Cell{}, reflect.TypeOf(float32(0))},
		{"negative uint", -1.0, &Cell{}, reflect.TypeOf(uint(0))},
		{"not a choice", "maybe", &Cell{Choices: []string{"yes", "no"}}, reflect.TypeOf("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Convert(2, "C4", tt.raw, tt.cell, tt.typ)
			var de *DataCollectionError
			require.True(t, errors.As(err, &de), "got %v", err)
			assert.Equal(t, 2, de.SheetIndex)
			assert.Equal(t, "C4", de.Ref)
		})
	}
}

func TestConvertOptionalBlank(t *testing.T) {
	got, err := NewConvertorRegistry().Convert(0, "A1", nil, &Cell{}, reflect.TypeOf(""))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConvertUnsupportedType(t *testing.T) {
	_, err := NewConvertorRegistry().Convert(1, "B2", "x", &Cell{}, reflect.TypeOf(struct{}{}))
	var ue *UnsupportedTypeError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "B2", ue.Ref)
}

func TestConvertorRegistryCustom(t *testing.T) {
	reg := NewConvertorRegistry()
	type money int64
	mt := reflect.TypeOf(money(0))
	reg.Register(mt, func(raw any, _ *Cell) (any, error) {
		f, _ := raw.(float64)
		return money(f * 100), nil
	})
	reg.RegisterName("Money", mt)

	typ, ok := reg.TypeFor("money")
	require.True(t, ok)
	got, err := reg.Convert(0, "A1", 1.25, &Cell{}, typ)
	require.NoError(t, err)
	assert.Equal(t, money(125), got)

	typ, ok = reg.TypeFor(" Date ")
	require.True(t, ok)
	assert.Equal(t, timeType, typ)
	_, ok = reg.TypeFor("nope")
	assert.False(t, ok)
}

func TestGoLayout(t *testing.T) {
	assert.Equal(t, "2006-01-02 15:04:05", GoLayout("yyyy-MM-dd HH:mm:ss"))
	assert.Equal(t, "02/01/06", GoLayout("dd/MM/yy"))
	assert.Equal(t, "2006-01-02", GoLayout("2006-01-02"))
}

func TestCellValue(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	n := 4
	assert.Equal(t, "02.01.2024", CellValue(day, &Cell{Pattern: "dd.MM.yyyy"}))
	assert.Equal(t, day, CellValue(day, &Cell{}))
	assert.Equal(t, 4, CellValue(&n, &Cell{}))
	assert.Nil(t, CellValue((*int)(nil), &Cell{}))
	assert.Nil(t, CellValue(nil, &Cell{}))
}
