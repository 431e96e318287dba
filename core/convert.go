package core

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
)

// Convertor turns a raw cell value into a value of one Go type.
type Convertor func(raw any, cell *Cell) (any, error)

var (
	errMandatory = errors.New("value is mandatory")
	errNotListed = errors.New("value is not one of the allowed choices")

	timeType = reflect.TypeOf(time.Time{})
)

// ConvertorRegistry maps property types to convertors and cell type names
// ("int", "date", ...) to property types.
type ConvertorRegistry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]Convertor
	byKind map[reflect.Kind]Convertor
	names  map[string]reflect.Type
}

// NewConvertorRegistry returns a registry preloaded with the built-in
// convertors for strings, numbers, booleans, dates and the empty interface.
func NewConvertorRegistry() *ConvertorRegistry {
	r := &ConvertorRegistry{
		byType: make(map[reflect.Type]Convertor),
		byKind: make(map[reflect.Kind]Convertor),
		names:  make(map[string]reflect.Type),
	}
	r.byKind[reflect.String] = toString
	for _, k := range []reflect.Kind{reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64} {
		r.byKind[k] = toInt
	}
	for _, k := range []reflect.Kind{reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64} {
		r.byKind[k] = toUint
	}
	r.byKind[reflect.Float32] = toFloat
	r.byKind[reflect.Float64] = toFloat
	r.byKind[reflect.Bool] = toBool
	r.byType[timeType] = toTime
	r.byType[anyType] = func(raw any, _ *Cell) (any, error) { return raw, nil }

	for name, t := range map[string]reflect.Type{
		"string":  reflect.TypeOf(""),
		"int":     reflect.TypeOf(0),
		"long":    reflect.TypeOf(int64(0)),
		"float":   reflect.TypeOf(float32(0)),
		"double":  reflect.TypeOf(float64(0)),
		"decimal": reflect.TypeOf(float64(0)),
		"bool":    reflect.TypeOf(false),
		"boolean": reflect.TypeOf(false),
		"date":    timeType,
		"any":     anyType,
	} {
		r.names[name] = t
	}
	return r
}

// Register installs a convertor for t. It wins over the kind-based defaults.
func (r *ConvertorRegistry) Register(t reflect.Type, c Convertor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[t] = c
}

// RegisterName lets cells select t with `type: name`.
func (r *ConvertorRegistry) RegisterName(name string, t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[strings.ToLower(name)] = t
}

// TypeFor resolves a cell type name.
func (r *ConvertorRegistry) TypeFor(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.names[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

func (r *ConvertorRegistry) lookup(t reflect.Type) (Convertor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.byType[t]; ok {
		return c, true
	}
	if t.Kind() == reflect.Interface {
		return nil, false
	}
	c, ok := r.byKind[t.Kind()]
	return c, ok
}

// Convert produces the value stored for cell. A nil result with a nil error
// means the cell was blank and optional: nothing is stored.
func (r *ConvertorRegistry) Convert(sheetIndex int, ref string, raw any, cell *Cell, typ reflect.Type) (any, error) {
	if typ == nil {
		typ = anyType
	}
	base := typ
	pointer := false
	for base.Kind() == reflect.Ptr {
		base = base.Elem()
		pointer = true
	}
	conv, ok := r.lookup(base)
	if !ok {
		return nil, &UnsupportedTypeError{SheetIndex: sheetIndex, Ref: ref, Raw: raw, Cell: cell, Type: typ.String()}
	}

	if isEmpty(raw) {
		if cell.Mandatory || (!pointer && implicitlyMandatory(base)) {
			return nil, &DataCollectionError{SheetIndex: sheetIndex, Ref: ref, Raw: raw, Cell: cell, Err: errMandatory}
		}
		return nil, nil
	}

	v, err := conv(raw, cell)
	if err != nil {
		return nil, &DataCollectionError{SheetIndex: sheetIndex, Ref: ref, Raw: raw, Cell: cell, Err: err}
	}
	if len(cell.Choices) > 0 && !listed(v, cell.Choices) {
		return nil, &DataCollectionError{SheetIndex: sheetIndex, Ref: ref, Raw: raw, Cell: cell, Err: errNotListed}
	}

	rv := reflect.ValueOf(v)
	if base != anyType && rv.Type() != base {
		if !rv.Type().ConvertibleTo(base) {
			return nil, &DataCollectionError{SheetIndex: sheetIndex, Ref: ref, Raw: raw, Cell: cell,
				Err: fmt.Errorf("cannot convert %s to %s", rv.Type(), base)}
		}
		out := reflect.New(base).Elem()
		switch base.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if out.OverflowInt(rv.Int()) {
				return nil, &DataCollectionError{SheetIndex: sheetIndex, Ref: ref, Raw: raw, Cell: cell, Err: fmt.Errorf("%v overflows %s", v, base)}
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if out.OverflowUint(rv.Uint()) {
				return nil, &DataCollectionError{SheetIndex: sheetIndex, Ref: ref, Raw: raw, Cell: cell, Err: fmt.Errorf("%v overflows %s", v, base)}
			}
		case reflect.Float32:
			if rv.CanFloat() && out.OverflowFloat(rv.Float()) {
				return nil, &DataCollectionError{SheetIndex: sheetIndex, Ref: ref, Raw: raw, Cell: cell, Err: fmt.Errorf("%v overflows %s", v, base)}
			}
		}
		out.Set(rv.Convert(base))
		rv = out
	}
	if pointer {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		return p.Interface(), nil
	}
	return rv.Interface(), nil
}

func implicitlyMandatory(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isEmpty(raw any) bool {
	if raw == nil {
		return true
	}
	s, ok := raw.(string)
	return ok && strings.TrimSpace(s) == ""
}

func listed(v any, choices []string) bool {
	text := cast.ToString(v)
	for _, c := range choices {
		if c == text {
			return true
		}
	}
	return false
}

func toString(raw any, cell *Cell) (any, error) {
	if t, ok := raw.(time.Time); ok {
		return t.Format(dateLayout(cell.Pattern, t)), nil
	}
	return cast.ToStringE(raw)
}

func toInt(raw any, _ *Cell) (any, error) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", v)
		}
		return integral(f)
	case float64:
		return integral(v)
	case bool:
		return nil, fmt.Errorf("boolean is not an integer")
	}
	return cast.ToInt64E(raw)
}

func toUint(raw any, cell *Cell) (any, error) {
	n, err := toInt(raw, cell)
	if err != nil {
		return nil, err
	}
	i := n.(int64)
	if i < 0 {
		return nil, fmt.Errorf("%d is negative", i)
	}
	return uint64(i), nil
}

func integral(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows int64", f)
	}
	return int64(f), nil
}

func toFloat(raw any, _ *Cell) (any, error) {
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
	}
	if _, ok := raw.(bool); ok {
		return nil, fmt.Errorf("boolean is not a number")
	}
	return cast.ToFloat64E(raw)
}

func toBool(raw any, _ *Cell) (any, error) {
	if s, ok := raw.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "y", "on":
			return true, nil
		case "no", "n", "off":
			return false, nil
		}
		raw = strings.TrimSpace(s)
	}
	return cast.ToBoolE(raw)
}

func toTime(raw any, cell *Cell) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case float64:
		return excelize.ExcelDateToTime(v, false)
	case string:
		s := strings.TrimSpace(v)
		if cell.Pattern != "" {
			return time.ParseInLocation(GoLayout(cell.Pattern), s, time.Local)
		}
		return cast.ToTimeE(s)
	}
	return cast.ToTimeE(raw)
}

var layoutTokens = strings.NewReplacer(
	"yyyy", "2006",
	"yy", "06",
	"MM", "01",
	"dd", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
	"SSS", "000",
)

// GoLayout translates yyyy/MM/dd/HH/mm/ss style patterns into a Go time
// layout. Go layouts pass through unchanged.
func GoLayout(pattern string) string {
	return layoutTokens.Replace(pattern)
}

func dateLayout(pattern string, t time.Time) string {
	if pattern != "" {
		return GoLayout(pattern)
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return time.DateOnly
	}
	return time.DateTime
}

// CellValue prepares a property value for writing into cell. Times with a
// pattern become text; dereferenced pointers and nil pass through.
func CellValue(v any, cell *Cell) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	v = rv.Interface()
	if t, ok := v.(time.Time); ok && cell.Pattern != "" {
		return t.Format(GoLayout(cell.Pattern))
	}
	return v
}
