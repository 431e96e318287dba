package core

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// DefaultIgnoredPackages lists the packages whose types are never
// auto-vivified: they are either immutable values or runtime plumbing.
var DefaultIgnoredPackages = []string{
	"time", "sync", "sync/atomic", "reflect", "net", "net/url", "os", "io", "context", "math/big",
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Vivifier walks property paths over struct/map/slice graphs and creates
// absent intermediate containers on demand.
type Vivifier struct {
	ignored map[string]bool
}

// NewVivifier builds a Vivifier ignoring DefaultIgnoredPackages plus extra.
func NewVivifier(extra ...string) *Vivifier {
	v := &Vivifier{ignored: make(map[string]bool)}
	for _, p := range DefaultIgnoredPackages {
		v.ignored[p] = true
	}
	for _, p := range extra {
		v.ignored[p] = true
	}
	return v
}

func (v *Vivifier) isIgnored(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() != "" && v.ignored[t.PkgPath()]
}

// CanVivify reports whether an absent value of type t may be created.
func (v *Vivifier) CanVivify(t reflect.Type) bool {
	if t == nil || v.isIgnored(t) {
		return false
	}
	switch t.Kind() {
	case reflect.Ptr:
		return t.Elem().Kind() == reflect.Struct
	case reflect.Map, reflect.Slice:
		return true
	case reflect.Interface:
		// only a generic slot; a map stands in for the missing object
		return t.NumMethod() == 0
	default:
		return false
	}
}

func (v *Vivifier) newValue(t reflect.Type) reflect.Value {
	switch t.Kind() {
	case reflect.Ptr:
		return reflect.New(t.Elem())
	case reflect.Map:
		return reflect.MakeMap(t)
	case reflect.Slice:
		return reflect.MakeSlice(t, 0, 0)
	default:
		return reflect.ValueOf(map[string]any{})
	}
}

type pathSegment struct {
	name    string
	indexes []int
}

func parsePath(path string) ([]pathSegment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty property path")
	}
	parts := strings.Split(path, ".")
	segs := make([]pathSegment, 0, len(parts))
	for _, p := range parts {
		seg := pathSegment{}
		name := p
		if i := strings.IndexByte(p, '['); i >= 0 {
			name = p[:i]
			rest := p[i:]
			for rest != "" {
				end := strings.IndexByte(rest, ']')
				if rest[0] != '[' || end < 0 {
					return nil, fmt.Errorf("malformed index in %q", path)
				}
				n, err := strconv.Atoi(rest[1:end])
				if err != nil || n < 0 {
					return nil, fmt.Errorf("malformed index in %q", path)
				}
				seg.indexes = append(seg.indexes, n)
				rest = rest[end+1:]
			}
		}
		if name == "" && len(seg.indexes) == 0 {
			return nil, fmt.Errorf("empty segment in %q", path)
		}
		seg.name = name
		segs = append(segs, seg)
	}
	return segs, nil
}

// slot is one addressable location on a path: a struct field, a map entry
// or a slice element.
type slot struct {
	value reflect.Value // may be invalid for an absent map entry
	typ   reflect.Type  // declared type of the location
	set   func(reflect.Value) error
}

func rootSlot(root any) slot {
	rv := reflect.ValueOf(root)
	return slot{
		value: rv,
		typ:   rv.Type(),
		set: func(reflect.Value) error {
			return fmt.Errorf("cannot replace the root object")
		},
	}
}

// descend dereferences s for traversal, creating it when absent and vivify
// is set. ok is false when the value is absent and was not created.
func (v *Vivifier) descend(s slot, vivify bool) (cur reflect.Value, ok bool, err error) {
	cur = s.value
	typ := s.typ
	for {
		if !cur.IsValid() || (isNilable(cur.Kind()) && cur.IsNil()) {
			if cur.IsValid() {
				typ = cur.Type()
			}
			if !vivify {
				return reflect.Value{}, false, nil
			}
			if !v.CanVivify(typ) {
				return reflect.Value{}, false, fmt.Errorf("cannot create intermediate value of type %s", typ)
			}
			nv := v.newValue(typ)
			if err := s.set(nv); err != nil {
				return reflect.Value{}, false, err
			}
			cur = nv
			continue
		}
		switch cur.Kind() {
		case reflect.Ptr, reflect.Interface:
			cur = cur.Elem()
			continue
		}
		return cur, true, nil
	}
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	}
	return false
}

func (v *Vivifier) field(cur reflect.Value, name string) (slot, error) {
	switch cur.Kind() {
	case reflect.Struct:
		sf, ok := findField(cur.Type(), name)
		if !ok {
			return slot{}, fmt.Errorf("no property %q on %s", name, cur.Type())
		}
		f, err := cur.FieldByIndexErr(sf.Index)
		if err != nil {
			return slot{}, fmt.Errorf("property %q on %s: %w", name, cur.Type(), err)
		}
		return slot{
			value: f,
			typ:   f.Type(),
			set: func(x reflect.Value) error {
				if !f.CanSet() {
					return fmt.Errorf("property %q on %s is not settable", name, cur.Type())
				}
				f.Set(x)
				return nil
			},
		}, nil
	case reflect.Map:
		if cur.Type().Key().Kind() != reflect.String {
			return slot{}, fmt.Errorf("map %s is not keyed by string", cur.Type())
		}
		key := reflect.ValueOf(name).Convert(cur.Type().Key())
		return slot{
			value: cur.MapIndex(key),
			typ:   cur.Type().Elem(),
			set: func(x reflect.Value) error {
				cur.SetMapIndex(key, x)
				return nil
			},
		}, nil
	default:
		return slot{}, fmt.Errorf("cannot resolve property %q on %s", name, cur.Type())
	}
}

func (v *Vivifier) index(s slot, idx int, vivify bool) (slot, error) {
	cur, ok, err := v.descend(s, vivify)
	if err != nil {
		return slot{}, err
	}
	if !ok {
		return slot{typ: elemTypeOf(s.typ)}, nil
	}
	switch cur.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return slot{}, fmt.Errorf("cannot index %s", cur.Type())
	}
	if idx >= cur.Len() {
		if !vivify || cur.Kind() != reflect.Slice {
			return slot{typ: cur.Type().Elem()}, nil
		}
		grown := reflect.AppendSlice(cur, reflect.MakeSlice(cur.Type(), idx+1-cur.Len(), idx+1-cur.Len()))
		if cur.CanSet() {
			cur.Set(grown)
		} else if err := s.set(grown); err != nil {
			return slot{}, err
		}
		cur = grown
	}
	e := cur.Index(idx)
	return slot{
		value: e,
		typ:   e.Type(),
		set: func(x reflect.Value) error {
			if !e.CanSet() {
				return fmt.Errorf("element %d of %s is not settable", idx, cur.Type())
			}
			e.Set(x)
			return nil
		},
	}, nil
}

func elemTypeOf(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		return t.Elem()
	}
	return anyType
}

// resolve navigates to the slot named by the last segment. Every
// intermediate is descended (and created when vivify is set).
func (v *Vivifier) resolve(root any, segs []pathSegment, vivify bool) (slot, bool, error) {
	if root == nil {
		return slot{}, false, fmt.Errorf("nil root object")
	}
	s := rootSlot(root)
	for i, seg := range segs {
		if seg.name != "" {
			cur, ok, err := v.descend(s, vivify)
			if err != nil {
				return slot{}, false, err
			}
			if !ok {
				return slot{}, false, nil
			}
			if s, err = v.field(cur, seg.name); err != nil {
				return slot{}, false, err
			}
		}
		for _, idx := range seg.indexes {
			var err error
			if s, err = v.index(s, idx, vivify); err != nil {
				return slot{}, false, err
			}
			if !s.value.IsValid() && (i < len(segs)-1 || !vivify) {
				return slot{}, false, nil
			}
		}
	}
	return s, true, nil
}

// GetPath evaluates path against root. An absent value yields (nil, nil);
// a path that does not fit the object graph yields an error.
func (v *Vivifier) GetPath(root any, path string, vivify bool) (any, error) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	s, ok, err := v.resolve(root, segs, vivify)
	if err != nil || !ok || !s.value.IsValid() {
		return nil, err
	}
	if isNilable(s.value.Kind()) && s.value.IsNil() {
		return nil, nil
	}
	if !s.value.CanInterface() {
		return nil, fmt.Errorf("property %q is not exported", path)
	}
	return s.value.Interface(), nil
}

// SetPath assigns value at path on root, creating absent intermediates.
func (v *Vivifier) SetPath(root any, path string, value any) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	s, ok, err := v.resolve(root, segs, true)
	if err != nil {
		return err
	}
	if !ok || s.set == nil {
		return fmt.Errorf("cannot resolve %q", path)
	}
	rv, err := adaptValue(value, s.typ)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	return s.set(rv)
}

// PropertyType resolves the declared type at path without mutating target.
// Generic slots (interfaces) report the runtime type of their current value.
// It returns nil when the path cannot be typed.
func PropertyType(target any, path string) reflect.Type {
	if target == nil {
		return nil
	}
	segs, err := parsePath(path)
	if err != nil {
		return nil
	}
	t := reflect.TypeOf(target)
	v := reflect.ValueOf(target)

	deref := func() bool {
		for {
			switch t.Kind() {
			case reflect.Ptr:
				t = t.Elem()
				if v.IsValid() && !v.IsNil() {
					v = v.Elem()
				} else {
					v = reflect.Value{}
				}
			case reflect.Interface:
				if !v.IsValid() || v.IsNil() {
					return false
				}
				v = v.Elem()
				t = v.Type()
			default:
				return true
			}
		}
	}

	for _, seg := range segs {
		if seg.name != "" {
			if !deref() {
				return nil
			}
			switch t.Kind() {
			case reflect.Struct:
				sf, ok := findField(t, seg.name)
				if !ok {
					return nil
				}
				t = sf.Type
				if v.IsValid() {
					if f, err := v.FieldByIndexErr(sf.Index); err == nil {
						v = f
					} else {
						v = reflect.Value{}
					}
				}
			case reflect.Map:
				if t.Key().Kind() != reflect.String {
					return nil
				}
				if v.IsValid() && !v.IsNil() {
					v = v.MapIndex(reflect.ValueOf(seg.name).Convert(t.Key()))
				} else {
					v = reflect.Value{}
				}
				t = t.Elem()
			default:
				return nil
			}
		}
		for _, idx := range seg.indexes {
			if !deref() {
				return nil
			}
			if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
				return nil
			}
			if v.IsValid() && idx < v.Len() {
				v = v.Index(idx)
			} else {
				v = reflect.Value{}
			}
			t = t.Elem()
		}
	}
	if t.Kind() == reflect.Interface && v.IsValid() && !v.IsNil() {
		return v.Elem().Type()
	}
	return t
}

// findField matches a struct field by exact name, then by `grid` tag, then
// case-insensitively.
func findField(t reflect.Type, name string) (reflect.StructField, bool) {
	if sf, ok := t.FieldByName(name); ok && sf.IsExported() {
		return sf, true
	}
	fields := reflect.VisibleFields(t)
	for _, sf := range fields {
		if !sf.IsExported() {
			continue
		}
		if tag, ok := sf.Tag.Lookup("grid"); ok && strings.Split(tag, ",")[0] == name {
			return sf, true
		}
	}
	for _, sf := range fields {
		if sf.IsExported() && strings.EqualFold(sf.Name, name) {
			return sf, true
		}
	}
	return reflect.StructField{}, false
}

// adaptValue makes value assignable to typ: direct assignment, pointer
// wrapping/unwrapping and conversion within the same kind family.
func adaptValue(value any, typ reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(typ), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(typ) {
		return rv, nil
	}
	if typ.Kind() == reflect.Ptr {
		inner, err := adaptValue(value, typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(typ.Elem())
		p.Elem().Set(inner)
		return p, nil
	}
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Zero(typ), nil
		}
		return adaptValue(rv.Elem().Interface(), typ)
	}
	if sameFamily(rv.Kind(), typ.Kind()) && rv.Type().ConvertibleTo(typ) {
		return rv.Convert(typ), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %s to %s", rv.Type(), typ)
}

func kindFamily(k reflect.Kind) int {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return 1
	case reflect.String:
		return 2
	case reflect.Bool:
		return 3
	case reflect.Slice:
		return 4
	case reflect.Map:
		return 5
	default:
		return 0
	}
}

func sameFamily(a, b reflect.Kind) bool {
	fa := kindFamily(a)
	return fa != 0 && fa == kindFamily(b)
}
