package core

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// StyleEvaluator decides which conditional styles apply to a written element.
// Compiled conditions are cached by source text.
type StyleEvaluator struct {
	mu       sync.Mutex
	programs map[string]*vm.Program
}

func NewStyleEvaluator() *StyleEvaluator {
	return &StyleEvaluator{programs: make(map[string]*vm.Program)}
}

func (e *StyleEvaluator) program(condition string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.programs[condition]; ok {
		return p, nil
	}
	p, err := expr.Compile(condition, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	e.programs[condition] = p
	return p, nil
}

// Eval runs condition against env. Non-boolean results count as false,
// except non-nil values.
func (e *StyleEvaluator) Eval(condition string, env map[string]any) (bool, error) {
	p, err := e.program(condition)
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", condition, err)
	}
	out, err := expr.Run(p, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition %q: %w", condition, err)
	}
	switch v := out.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	default:
		return true, nil
	}
}

// styleEnv exposes the element as "top", its position as "index", the
// whole graph as "root" and the element's own properties by name.
func styleEnv(elem any, index int, root any) map[string]any {
	env := make(map[string]any)
	rv := reflect.ValueOf(elem)
	for rv.IsValid() && (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			break
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			iter := rv.MapRange()
			for iter.Next() {
				env[iter.Key().String()] = iter.Value().Interface()
			}
		}
	case reflect.Struct:
		for _, sf := range reflect.VisibleFields(rv.Type()) {
			if sf.IsExported() && !sf.Anonymous {
				env[sf.Name] = rv.FieldByIndex(sf.Index).Interface()
			}
		}
	}
	env["top"] = elem
	env["index"] = index
	env["root"] = root
	return env
}

// applyStyles evaluates every conditional style for the element written at
// (rowOff, colOff) and, when the condition holds, paints the translated range
// with the style of the template cell (StartRow, CellIndex).
func (e *StyleEvaluator) applyStyles(f ExcelFile, sheet string, styles []*ConditionalStyle, env map[string]any, rowOff, colOff int) error {
	for _, s := range styles {
		ok, err := e.Eval(s.Condition, env)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		src := CellRef(s.StartRow, s.CellIndex)
		if src == "" {
			return &SettingError{Msg: fmt.Sprintf("style cell index %d is outside the sheet", s.CellIndex)}
		}
		styleID, err := f.GetCellStyle(sheet, src)
		if err != nil {
			return err
		}
		from := CellRef(s.StartRow+rowOff, s.StartCol+colOff)
		to := CellRef(s.EndRow+rowOff, s.EndCol+colOff)
		if from == "" || to == "" {
			return &FormatError{Input: RangeRef(s.StartRow, s.StartCol, s.EndRow, s.EndCol), Err: errOutOfSheet}
		}
		if err := f.SetCellStyle(sheet, from, to, styleID); err != nil {
			return err
		}
	}
	return nil
}
