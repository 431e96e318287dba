package core

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Reader binds the blocks of a workbook onto an object graph.
type Reader struct {
	Definition *Definition
	Types      *TypeRegistry
	Convertors *ConvertorRegistry
	Vivifier   *Vivifier
}

// NewReader returns a Reader using the process-wide type registry and the
// built-in convertors.
func NewReader(def *Definition) *Reader {
	return &Reader{
		Definition: def,
		Types:      DefaultTypeRegistry(),
		Convertors: NewConvertorRegistry(),
		Vivifier:   NewVivifier(),
	}
}

type readContext struct {
	f          ExcelFile
	sheet      string
	sheetIndex int
	status     *ReadStatus
}

// ReadFile reads the workbook at path into root.
func (r *Reader) ReadFile(path string, root any) *ReadStatus {
	f, err := OpenExcelFile(path)
	if err != nil {
		status := &ReadStatus{}
		status.fail(StatusFileError, fmt.Errorf("open %s: %w", path, err))
		return status
	}
	defer f.Close()
	return r.ReadWorkbook(f, root)
}

// Read reads a workbook stream into root.
func (r *Reader) Read(in io.Reader, root any) *ReadStatus {
	f, err := OpenExcelReader(in)
	if err != nil {
		status := &ReadStatus{}
		status.fail(StatusFileError, fmt.Errorf("open workbook: %w", err))
		return status
	}
	defer f.Close()
	return r.ReadWorkbook(f, root)
}

// ReadWorkbook binds every sheet of the definition. Root must be a non-nil
// pointer or a map. Per-cell problems are collected in the returned status;
// setting and system errors end the read.
func (r *Reader) ReadWorkbook(f ExcelFile, root any) *ReadStatus {
	status := &ReadStatus{}
	if err := checkRoot(root); err != nil {
		status.fail(StatusSettingError, err)
		return status
	}
	if r.Definition == nil {
		status.fail(StatusSettingError, &SettingError{Msg: "no definition"})
		return status
	}
	r.defaults()

	def := r.Definition.Clone()
	stack := NewPathStack(root, r.Vivifier)
	slog.Info("read workbook", "definition", def.ID, "sheets", len(def.Sheets))
	for _, sheet := range def.Sheets {
		name, err := resolveSheet(f, sheet)
		if err != nil {
			status.fail(StatusSettingError, err)
			return status
		}
		rc := &readContext{f: f, sheet: name, sheetIndex: sheet.Index, status: status}
		if err := r.readSheet(rc, sheet, stack); err != nil {
			status.fail(classify(err), err)
			return status
		}
	}
	return status
}

func (r *Reader) defaults() {
	if r.Types == nil {
		r.Types = DefaultTypeRegistry()
	}
	if r.Convertors == nil {
		r.Convertors = NewConvertorRegistry()
	}
	if r.Vivifier == nil {
		r.Vivifier = NewVivifier()
	}
}

func checkRoot(root any) error {
	if root == nil {
		return &SettingError{Msg: "root object", Err: ErrInvalidRoot}
	}
	rv := reflect.ValueOf(root)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map:
		if rv.IsNil() {
			return &SettingError{Msg: "root object", Err: ErrInvalidRoot}
		}
		return nil
	}
	return &SettingError{Msg: fmt.Sprintf("root object must be a pointer or a map, got %T", root), Err: ErrInvalidRoot}
}

// resolveSheet maps a sheet definition onto a sheet of f, by name when one
// is given and by position otherwise.
func resolveSheet(f ExcelFile, sheet *Sheet) (string, error) {
	if sheet.Name != "" {
		if idx, err := f.GetSheetIndex(sheet.Name); err != nil || idx < 0 {
			return "", &SettingError{Msg: fmt.Sprintf("sheet %q not found", sheet.Name)}
		}
		return sheet.Name, nil
	}
	list := f.GetSheetList()
	if sheet.Index < 0 || sheet.Index >= len(list) {
		return "", &SettingError{Msg: fmt.Sprintf("sheet index %d out of range (%d sheets)", sheet.Index, len(list))}
	}
	return list[sheet.Index], nil
}

func (r *Reader) readSheet(rc *readContext, sheet *Sheet, stack *PathStack) error {
	loopSeen := false
	for _, b := range sheet.Blocks {
		if b.Loop {
			if loopSeen {
				slog.Warn("skipping loop block, only the first loop block of a sheet is read",
					"sheet", rc.sheet, "block", b.Name())
				continue
			}
			loopSeen = true
		}
		before := len(rc.status.Errors)
		if err := r.readBlockSafe(rc, b, 0, 0, stack, noLimit); err != nil {
			return err
		}
		if !sheet.SkipErrors && len(rc.status.Errors) > before {
			slog.Info("stopping sheet after data errors", "sheet", rc.sheet, "block", b.Name(),
				"errors", len(rc.status.Errors)-before)
			break
		}
	}
	return nil
}

// noLimit marks a block that may grow to the edge of the sheet.
const noLimit = -1

func (r *Reader) readBlockSafe(rc *readContext, b *Block, rowOff, colOff int, stack *PathStack, limit int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &SystemError{Op: "read block " + b.Name(), Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	return r.readBlock(rc, b, rowOff, colOff, stack, limit)
}

// readBlock reads b translated by (rowOff, colOff). limit is the last row
// (or column, for vertical blocks) a loop iteration may reach.
func (r *Reader) readBlock(rc *readContext, b *Block, rowOff, colOff int, stack *PathStack, limit int) error {
	if !b.Loop {
		for _, c := range b.Cells {
			r.readCell(rc, c, rowOff, colOff, stack)
		}
		if b.Child != nil {
			return r.readBlock(rc, b.Child, rowOff, colOff, stack, r.blockEnd(b, rowOff, colOff))
		}
		return nil
	}
	return r.readLoop(rc, b, rowOff, colOff, stack, limit)
}

func (r *Reader) blockEnd(b *Block, rowOff, colOff int) int {
	if b.Direction == Vertical {
		return b.EndCol + colOff
	}
	return b.EndRow + rowOff
}

func (r *Reader) readLoop(rc *readContext, b *Block, rowOff, colOff int, stack *PathStack, limit int) error {
	base, err := stack.Root()
	if err != nil {
		return &SettingError{Block: b.Name(), Msg: "no target object", Err: err}
	}
	coll, elemType, err := r.collection(b, base, stack)
	if err != nil {
		return err
	}
	if limit == noLimit {
		limit = excelize.TotalRows - 1
		if b.Direction == Vertical {
			limit = excelize.MaxColumns - 1
		}
	}

	step := b.Step()
	count := 0
	for off := 0; ; off += step {
		ro, co := rowOff, colOff
		if b.Direction == Vertical {
			co += off
		} else {
			ro += off
		}
		if r.blockEnd(b, ro, co) > limit {
			break
		}
		if r.shouldBreak(rc, b, ro, co) {
			break
		}

		elem, err := r.newElement(b, elemType)
		if err != nil {
			return err
		}
		elemStack := NewPathStack(elem.Interface(), r.Vivifier)
		elemStack.Context = stack.Context
		elemStack.SetCurrent(elem.Interface())
		for _, c := range b.Cells {
			r.readCell(rc, c, ro, co, elemStack)
		}
		if b.Child != nil {
			if err := r.readBlock(rc, b.Child, ro, co, elemStack, r.blockEnd(b, ro, co)); err != nil {
				return err
			}
		}

		if elemType.Kind() != reflect.Ptr && elem.Kind() == reflect.Ptr && elemType != anyType {
			elem = elem.Elem()
		}
		coll = reflect.Append(coll, elem)
		count++
	}

	slog.Debug("read loop block", "sheet", rc.sheet, "block", b.Name(), "rows", count)
	if err := stack.Set(b.DataName, coll.Interface()); err != nil {
		return &SettingError{Block: b.Name(), Msg: "cannot store collection", Err: err}
	}
	return nil
}

// collection returns the slice the loop appends to (the existing one when
// the property already holds elements) and its element type.
func (r *Reader) collection(b *Block, base any, stack *PathStack) (reflect.Value, reflect.Type, error) {
	t := PropertyType(base, b.DataName)
	if t == nil {
		return reflect.Value{}, nil, &SettingError{Block: b.Name(), Msg: fmt.Sprintf("property %q cannot be resolved", b.DataName)}
	}
	if t.Kind() == reflect.Interface {
		t = reflect.TypeOf([]any(nil))
	}
	if t.Kind() != reflect.Slice {
		return reflect.Value{}, nil, &SettingError{Block: b.Name(), Msg: fmt.Sprintf("property %q is %s, not a collection", b.DataName, t)}
	}
	coll := reflect.MakeSlice(t, 0, 0)
	if cur, err := stack.Lookup(b.DataName); err == nil && cur != nil {
		cv := reflect.ValueOf(cur)
		if cv.Type().AssignableTo(t) {
			coll = cv
		}
	}
	return coll, t.Elem(), nil
}

// newElement creates the object one iteration binds into. With a loop class
// it is an instance of that type, otherwise it follows the collection's
// element type, falling back to a map keyed by cell name. An unregistered
// loop class over a generic collection also gets a map.
func (r *Reader) newElement(b *Block, elemType reflect.Type) (reflect.Value, error) {
	useClass := b.LoopClass != ""
	if useClass && genericElem(elemType) {
		if _, ok := r.Types.Lookup(b.LoopClass); !ok {
			slog.Debug("loop class not registered, reading elements as maps",
				"block", b.Name(), "loopClass", b.LoopClass)
			useClass = false
		}
	}
	if useClass {
		ptr, err := r.Types.New(b.LoopClass)
		if err != nil {
			return reflect.Value{}, &SettingError{Block: b.Name(), Msg: "loop class", Err: err}
		}
		switch {
		case ptr.Type().AssignableTo(elemType), ptr.Elem().Type().AssignableTo(elemType):
			return ptr, nil
		}
		return reflect.Value{}, &SettingError{Block: b.Name(),
			Msg: fmt.Sprintf("loop class %s does not fit a collection of %s", b.LoopClass, elemType)}
	}

	switch {
	case elemType.Kind() == reflect.Struct:
		return reflect.New(elemType), nil
	case elemType.Kind() == reflect.Ptr && elemType.Elem().Kind() == reflect.Struct:
		return reflect.New(elemType.Elem()), nil
	case elemType.Kind() == reflect.Map && elemType.Key().Kind() == reflect.String:
		return reflect.MakeMap(elemType), nil
	case elemType.Kind() == reflect.Interface && elemType.NumMethod() == 0:
		return reflect.ValueOf(map[string]any{}), nil
	}
	return reflect.Value{}, &SettingError{Block: b.Name(), Msg: fmt.Sprintf("cannot create elements of %s", elemType)}
}

func genericElem(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return t.NumMethod() == 0
	case reflect.Map:
		return t.Key().Kind() == reflect.String
	}
	return false
}

// shouldBreak evaluates the loop's stop rule before the iteration at
// (rowOff, colOff). With a break condition the checked cell sits at the
// given offset from the last row (column) consumed; it stops the loop when
// blank or equal to the flag. A (0, 0) offset checks the previous iteration,
// so the loop reads one blank iteration before it stops. Without a break
// condition the loop ends at the first iteration whose bound cells are all
// blank.
func (r *Reader) shouldBreak(rc *readContext, b *Block, rowOff, colOff int) bool {
	if b.Break != nil {
		var row, col int
		if b.Direction == Vertical {
			row = b.StartRow + rowOff + b.Break.RowOffset
			col = b.StartCol + colOff - 1 + b.Break.ColOffset
		} else {
			row = b.StartRow + rowOff - 1 + b.Break.RowOffset
			col = b.StartCol + colOff + b.Break.ColOffset
		}
		ref := CellRef(row, col)
		if ref == "" {
			return true
		}
		v, err := rc.f.GetCellValue(rc.sheet, ref)
		if err != nil || v == "" {
			return true
		}
		return b.Break.Flag != "" && v == b.Break.Flag
	}

	for _, c := range boundCells(b) {
		ref := CellRef(c.Row+rowOff, c.Col+colOff)
		if ref != "" && !IsBlank(rc.f, rc.sheet, ref) {
			return false
		}
	}
	return true
}

func boundCells(b *Block) []*Cell {
	var cells []*Cell
	for ; b != nil; b = b.Child {
		cells = append(cells, b.Cells...)
	}
	return cells
}

func (r *Reader) readCell(rc *readContext, c *Cell, rowOff, colOff int, stack *PathStack) {
	ref := CellRef(c.Row+rowOff, c.Col+colOff)
	raw, err := RawValue(rc.f, rc.sheet, ref)
	if err != nil {
		rc.status.addDataError(&DataCollectionError{SheetIndex: rc.sheetIndex, Ref: ref, Cell: c, Err: err})
		return
	}
	if name, ok := strings.CutPrefix(c.DataName, ParamPrefix); ok {
		// parameter cells read back onto the root under the parameter name
		pc := *c
		pc.DataName = name
		c = &pc
	}
	target, _ := stack.Peek()
	typ := DetectPropertyType(target, c, r.Convertors)
	v, err := r.Convertors.Convert(rc.sheetIndex, ref, raw, c, typ)
	if err != nil {
		rc.status.addDataError(err)
		return
	}
	if v == nil {
		return
	}
	if err := stack.Set(c.DataName, v); err != nil {
		rc.status.addDataError(&DataCollectionError{SheetIndex: rc.sheetIndex, Ref: ref, Raw: raw, Cell: c, Err: err})
	}
}
