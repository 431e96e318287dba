package core

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/xuri/excelize/v2"
)

// Writer lays an object graph onto a template workbook, expanding loop blocks
// once per collection element.
type Writer struct {
	Definition *Definition
	Vivifier   *Vivifier
	Styles     *StyleEvaluator
	// Context is looked up when a data name is absent from the object graph,
	// typically the invocation parameters.
	Context map[string]any
}

func NewWriter(def *Definition) *Writer {
	return &Writer{Definition: def, Vivifier: NewVivifier(), Styles: NewStyleEvaluator()}
}

type writeContext struct {
	f          ExcelFile
	sheet      string
	sheetIndex int
	root       any
	status     *WriteStatus
}

// WriteTo reads the template from in, binds root and writes the result to out.
func (w *Writer) WriteTo(in io.Reader, out io.Writer, root any) *WriteStatus {
	f, err := OpenExcelReader(in)
	if err != nil {
		status := &WriteStatus{}
		status.fail(StatusFileError, fmt.Errorf("open template: %w", err))
		return status
	}
	defer f.Close()

	status := w.Write(f, root)
	if status.Code == StatusSuccess || status.Code == StatusDataCollectionError {
		if err := f.Write(out); err != nil {
			status.fail(StatusFileError, fmt.Errorf("write workbook: %w", err))
		}
	}
	return status
}

// Write binds root onto f in place. The definition is cloned first because
// expanding a loop moves every block declared after it.
func (w *Writer) Write(f ExcelFile, root any) *WriteStatus {
	status := &WriteStatus{}
	if root == nil {
		status.fail(StatusSettingError, &SettingError{Msg: "root object", Err: ErrInvalidRoot})
		return status
	}
	if w.Definition == nil {
		status.fail(StatusSettingError, &SettingError{Msg: "no definition"})
		return status
	}
	if w.Vivifier == nil {
		w.Vivifier = NewVivifier()
	}
	if w.Styles == nil {
		w.Styles = NewStyleEvaluator()
	}

	def := w.Definition.Clone()
	stack := NewPathStack(root, w.Vivifier)
	for k, v := range w.Context {
		stack.Context[k] = v
	}
	slog.Info("write workbook", "definition", def.ID, "sheets", len(def.Sheets))
	for _, sheet := range def.Sheets {
		name, err := resolveSheet(f, sheet)
		if err != nil {
			status.fail(StatusSettingError, err)
			return status
		}
		wc := &writeContext{f: f, sheet: name, sheetIndex: sheet.Index, root: root, status: status}
		if err := w.writeSheet(wc, sheet, stack); err != nil {
			status.fail(classify(err), err)
			return status
		}
	}

	// Reset the view of every sheet to A1, first sheet active.
	if sheets := f.GetSheetList(); len(sheets) > 0 {
		for _, sheet := range sheets {
			_ = f.SetSelection(sheet, "A1")
		}
		f.SetActiveSheet(0)
	}
	return status
}

func (w *Writer) writeSheet(wc *writeContext, sheet *Sheet, stack *PathStack) error {
	for i, b := range sheet.Blocks {
		before := len(wc.status.Errors)
		inserted, err := w.writeBlockSafe(wc, b, stack)
		if err != nil {
			return err
		}
		if inserted > 0 {
			shiftFollowing(b, sheet.Blocks[i+1:], inserted)
		}
		if !sheet.SkipErrors && len(wc.status.Errors) > before {
			slog.Info("stopping sheet after data errors", "sheet", wc.sheet, "block", b.Name(),
				"errors", len(wc.status.Errors)-before)
			break
		}
	}
	return nil
}

// shiftFollowing moves blocks lying past the expanded block by the number of
// rows (columns) inserted for it.
func shiftFollowing(b *Block, rest []*Block, inserted int) {
	for _, next := range rest {
		if b.Direction == Vertical {
			if next.StartCol > b.EndCol {
				next.Shift(0, inserted)
			}
		} else if next.StartRow > b.EndRow {
			next.Shift(inserted, 0)
		}
	}
}

func (w *Writer) writeBlockSafe(wc *writeContext, b *Block, stack *PathStack) (inserted int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &SystemError{Op: "write block " + b.Name(), Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	return w.writeBlock(wc, b, 0, 0, stack, noLimit)
}

func (w *Writer) writeBlock(wc *writeContext, b *Block, rowOff, colOff int, stack *PathStack, limit int) (int, error) {
	if b.Loop {
		return w.writeLoop(wc, b, rowOff, colOff, stack, limit)
	}
	for _, c := range b.Cells {
		w.writeCell(wc, c, rowOff, colOff, stack)
	}
	if b.Child != nil {
		if _, err := w.writeBlock(wc, b.Child, rowOff, colOff, stack, blockEndAt(b, rowOff, colOff)); err != nil {
			return 0, err
		}
	}
	return 0, nil
}

func blockEndAt(b *Block, rowOff, colOff int) int {
	if b.Direction == Vertical {
		return b.EndCol + colOff
	}
	return b.EndRow + rowOff
}

// writeLoop expands b for its collection. A top-level loop (noLimit) inserts
// room for every element after the template; a nested loop only fills the
// iterations that fit inside its parent.
func (w *Writer) writeLoop(wc *writeContext, b *Block, rowOff, colOff int, stack *PathStack, limit int) (int, error) {
	items, err := w.collection(b, stack)
	if err != nil {
		return 0, err
	}
	n := items.Len()
	step := b.Step()

	if limit != noLimit {
		start := b.StartRow + rowOff
		if b.Direction == Vertical {
			start = b.StartCol + colOff
		}
		if fit := (limit - start + 1) / step; n > fit {
			slog.Warn("collection exceeds the parent block, extra elements dropped",
				"sheet", wc.sheet, "block", b.Name(), "elements", n, "fit", fit)
			n = max(fit, 0)
		}
	}

	if n == 0 {
		w.clearCells(wc, b, rowOff, colOff)
		slog.Debug("write loop block", "sheet", wc.sheet, "block", b.Name(), "rows", 0)
		return 0, nil
	}

	tmpl, err := captureBlock(wc.f, wc.sheet, Rect{
		StartRow: b.StartRow + rowOff, StartCol: b.StartCol + colOff,
		EndRow: b.EndRow + rowOff, EndCol: b.EndCol + colOff,
	}, true)
	if err != nil {
		return 0, &SystemError{Op: "capture template " + b.Name(), Err: err}
	}

	inserted := 0
	if limit == noLimit && n > 1 {
		inserted = (n - 1) * step
		if err := w.insertAfter(wc, b, rowOff, colOff, inserted); err != nil {
			return 0, err
		}
	}
	for i := 1; i < n; i++ {
		ro, co := loopOffset(b, i*step)
		if err := tmpl.paste(wc.f, wc.sheet, ro, co, true); err != nil {
			return 0, &SystemError{Op: "duplicate " + b.Name(), Err: err}
		}
	}

	for i := 0; i < n; i++ {
		ro, co := loopOffset(b, i*step)
		ro += rowOff
		co += colOff
		elem := items.Index(i).Interface()
		elemStack := stack.Fork(elem)

		for _, c := range b.Cells {
			w.writeCell(wc, c, ro, co, elemStack)
		}
		if b.Child != nil {
			if _, err := w.writeBlock(wc, b.Child, ro, co, elemStack, blockEndAt(b, ro, co)); err != nil {
				return 0, err
			}
		}

		env := styleEnv(elem, i, wc.root)
		if err := w.Styles.applyStyles(wc.f, wc.sheet, b.Styles, env, ro, co); err != nil {
			return 0, &SettingError{Block: b.Name(), Msg: "conditional style", Err: err}
		}
		for _, c := range b.Cells {
			if err := w.Styles.applyStyles(wc.f, wc.sheet, c.Styles, env, ro, co); err != nil {
				return 0, &SettingError{Block: b.Name(), Msg: "conditional style", Err: err}
			}
		}
	}

	slog.Debug("write loop block", "sheet", wc.sheet, "block", b.Name(), "rows", n)
	return inserted, nil
}

func loopOffset(b *Block, off int) (int, int) {
	if b.Direction == Vertical {
		return 0, off
	}
	return off, 0
}

func (w *Writer) collection(b *Block, stack *PathStack) (reflect.Value, error) {
	v, err := stack.Lookup(b.DataName)
	if err != nil {
		return reflect.Value{}, &SettingError{Block: b.Name(), Msg: fmt.Sprintf("property %q cannot be resolved", b.DataName), Err: err}
	}
	if v == nil {
		return reflect.ValueOf([]any(nil)), nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.ValueOf([]any(nil)), nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return reflect.Value{}, &SettingError{Block: b.Name(), Msg: fmt.Sprintf("property %q is %T, not a collection", b.DataName, v)}
	}
	return rv, nil
}

func (w *Writer) insertAfter(wc *writeContext, b *Block, rowOff, colOff, count int) error {
	if b.Direction == Vertical {
		col, err := excelize.ColumnNumberToName(b.EndCol + colOff + 2)
		if err != nil {
			return &SystemError{Op: "insert columns", Err: err}
		}
		if err := wc.f.InsertCols(wc.sheet, col, count); err != nil {
			return &SystemError{Op: "insert columns", Err: err}
		}
		return nil
	}
	if err := wc.f.InsertRows(wc.sheet, b.EndRow+rowOff+2, count); err != nil {
		return &SystemError{Op: "insert rows", Err: err}
	}
	return nil
}

// clearCells blanks the bound cells of an unused template; literal text
// around them stays.
func (w *Writer) clearCells(wc *writeContext, b *Block, rowOff, colOff int) {
	for _, c := range boundCells(b) {
		ref := CellRef(c.Row+rowOff, c.Col+colOff)
		if ref == "" {
			continue
		}
		if err := wc.f.SetCellValue(wc.sheet, ref, nil); err != nil {
			wc.status.addDataError(&DataCollectionError{SheetIndex: wc.sheetIndex, Ref: ref, Cell: c, Err: err})
		}
	}
}

func (w *Writer) writeCell(wc *writeContext, c *Cell, rowOff, colOff int, stack *PathStack) {
	ref := CellRef(c.Row+rowOff, c.Col+colOff)
	if ref == "" {
		wc.status.addDataError(&DataCollectionError{SheetIndex: wc.sheetIndex, Ref: RangeRef(c.Row, c.Col, c.Row, c.Col), Cell: c, Err: errOutOfSheet})
		return
	}
	v, err := stack.Lookup(c.DataName)
	if err != nil {
		wc.status.addDataError(&DataCollectionError{SheetIndex: wc.sheetIndex, Ref: ref, Cell: c, Err: err})
		return
	}
	value := CellValue(v, c)
	if value == nil && c.Mandatory {
		wc.status.addDataError(&DataCollectionError{SheetIndex: wc.sheetIndex, Ref: ref, Cell: c, Err: errMandatory})
		return
	}
	if err := wc.f.SetCellValue(wc.sheet, ref, value); err != nil {
		wc.status.addDataError(&DataCollectionError{SheetIndex: wc.sheetIndex, Ref: ref, Raw: value, Cell: c, Err: err})
	}
}
