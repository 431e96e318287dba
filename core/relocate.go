package core

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Rect is a zero-based, inclusive cell rectangle.
type Rect struct {
	StartRow, StartCol int
	EndRow, EndCol     int
}

// Rect returns the block's template rectangle.
func (b *Block) Rect() Rect {
	return Rect{StartRow: b.StartRow, StartCol: b.StartCol, EndRow: b.EndRow, EndCol: b.EndCol}
}

func (r Rect) contains(o Rect) bool {
	return o.StartRow >= r.StartRow && o.StartCol >= r.StartCol && o.EndRow <= r.EndRow && o.EndCol <= r.EndCol
}

// templateCell is the captured payload of one template cell.
type templateCell struct {
	formula string
	value   any
	style   int
}

// blockTemplate is a snapshot of a block region, pasted once per duplicate.
type blockTemplate struct {
	rect    Rect
	cells   [][]templateCell // [row][col], relative to rect
	merges  []Rect           // relative to rect
	widths  map[int]float64  // relative column -> width
	heights map[int]float64  // relative row -> height

	// columns and rows whose size was already copied
	seenCols map[int]bool
	seenRows map[int]bool
}

// captureBlock snapshots rect. Merges are collected only when withMerges is set
// and only those lying fully inside rect.
func captureBlock(f ExcelFile, sheet string, rect Rect, withMerges bool) (*blockTemplate, error) {
	h := rect.EndRow - rect.StartRow + 1
	w := rect.EndCol - rect.StartCol + 1
	t := &blockTemplate{
		rect:     rect,
		cells:    make([][]templateCell, h),
		widths:   make(map[int]float64),
		heights:  make(map[int]float64),
		seenCols: make(map[int]bool),
		seenRows: make(map[int]bool),
	}
	for r := range h {
		t.cells[r] = make([]templateCell, w)
		for c := range w {
			ref := CellRef(rect.StartRow+r, rect.StartCol+c)
			if ref == "" {
				return nil, &FormatError{Input: fmt.Sprintf("R%dC%d", rect.StartRow+r, rect.StartCol+c), Err: errOutOfSheet}
			}
			cell, err := capturePayload(f, sheet, ref)
			if err != nil {
				return nil, fmt.Errorf("capture %s: %w", ref, err)
			}
			t.cells[r][c] = cell
		}
	}

	for c := range w {
		name, err := excelize.ColumnNumberToName(rect.StartCol + c + 1)
		if err != nil {
			return nil, err
		}
		if width, err := f.GetColWidth(sheet, name); err == nil {
			t.widths[c] = width
		}
	}
	for r := range h {
		if height, err := f.GetRowHeight(sheet, rect.StartRow+r+1); err == nil {
			t.heights[r] = height
		}
	}

	if withMerges {
		merged, err := f.GetMergeCells(sheet)
		if err != nil {
			return nil, fmt.Errorf("read merged cells: %w", err)
		}
		for _, mc := range merged {
			sr, sc, err := CellPosition(mc.GetStartAxis())
			if err != nil {
				continue
			}
			er, ec, err := CellPosition(mc.GetEndAxis())
			if err != nil {
				continue
			}
			m := Rect{StartRow: sr, StartCol: sc, EndRow: er, EndCol: ec}
			if rect.contains(m) {
				t.merges = append(t.merges, Rect{
					StartRow: m.StartRow - rect.StartRow,
					StartCol: m.StartCol - rect.StartCol,
					EndRow:   m.EndRow - rect.StartRow,
					EndCol:   m.EndCol - rect.StartCol,
				})
			}
		}
	}
	return t, nil
}

// capturePayload reads a cell as the value to write back: a formula, a bool,
// a number (its date format travels with the style) or text.
func capturePayload(f ExcelFile, sheet, ref string) (templateCell, error) {
	var cell templateCell
	style, err := f.GetCellStyle(sheet, ref)
	if err != nil {
		return cell, err
	}
	cell.style = style

	formula, err := f.GetCellFormula(sheet, ref)
	if err != nil {
		return cell, err
	}
	if formula != "" {
		cell.formula = formula
		return cell, nil
	}

	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return cell, err
	}
	raw, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil || raw == "" {
		return cell, err
	}
	switch typ {
	case excelize.CellTypeBool:
		cell.value = raw == "1" || raw == "TRUE" || raw == "true"
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			cell.value = n
		} else {
			cell.value = raw
		}
	default:
		cell.value = raw
	}
	return cell, nil
}

// paste writes the snapshot translated by (rowOff, colOff). Formulas are
// relocated by the same offset.
func (t *blockTemplate) paste(f ExcelFile, sheet string, rowOff, colOff int, copyStyles bool) error {
	for r, row := range t.cells {
		for c, cell := range row {
			ref := CellRef(t.rect.StartRow+r+rowOff, t.rect.StartCol+c+colOff)
			if ref == "" {
				return &FormatError{Input: fmt.Sprintf("R%dC%d", t.rect.StartRow+r+rowOff, t.rect.StartCol+c+colOff), Err: errOutOfSheet}
			}
			switch {
			case cell.formula != "":
				if err := f.SetCellFormula(sheet, ref, OffsetFormula(cell.formula, rowOff, colOff)); err != nil {
					return err
				}
			case cell.value != nil:
				if err := f.SetCellValue(sheet, ref, cell.value); err != nil {
					return err
				}
			}
			if copyStyles && cell.style != 0 {
				if err := f.SetCellStyle(sheet, ref, ref, cell.style); err != nil {
					return err
				}
			}
		}
	}

	for _, m := range t.merges {
		start := CellRef(t.rect.StartRow+m.StartRow+rowOff, t.rect.StartCol+m.StartCol+colOff)
		end := CellRef(t.rect.StartRow+m.EndRow+rowOff, t.rect.StartCol+m.EndCol+colOff)
		if start == "" || end == "" {
			return &FormatError{Input: "merge", Err: errOutOfSheet}
		}
		if err := f.MergeCell(sheet, start, end); err != nil {
			return err
		}
	}

	for c, width := range t.widths {
		col := t.rect.StartCol + c + colOff
		if t.seenCols[col] || col == t.rect.StartCol+c {
			continue
		}
		t.seenCols[col] = true
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}
	for r, height := range t.heights {
		row := t.rect.StartRow + r + rowOff
		if t.seenRows[row] || row == t.rect.StartRow+r {
			continue
		}
		t.seenRows[row] = true
		if err := f.SetRowHeight(sheet, row+1, height); err != nil {
			return err
		}
	}
	return nil
}

// DuplicateBlock copies the src rectangle to src translated by (rowOffset,
// colOffset): values, relocated formulas, styles when copyStyles is set and
// merges lying inside src when merges is set. Column widths and row heights
// follow the copy.
func DuplicateBlock(f ExcelFile, sheet string, src Rect, rowOffset, colOffset int, copyStyles, merges bool) error {
	t, err := captureBlock(f, sheet, src, merges)
	if err != nil {
		return err
	}
	return t.paste(f, sheet, rowOffset, colOffset, copyStyles)
}
