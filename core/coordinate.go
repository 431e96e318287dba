package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Coordinates in the engine are zero-based (row 0, col 0 is "A1"); excelize
// works one-based, so every conversion goes through the helpers below.

// CellRef converts a zero-based (row, col) pair to an A1-style reference.
// Negative or out-of-sheet coordinates yield "".
func CellRef(row, col int) string {
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return ""
	}
	return ref
}

// CellPosition is the inverse of CellRef. "$" anchors are ignored.
func CellPosition(ref string) (row, col int, err error) {
	c, r, err := excelize.CellNameToCoordinates(strings.ReplaceAll(ref, "$", ""))
	if err != nil {
		return 0, 0, &FormatError{Input: ref, Err: err}
	}
	return r - 1, c - 1, nil
}

// OffsetRef translates ref by the given offsets.
func OffsetRef(ref string, rowOffset, colOffset int) (string, error) {
	row, col, err := CellPosition(ref)
	if err != nil {
		return "", err
	}
	out := CellRef(row+rowOffset, col+colOffset)
	if out == "" {
		return "", &FormatError{Input: ref, Err: fmt.Errorf("offset (%d,%d) leaves the sheet", rowOffset, colOffset)}
	}
	return out, nil
}

// ParseRange parses "A1:B3" (or a single "A1") into zero-based inclusive bounds.
func ParseRange(ref string) (startRow, startCol, endRow, endCol int, err error) {
	parts := strings.Split(ref, ":")
	if len(parts) == 0 || len(parts) > 2 || parts[0] == "" {
		return 0, 0, 0, 0, &FormatError{Input: ref, Err: fmt.Errorf("invalid range")}
	}
	startRow, startCol, err = CellPosition(parts[0])
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if len(parts) == 1 {
		return startRow, startCol, startRow, startCol, nil
	}
	endRow, endCol, err = CellPosition(parts[1])
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return startRow, startCol, endRow, endCol, nil
}

// RangeRef formats zero-based inclusive bounds as "A1:B3".
func RangeRef(startRow, startCol, endRow, endCol int) string {
	return CellRef(startRow, startCol) + ":" + CellRef(endRow, endCol)
}

// OffsetFormula rewrites every relative cell reference in formula by the
// given offsets. It is a single left-to-right scan, not a formula parser:
// text inside string literals, identifiers that merely end in letters+digits
// (LOG10) and function names are left alone, "$"-anchored parts stay put and
// references that would leave the sheet are kept verbatim.
func OffsetFormula(formula string, rowOffset, colOffset int) string {
	if rowOffset == 0 && colOffset == 0 {
		return formula
	}
	var out strings.Builder
	out.Grow(len(formula))

	inString := false
	for i := 0; i < len(formula); {
		ch := formula[i]
		if ch == '"' {
			inString = !inString
			out.WriteByte(ch)
			i++
			continue
		}
		if inString {
			out.WriteByte(ch)
			i++
			continue
		}
		if ch == '$' || isUpper(ch) {
			if i == 0 || !isIdentChar(formula[i-1]) {
				if tok, n, ok := scanRefToken(formula[i:]); ok {
					out.WriteString(relocateToken(tok, rowOffset, colOffset))
					i += n
					continue
				}
			}
		}
		out.WriteByte(ch)
		i++
	}
	return out.String()
}

// refToken is one matched reference, e.g. "$A12" -> {colAbs, "A", false, "12"}.
type refToken struct {
	raw    string
	colAbs bool
	col    string
	rowAbs bool
	row    string
}

// scanRefToken matches \$?[A-Z]{1,2}\$?[0-9]+ at the start of s, followed by
// neither an identifier character nor "(".
func scanRefToken(s string) (refToken, int, bool) {
	var tok refToken
	i := 0
	if i < len(s) && s[i] == '$' {
		tok.colAbs = true
		i++
	}
	start := i
	for i < len(s) && isUpper(s[i]) && i-start < 2 {
		i++
	}
	if i == start {
		return tok, 0, false
	}
	tok.col = s[start:i]
	if i < len(s) && s[i] == '$' {
		tok.rowAbs = true
		i++
	}
	digits := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == digits {
		return tok, 0, false
	}
	tok.row = s[digits:i]
	if i < len(s) && (isIdentChar(s[i]) || s[i] == '(') {
		return tok, 0, false
	}
	tok.raw = s[:i]
	return tok, i, true
}

func relocateToken(tok refToken, rowOffset, colOffset int) string {
	colNum, err := excelize.ColumnNameToNumber(tok.col)
	if err != nil {
		return tok.raw
	}
	rowNum, err := strconv.Atoi(tok.row)
	if err != nil || rowNum < 1 {
		return tok.raw
	}
	if !tok.colAbs {
		colNum += colOffset
	}
	if !tok.rowAbs {
		rowNum += rowOffset
	}
	if colNum < 1 || rowNum < 1 || rowNum > excelize.TotalRows {
		return tok.raw
	}
	colName, err := excelize.ColumnNumberToName(colNum)
	if err != nil {
		return tok.raw
	}

	var b strings.Builder
	if tok.colAbs {
		b.WriteByte('$')
	}
	b.WriteString(colName)
	if tok.rowAbs {
		b.WriteByte('$')
	}
	b.WriteString(strconv.Itoa(rowNum))
	return b.String()
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool {
	return isUpper(c) || isDigit(c) || (c >= 'a' && c <= 'z') || c == '_' || c == '.'
}
