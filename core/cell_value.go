package core

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// builtInDateFormats are the numFmt ids Excel reserves for dates and times.
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// RawValue reads the evaluated value of a cell: bool, time.Time (numbers
// carrying a date format), float64, or string. Blank and error cells give nil.
func RawValue(f ExcelFile, sheet, ref string) (any, error) {
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return nil, err
	}
	raw, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	switch typ {
	case excelize.CellTypeError:
		return nil, nil
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, nil
		}
		return raw, nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return raw, nil
	}

	// Number or untyped: numbers without an explicit type attribute land here.
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, nil
	}
	if isDateCell(f, sheet, ref) {
		if t, err := excelize.ExcelDateToTime(n, false); err == nil {
			return t, nil
		}
	}
	return n, nil
}

// IsBlank reports whether the cell holds no value.
func IsBlank(f ExcelFile, sheet, ref string) bool {
	v, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	return err != nil || strings.TrimSpace(v) == ""
}

func isDateCell(f ExcelFile, sheet, ref string) bool {
	styleID, err := f.GetCellStyle(sheet, ref)
	if err != nil || styleID == 0 {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if builtInDateFormats[style.NumFmt] {
		return true
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	return false
}

// isDateFormatCode reports whether a custom number format renders a date or
// time. Quoted literals, escapes and bracketed sections other than elapsed
// time ([h], [mm], [ss]) are skipped.
func isDateFormatCode(code string) bool {
	if strings.EqualFold(code, "general") {
		return false
	}
	// only the first section (positive numbers) matters
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	inQuote := false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '\\' || c == '_' || c == '*':
			i++
		case c == '[':
			end := strings.IndexByte(code[i:], ']')
			if end < 0 {
				return false
			}
			inner := strings.ToLower(code[i+1 : i+end])
			if inner != "" && strings.Trim(inner, "hms") == "" {
				return true
			}
			i += end
		default:
			switch c | 0x20 {
			case 'y', 'd', 'h', 's', 'm':
				return true
			}
		}
	}
	return false
}

// DetectPropertyType decides the conversion target for cell: an explicit,
// known cell.Type wins, otherwise the type found by walking cell.DataName on
// target. Unknown types resolve to the empty interface.
func DetectPropertyType(target any, cell *Cell, convertors *ConvertorRegistry) reflect.Type {
	if cell.Type != "" && convertors != nil {
		if t, ok := convertors.TypeFor(cell.Type); ok {
			return t
		}
	}
	if t := PropertyType(target, cell.DataName); t != nil {
		return t
	}
	return anyType
}
