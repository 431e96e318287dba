package core

import (
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelFile abstracts workbook operations to decouple the block engine from excelize.
type ExcelFile interface {
	Close() error
	GetSheetList() []string
	GetSheetName(index int) string
	GetSheetIndex(name string) (int, error)
	GetCellValue(sheet, cell string, opts ...excelize.Options) (string, error)
	GetCellType(sheet, cell string) (excelize.CellType, error)
	GetCellFormula(sheet, cell string) (string, error)
	SetCellFormula(sheet, cell, formula string) error
	GetCellStyle(sheet, cell string) (int, error)
	SetCellStyle(sheet, hcell, vcell string, styleID int) error
	GetStyle(styleID int) (*excelize.Style, error)
	SetCellValue(sheet, cell string, value interface{}) error
	GetMergeCells(sheet string) ([]excelize.MergeCell, error)
	MergeCell(sheet, hcell, vcell string) error
	GetColWidth(sheet, col string) (float64, error)
	SetColWidth(sheet, startCol, endCol string, width float64) error
	GetRowHeight(sheet string, row int) (float64, error)
	SetRowHeight(sheet string, row int, height float64) error
	InsertRows(sheet string, row, rows int) error
	InsertCols(sheet, col string, columns int) error
	SetActiveSheet(index int)
	SetSelection(sheetName, cell string) error
	Write(w io.Writer) error
	SaveAs(name string) error
}

type ExcelizeFile struct {
	file *excelize.File
}

// NewExcelFile wraps an already opened excelize workbook.
func NewExcelFile(f *excelize.File) *ExcelizeFile {
	return &ExcelizeFile{file: f}
}

// OpenExcelFile opens a workbook from disk.
func OpenExcelFile(path string) (ExcelFile, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &ExcelizeFile{file: file}, nil
}

// OpenExcelReader opens a workbook from a stream.
func OpenExcelReader(r io.Reader) (ExcelFile, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	return &ExcelizeFile{file: file}, nil
}

func (e *ExcelizeFile) Close() error {
	return e.file.Close()
}

func (e *ExcelizeFile) GetSheetList() []string {
	return e.file.GetSheetList()
}

func (e *ExcelizeFile) GetSheetName(index int) string {
	return e.file.GetSheetName(index)
}

func (e *ExcelizeFile) GetSheetIndex(name string) (int, error) {
	return e.file.GetSheetIndex(name)
}

func (e *ExcelizeFile) GetCellValue(sheet, cell string, opts ...excelize.Options) (string, error) {
	return e.file.GetCellValue(sheet, cell, opts...)
}

func (e *ExcelizeFile) GetCellType(sheet, cell string) (excelize.CellType, error) {
	return e.file.GetCellType(sheet, cell)
}

func (e *ExcelizeFile) GetCellFormula(sheet, cell string) (string, error) {
	return e.file.GetCellFormula(sheet, cell)
}

func (e *ExcelizeFile) SetCellFormula(sheet, cell, formula string) error {
	return e.file.SetCellFormula(sheet, cell, formula)
}

func (e *ExcelizeFile) GetCellStyle(sheet, cell string) (int, error) {
	return e.file.GetCellStyle(sheet, cell)
}

func (e *ExcelizeFile) SetCellStyle(sheet, hcell, vcell string, styleID int) error {
	return e.file.SetCellStyle(sheet, hcell, vcell, styleID)
}

func (e *ExcelizeFile) GetStyle(styleID int) (*excelize.Style, error) {
	return e.file.GetStyle(styleID)
}

func (e *ExcelizeFile) SetCellValue(sheet, cell string, value interface{}) error {
	return e.file.SetCellValue(sheet, cell, value)
}

func (e *ExcelizeFile) GetMergeCells(sheet string) ([]excelize.MergeCell, error) {
	return e.file.GetMergeCells(sheet)
}

func (e *ExcelizeFile) MergeCell(sheet, hcell, vcell string) error {
	return e.file.MergeCell(sheet, hcell, vcell)
}

func (e *ExcelizeFile) GetColWidth(sheet, col string) (float64, error) {
	return e.file.GetColWidth(sheet, col)
}

func (e *ExcelizeFile) SetColWidth(sheet, startCol, endCol string, width float64) error {
	return e.file.SetColWidth(sheet, startCol, endCol, width)
}

func (e *ExcelizeFile) GetRowHeight(sheet string, row int) (float64, error) {
	return e.file.GetRowHeight(sheet, row)
}

func (e *ExcelizeFile) SetRowHeight(sheet string, row int, height float64) error {
	return e.file.SetRowHeight(sheet, row, height)
}

func (e *ExcelizeFile) InsertRows(sheet string, row, rows int) error {
	return e.file.InsertRows(sheet, row, rows)
}

func (e *ExcelizeFile) InsertCols(sheet, col string, columns int) error {
	return e.file.InsertCols(sheet, col, columns)
}

func (e *ExcelizeFile) SetActiveSheet(index int) {
	e.file.SetActiveSheet(index)
}

func (e *ExcelizeFile) SetSelection(sheetName, cell string) error {
	// Keep existing panes (freeze/split) and only move the selection.
	panes, err := e.file.GetPanes(sheetName)
	if err == nil {
		panes.Selection = []excelize.Selection{
			{
				ActiveCell: cell,
				SQRef:      cell,
			},
		}
		return e.file.SetPanes(sheetName, &panes)
	}

	return e.file.SetPanes(sheetName, &excelize.Panes{
		Freeze: false,
		Split:  false,
		Selection: []excelize.Selection{
			{
				ActiveCell: cell,
				SQRef:      cell,
			},
		},
	})
}

func (e *ExcelizeFile) Write(w io.Writer) error {
	return e.file.Write(w)
}

func (e *ExcelizeFile) SaveAs(name string) error {
	return e.file.SaveAs(name)
}
