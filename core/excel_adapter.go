package core

import "github.com/xuri/excelize/v2"

// ExcelFile abstracts workbook operations to decouple the extraction engine
// from excelize.
type ExcelFile interface {
	Close() error
	GetSheetList() []string
	GetSheetIndex(name string) (int, error)
	NewSheet(name string) (int, error)
	DeleteSheet(name string) error
	GetRows(sheet string) ([][]string, error)
	GetCellValue(sheet, cell string) (string, error)
	GetMergeCells(sheet string) ([]excelize.MergeCell, error)
	SetCellValue(sheet, cell string, value interface{}) error
	SetColWidth(sheet, startCol, endCol string, width float64) error
	SaveAs(name string) error
}

type ExcelizeFile struct {
	file *excelize.File
}

// OpenExcelFile opens an existing workbook. Formula cells read back their
// cached values, matching how the export tool last evaluated them.
func OpenExcelFile(path string) (ExcelFile, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &ExcelizeFile{file: file}, nil
}

// NewExcelFile creates an empty workbook (with the default Sheet1).
func NewExcelFile() ExcelFile {
	return &ExcelizeFile{file: excelize.NewFile()}
}

func (e *ExcelizeFile) Close() error {
	return e.file.Close()
}

func (e *ExcelizeFile) GetSheetList() []string {
	return e.file.GetSheetList()
}

func (e *ExcelizeFile) GetSheetIndex(name string) (int, error) {
	return e.file.GetSheetIndex(name)
}

func (e *ExcelizeFile) NewSheet(name string) (int, error) {
	return e.file.NewSheet(name)
}

func (e *ExcelizeFile) DeleteSheet(name string) error {
	return e.file.DeleteSheet(name)
}

func (e *ExcelizeFile) GetRows(sheet string) ([][]string, error) {
	return e.file.GetRows(sheet)
}

func (e *ExcelizeFile) GetCellValue(sheet, cell string) (string, error) {
	return e.file.GetCellValue(sheet, cell)
}

func (e *ExcelizeFile) GetMergeCells(sheet string) ([]excelize.MergeCell, error) {
	return e.file.GetMergeCells(sheet)
}

func (e *ExcelizeFile) SetCellValue(sheet, cell string, value interface{}) error {
	return e.file.SetCellValue(sheet, cell, value)
}

func (e *ExcelizeFile) SetColWidth(sheet, startCol, endCol string, width float64) error {
	return e.file.SetColWidth(sheet, startCol, endCol, width)
}

func (e *ExcelizeFile) SaveAs(name string) error {
	return e.file.SaveAs(name)
}
