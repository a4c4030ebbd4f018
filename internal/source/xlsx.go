package source

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

func readXLSXFile(path, sheet string) (grid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return grid{}, err
	}
	defer f.Close()
	return readWorkbook(f, sheet)
}

func readXLSX(r io.Reader, sheet string) (grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return grid{}, err
	}
	defer f.Close()
	return readWorkbook(f, sheet)
}

// readWorkbook reads one sheet; the first row is the header. Number formats
// are not applied, so a count shown as 5.0 still reads as 5.
func readWorkbook(f *excelize.File, sheet string) (grid, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return grid{}, fmt.Errorf("no sheets found in workbook")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return grid{}, err
	}
	if len(rows) == 0 {
		return grid{}, fmt.Errorf("sheet %q has no header row", sheet)
	}
	return grid{header: rows[0], rows: rows[1:]}, nil
}
