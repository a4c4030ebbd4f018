package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

func readCSVFile(path string) (grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return grid{}, err
	}
	defer f.Close()
	return readCSV(f)
}

func readCSV(r io.Reader) (grid, error) {
	cr := csv.NewReader(r)
	// Spreadsheet exports often drop trailing empty cells.
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return grid{}, err
	}
	if len(records) == 0 {
		return grid{}, fmt.Errorf("csv has no header row")
	}
	return grid{header: records[0], rows: records[1:]}, nil
}
