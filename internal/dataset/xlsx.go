package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx")
}

// Load reads one sheet. Row 1 is the header; short rows are padded.
func (xlsxLoader) Load(path string, opt LoadOptions) (dataframe.DataFrame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return dataframe.DataFrame{}, ErrEmptyInput
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		sheet = ""
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return dataframe.DataFrame{}, fmt.Errorf("load xlsx: sheet %q not found in %s (available: %s)",
				opt.Sheet, filepath.Base(path), strings.Join(sheets, ", "))
		}
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load xlsx: %w", err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("load xlsx: %w", err)
		}
		if len(records) == 0 && isBlank(cols) {
			continue
		}
		records = append(records, cols)
	}
	if err := rows.Error(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load xlsx: %w", err)
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, ErrEmptyInput
	}
	width := len(records[0])
	for _, r := range records[1:] {
		if len(r) > width {
			width = len(r)
		}
	}
	for i, r := range records {
		for len(r) < width {
			r = append(r, "")
		}
		records[i] = r
	}
	if len(records) == 1 {
		return emptyFrame(records[0]), nil
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(MissingMarkers),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load xlsx: %w", df.Err)
	}
	return df, nil
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
