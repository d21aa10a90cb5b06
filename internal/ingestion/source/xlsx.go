package source

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

// ReadXLSX decodes the first worksheet of a workbook. Cells are read raw so
// date cells arrive as serial numbers regardless of display format.
func ReadXLSX(path string) ([]RawRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", apperr.ErrInvalidArgument)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty input", apperr.ErrInvalidArgument)
	}
	idx, err := resolveHeader(rows[0])
	if err != nil {
		return nil, err
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	pos := 1
	next := func() ([]string, error) {
		if pos >= len(rows) {
			return nil, io.EOF
		}
		row := rows[pos]
		pos++
		return row, nil
	}
	return decodeRows(idx, next, 2, spreadsheetDate(date1904))
}

func spreadsheetDate(date1904 bool) dateParser {
	return func(raw string) (time.Time, error) {
		s := strings.TrimSpace(raw)
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, date1904)
			if err != nil {
				return time.Time{}, fmt.Errorf("%w: invoice date %q", apperr.ErrInvalidArgument, raw)
			}
			return t.UTC().Round(time.Second), nil
		}
		return parseTextDate(s)
	}
}
