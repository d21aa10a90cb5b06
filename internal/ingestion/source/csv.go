package source

import (
	"encoding/csv"
	"fmt"
	"io"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

// ReadCSV decodes a comma-separated export with a header row.
func ReadCSV(r io.Reader) ([]RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", apperr.ErrInvalidArgument)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := resolveHeader(header)
	if err != nil {
		return nil, err
	}
	return decodeRows(idx, cr.Read, 2, parseTextDate)
}
