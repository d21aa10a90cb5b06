package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

// ReadFile dispatches on the file extension.
func ReadFile(path string) ([]RawRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		return ReadXLSX(path)
	default:
		return nil, fmt.Errorf("%w: unsupported input %q (want .csv or .xlsx)", apperr.ErrInvalidArgument, path)
	}
}
