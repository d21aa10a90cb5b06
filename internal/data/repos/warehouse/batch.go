package warehouse

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultBatchSize = 500

// insertSkipExisting writes rows with ON CONFLICT DO NOTHING on the given key
// columns and returns how many rows were actually inserted. Existing rows are
// never touched.
func insertSkipExisting(t *gorm.DB, rows any, n int, conflictCols []string, batchSize int) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	cols := make([]clause.Column, 0, len(conflictCols))
	for _, c := range conflictCols {
		cols = append(cols, clause.Column{Name: c})
	}
	res := t.
		Clauses(clause.OnConflict{Columns: cols, DoNothing: true}).
		Omit(clause.Associations).
		CreateInBatches(rows, batchSize)
	return res.RowsAffected, res.Error
}

func chunkStrings(in []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(in); start += size {
		end := start + size
		if end > len(in) {
			end = len(in)
		}
		out = append(out, in[start:end])
	}
	return out
}
