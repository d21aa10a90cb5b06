package warehouse

import (
	"gorm.io/gorm"

	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/domain/warehouse"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type CalendarRepo interface {
	InsertSkipExisting(dbc dbctx.Context, rows []*types.CalendarDay, batchSize int) (int64, error)
	IDsByDay(dbc dbctx.Context) (map[string]uint, error)
	Count(dbc dbctx.Context) (int64, error)
}

type calendarRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCalendarRepo(db *gorm.DB, baseLog *logger.Logger) CalendarRepo {
	return &calendarRepo{db: db, log: baseLog.With("repo", "CalendarRepo")}
}

func (r *calendarRepo) InsertSkipExisting(dbc dbctx.Context, rows []*types.CalendarDay, batchSize int) (int64, error) {
	return insertSkipExisting(dbc.DB(r.db), rows, len(rows), []string{"full_date"}, batchSize)
}

// IDsByDay keys date ids by "YYYY-MM-DD".
func (r *calendarRepo) IDsByDay(dbc dbctx.Context) (map[string]uint, error) {
	var rows []*types.CalendarDay
	if err := dbc.DB(r.db).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]uint, len(rows))
	for _, d := range rows {
		out[warehouse.DayKey(d.FullDate)] = d.DateID
	}
	return out, nil
}

func (r *calendarRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.CalendarDay{}).Count(&n).Error
	return n, err
}
