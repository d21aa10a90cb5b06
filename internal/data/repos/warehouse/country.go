package warehouse

import (
	"gorm.io/gorm"

	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type CountryRepo interface {
	InsertSkipExisting(dbc dbctx.Context, names []string, batchSize int) (int64, error)
	IDsByName(dbc dbctx.Context) (map[string]uint, error)
	Count(dbc dbctx.Context) (int64, error)
}

type countryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCountryRepo(db *gorm.DB, baseLog *logger.Logger) CountryRepo {
	return &countryRepo{db: db, log: baseLog.With("repo", "CountryRepo")}
}

func (r *countryRepo) InsertSkipExisting(dbc dbctx.Context, names []string, batchSize int) (int64, error) {
	rows := make([]*types.Country, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		rows = append(rows, &types.Country{CountryName: n})
	}
	return insertSkipExisting(dbc.DB(r.db), rows, len(rows), []string{"country_name"}, batchSize)
}

func (r *countryRepo) IDsByName(dbc dbctx.Context) (map[string]uint, error) {
	var rows []*types.Country
	if err := dbc.DB(r.db).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]uint, len(rows))
	for _, c := range rows {
		out[c.CountryName] = c.CountryID
	}
	return out, nil
}

func (r *countryRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Country{}).Count(&n).Error
	return n, err
}
