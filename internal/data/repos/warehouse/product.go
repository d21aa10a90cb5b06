package warehouse

import (
	"gorm.io/gorm"

	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type ProductRepo interface {
	InsertSkipExisting(dbc dbctx.Context, rows []*types.Product, batchSize int) (int64, error)
	ExistingIDs(dbc dbctx.Context) (map[string]struct{}, error)
	GetByID(dbc dbctx.Context, id string) (*types.Product, error)
	Count(dbc dbctx.Context) (int64, error)
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (r *productRepo) InsertSkipExisting(dbc dbctx.Context, rows []*types.Product, batchSize int) (int64, error) {
	return insertSkipExisting(dbc.DB(r.db), rows, len(rows), []string{"product_id"}, batchSize)
}

func (r *productRepo) ExistingIDs(dbc dbctx.Context) (map[string]struct{}, error) {
	var ids []string
	if err := dbc.DB(r.db).Model(&types.Product{}).Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *productRepo) GetByID(dbc dbctx.Context, id string) (*types.Product, error) {
	row := &types.Product{}
	if err := dbc.DB(r.db).Where("product_id = ?", id).First(row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

func (r *productRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Product{}).Count(&n).Error
	return n, err
}
