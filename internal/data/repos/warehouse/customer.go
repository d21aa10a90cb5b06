package warehouse

import (
	"sort"

	"gorm.io/gorm"

	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type CustomerRepo interface {
	InsertSkipExisting(dbc dbctx.Context, rows []*types.Customer, batchSize int) (int64, error)
	ExistingIDs(dbc dbctx.Context) (map[string]struct{}, error)
	GetByIDs(dbc dbctx.Context, ids []string) ([]*types.Customer, error)
	UpdateSegments(dbc dbctx.Context, segmentByCustomer map[string]string) (int64, error)
	Count(dbc dbctx.Context) (int64, error)
}

type customerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCustomerRepo(db *gorm.DB, baseLog *logger.Logger) CustomerRepo {
	return &customerRepo{db: db, log: baseLog.With("repo", "CustomerRepo")}
}

func (r *customerRepo) InsertSkipExisting(dbc dbctx.Context, rows []*types.Customer, batchSize int) (int64, error) {
	return insertSkipExisting(dbc.DB(r.db), rows, len(rows), []string{"customer_id"}, batchSize)
}

func (r *customerRepo) ExistingIDs(dbc dbctx.Context) (map[string]struct{}, error) {
	var ids []string
	if err := dbc.DB(r.db).Model(&types.Customer{}).Pluck("customer_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *customerRepo) GetByIDs(dbc dbctx.Context, ids []string) ([]*types.Customer, error) {
	var out []*types.Customer
	if len(ids) == 0 {
		return out, nil
	}
	for _, chunk := range chunkStrings(ids, DefaultBatchSize) {
		var part []*types.Customer
		if err := dbc.DB(r.db).Where("customer_id IN ?", chunk).Order("customer_id ASC").Find(&part).Error; err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

// UpdateSegments issues one UPDATE per segment and id chunk rather than one per customer.
func (r *customerRepo) UpdateSegments(dbc dbctx.Context, segmentByCustomer map[string]string) (int64, error) {
	bySegment := map[string][]string{}
	for id, seg := range segmentByCustomer {
		bySegment[seg] = append(bySegment[seg], id)
	}
	segments := make([]string, 0, len(bySegment))
	for seg := range bySegment {
		segments = append(segments, seg)
	}
	sort.Strings(segments)

	var updated int64
	t := dbc.DB(r.db)
	for _, seg := range segments {
		ids := bySegment[seg]
		sort.Strings(ids)
		for _, chunk := range chunkStrings(ids, DefaultBatchSize) {
			res := t.Model(&types.Customer{}).Where("customer_id IN ?", chunk).Update("segment", seg)
			if res.Error != nil {
				return updated, res.Error
			}
			updated += res.RowsAffected
		}
	}
	return updated, nil
}

func (r *customerRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Customer{}).Count(&n).Error
	return n, err
}
