package steps

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/data/repos"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

const (
	DefaultMaxAttempts = 3
	retryBaseDelay     = 200 * time.Millisecond
)

// isTransient reports whether err is a connectivity or contention failure
// that is safe to retry as a whole transaction.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
		if len(pgErr.Code) >= 2 {
			switch pgErr.Code[:2] {
			case "08", "53", "57": // connection, insufficient resources, operator intervention
				return true
			}
		}
		return false
	}
	return pgconn.Timeout(err) || pgconn.SafeToRetry(err)
}

// inTx runs fn in one transaction, retrying the whole transaction on
// transient errors. Writes inside fn must be idempotent.
func inTx(ctx context.Context, db *gorm.DB, log *logger.Logger, op string, attempts int, fn func(dbc dbctx.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
		if err == nil || !isTransient(err) || attempt == attempts {
			return err
		}
		delay := retryBaseDelay * time.Duration(1<<(attempt-1))
		if log != nil {
			log.Warn("transient database error, retrying", "op", op, "attempt", attempt, "delay", delay.String(), "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func ptr[T any](v T) *T { return &v }

// saveSnapshot stores the next version of a model under key and makes it the
// active one. encode receives the assigned version so the stored params can
// carry it.
func saveSnapshot(dbc dbctx.Context, models repos.ModelSnapshotRepo, key string, runID *uuid.UUID, encode func(version int) (params, metrics any)) (*types.ModelSnapshot, error) {
	latest, err := models.GetLatestByKey(dbc, key)
	if err != nil {
		return nil, err
	}
	version := 1
	if latest != nil {
		version = latest.Version + 1
	}
	params, metrics := encode(version)
	pj, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode %s params: %w", key, err)
	}
	mj, err := json.Marshal(metrics)
	if err != nil {
		return nil, fmt.Errorf("encode %s metrics: %w", key, err)
	}
	row := &types.ModelSnapshot{
		ID:          uuid.New(),
		ModelKey:    key,
		Version:     version,
		RunID:       runID,
		ParamsJSON:  datatypes.JSON(pj),
		MetricsJSON: datatypes.JSON(mj),
	}
	if err := models.Create(dbc, row); err != nil {
		return nil, err
	}
	if err := models.SetActiveByID(dbc, row.ID); err != nil {
		return nil, err
	}
	row.Active = true
	return row, nil
}
