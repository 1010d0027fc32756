package backorders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/commercive/commerce-sync/internal/repo"
	"github.com/commercive/commerce-sync/pkg/db/models"
)

// Ledger records which (order, line item) pairs have been evaluated.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	Claim(ctx context.Context, app *models.BackorderApplication) (bool, error)
	ListForOrder(ctx context.Context, storeID uuid.UUID, orderID int64) ([]models.BackorderApplication, error)
}

type ledger struct {
	base repo.Base
}

// NewLedger builds the application ledger bound to the provided DB.
func NewLedger(db *gorm.DB) Ledger {
	return &ledger{base: repo.NewBase(db)}
}

func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return l
	}
	return &ledger{base: l.base.WithTx(tx)}
}

// Claim inserts the application row. It reports false when the pair was
// already recorded.
func (l *ledger) Claim(ctx context.Context, app *models.BackorderApplication) (bool, error) {
	res := l.base.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(app)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (l *ledger) ListForOrder(ctx context.Context, storeID uuid.UUID, orderID int64) ([]models.BackorderApplication, error) {
	var apps []models.BackorderApplication
	if err := l.base.DB(ctx).
		Where("store_id = ? AND order_id = ?", storeID, orderID).
		Order("line_item_id ASC").
		Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}
