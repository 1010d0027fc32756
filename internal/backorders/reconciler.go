package backorders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/internal/inventory"
	"github.com/commercive/commerce-sync/pkg/db/models"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/logger"
	"github.com/commercive/commerce-sync/pkg/metrics"
	"github.com/commercive/commerce-sync/pkg/types"
)

var (
	// ErrInventoryNotFound means no inventory record matches the line's variant.
	ErrInventoryNotFound = errors.New("inventory record not found for variant")
	// ErrNoQuantitySnapshot means the inventory record reports no available quantity.
	ErrNoQuantitySnapshot = errors.New("inventory record has no available quantity")
)

// Decision results, also used as metric labels.
const (
	ResultIncremented      = "incremented"
	ResultSufficient       = "sufficient"
	ResultAlreadyApplied   = "already_applied"
	ResultMissingInventory = "missing_inventory"
	ResultNoSnapshot       = "no_snapshot"
	ResultLockBusy         = "lock_busy"
	ResultFailed           = "failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lockKeyer interface {
	lockStore
	LockKey(scope string, ids ...string) string
}

// Outcome counts the per line decisions of one reconciliation pass.
type Outcome struct {
	Incremented    int
	Sufficient     int
	AlreadyApplied int
	Skipped        int
	Failed         int
	LockBusy       bool
}

// ReconcilerParams wires the reconciler dependencies.
type ReconcilerParams struct {
	DB        txRunner
	Inventory inventory.Repository
	Ledger    Ledger
	Locks     lockKeyer
	LockTTL   time.Duration
	Logger    *logger.Logger
	Metrics   *metrics.SyncMetrics
}

// Reconciler keeps the per inventory backorder counter in step with orders.
// Each (order, line item) pair is counted at most once: a Redis lock keyed
// by order serializes concurrent deliveries and the ledger row, written in
// the same transaction as the increment, absorbs redeliveries.
type Reconciler struct {
	db        txRunner
	inventory inventory.Repository
	ledger    Ledger
	locks     lockKeyer
	lockTTL   time.Duration
	logg      *logger.Logger
	metrics   *metrics.SyncMetrics
	now       func() time.Time
}

// NewReconciler validates the dependencies and builds a Reconciler.
func NewReconciler(p ReconcilerParams) (*Reconciler, error) {
	switch {
	case p.DB == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backorder reconciler requires a database")
	case p.Inventory == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backorder reconciler requires the inventory repository")
	case p.Ledger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backorder reconciler requires the ledger")
	case p.Locks == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backorder reconciler requires a lock store")
	case p.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backorder reconciler requires a logger")
	}
	return &Reconciler{
		db:        p.DB,
		inventory: p.Inventory,
		ledger:    p.Ledger,
		locks:     p.Locks,
		lockTTL:   p.LockTTL,
		logg:      p.Logger,
		metrics:   p.Metrics,
		now:       time.Now,
	}, nil
}

// Reconcile evaluates every line of an order against current inventory.
// Missing inventory data is logged and skipped; persistence failures are
// returned together after the remaining lines have been tried.
func (r *Reconciler) Reconcile(ctx context.Context, storeID uuid.UUID, orderID int64, lines []types.LineItemSnapshot) (Outcome, error) {
	var out Outcome
	if len(lines) == 0 {
		return out, nil
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"store_id": storeID.String(),
		"order_id": orderID,
	})

	key := r.locks.LockKey("backorder", storeID.String(), strconv.FormatInt(orderID, 10))
	lock, err := newOrderLock(r.locks, key, r.lockTTL)
	if err != nil {
		return out, err
	}
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return out, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire backorder lock")
	}
	if !acquired {
		out.LockBusy = true
		r.metrics.IncBackorder(ResultLockBusy)
		r.logg.Info(ctx, "backorder reconciliation already running for order")
		return out, nil
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "failed to release backorder lock")
		}
	}()

	var errs error
	for _, line := range lines {
		result, err := r.reconcileLine(ctx, storeID, orderID, line)
		r.metrics.IncBackorder(result)
		switch result {
		case ResultIncremented:
			out.Incremented++
		case ResultSufficient:
			out.Sufficient++
		case ResultAlreadyApplied:
			out.AlreadyApplied++
		case ResultMissingInventory, ResultNoSnapshot:
			out.Skipped++
			r.metrics.IncFailure(metrics.FailureReconciliationData)
			r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
				"line_item_id":  line.LineItemID,
				"variant_id":    line.VariantID,
				"failure_class": metrics.FailureReconciliationData,
				"error":         err.Error(),
			}), "skipping backorder check for line item")
		case ResultFailed:
			out.Failed++
			r.metrics.IncFailure(metrics.FailurePersistence)
			lineErr := fmt.Errorf("line item %d: %w", line.LineItemID, err)
			r.logg.Error(r.logg.WithField(ctx, "failure_class", metrics.FailurePersistence), "backorder update failed", lineErr)
			errs = multierr.Append(errs, lineErr)
		}
	}
	return out, errs
}

func (r *Reconciler) reconcileLine(ctx context.Context, storeID uuid.UUID, orderID int64, line types.LineItemSnapshot) (string, error) {
	if line.VariantID <= 0 {
		return ResultMissingInventory, ErrInventoryNotFound
	}
	record, err := r.inventory.FindByVariant(ctx, storeID, line.VariantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ResultMissingInventory, ErrInventoryNotFound
		}
		return ResultFailed, fmt.Errorf("load inventory: %w", err)
	}
	available, ok := record.Levels.Available()
	if !ok {
		return ResultNoSnapshot, ErrNoQuantitySnapshot
	}

	short := available < 1
	app := &models.BackorderApplication{
		StoreID:         storeID,
		OrderID:         orderID,
		LineItemID:      line.LineItemID,
		InventoryItemID: record.InventoryItemID,
		Available:       available,
		Incremented:     short,
		AppliedAt:       r.now().UTC(),
	}

	result := ResultSufficient
	err = r.db.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, err := r.ledger.WithTx(tx).Claim(ctx, app)
		if err != nil {
			return fmt.Errorf("record application: %w", err)
		}
		if !claimed {
			result = ResultAlreadyApplied
			return nil
		}
		if !short {
			return nil
		}
		if err := r.inventory.WithTx(tx).IncrementBackorders(ctx, record.ID); err != nil {
			return fmt.Errorf("increment backorders: %w", err)
		}
		result = ResultIncremented
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ResultMissingInventory, ErrInventoryNotFound
	}
	if err != nil {
		return ResultFailed, err
	}
	return result, nil
}
