package orderrepo

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository stores orders through the transaction it was created
// with. Writes are tracked so the unit of work can put the raised events
// into the outbox when it commits.
type GormOrderRepository struct {
	db      *gorm.DB
	tracker aggregateTracker
}

type aggregateTracker interface {
	TrackAggregate(aggregate *order.Order)
}

func NewGormOrderRepository(db *gorm.DB, tracker aggregateTracker) *GormOrderRepository {
	return &GormOrderRepository{
		db:      db,
		tracker: tracker,
	}
}

func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto, err := fromDomain(aggregate)
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if err = db.Omit(clause.Associations).Create(&dto).Error; err != nil {
		return err
	}
	if err = saveChildren(db, dto); err != nil {
		return err
	}

	r.tracker.TrackAggregate(aggregate)
	return nil
}

// Update writes the whole aggregate if the stored version still equals the
// version it was loaded with, and bumps the version on success.
func (r *GormOrderRepository) Update(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto, err := fromDomain(aggregate)
	if err != nil {
		return err
	}
	dto.Version = aggregate.Version() + 1

	db := r.db.WithContext(ctx)
	result := db.Model(&OrderDTO{}).
		Where("id = ? AND version = ? AND quarantined_at IS NULL", dto.ID, aggregate.Version()).
		Select("*").
		Omit("id", "quarantined_at", "quarantine_reason", clause.Associations).
		Updates(&dto)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.explainMissedUpdate(ctx, aggregate)
	}

	if err = saveChildren(db, dto); err != nil {
		return err
	}

	aggregate.IncrementVersion()
	r.tracker.TrackAggregate(aggregate)
	return nil
}

func (r *GormOrderRepository) explainMissedUpdate(ctx context.Context, aggregate *order.Order) error {
	var current OrderDTO
	err := r.db.WithContext(ctx).Select("version", "quarantined_at").
		First(&current, "id = ?", aggregate.ID().Bytes()).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(aggregate.ID())
	case err != nil:
		return err
	case current.QuarantinedAt != nil:
		return quarantined(aggregate.ID())
	default:
		return errs.Workflowf(errs.CodeConcurrencyConflict,
			"order %s is at version %d, update was based on %d", aggregate.ID(), current.Version, aggregate.Version())
	}
}

// Get loads the aggregate with all child rows. A quarantined order, a row
// that cannot be restored and an aggregate failing its integrity check are
// all reported as CORRUPT_AGGREGATE.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	err := r.db.WithContext(ctx).
		Preload("Requirements", byPosition).
		Preload("Deliveries", byPosition).
		Preload("Negotiations", byPosition).
		Preload("Audit", byPosition).
		First(&dto, "id = ?", id.Bytes()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	if dto.QuarantinedAt != nil {
		return nil, quarantined(id)
	}

	o, err := toDomain(dto)
	if err != nil {
		return nil, errs.NewWorkflowErrorWithCause(errs.CodeCorruptAggregate, "stored order cannot be restored", err)
	}
	if err = o.CheckIntegrity(); err != nil {
		return nil, err
	}
	return o, nil
}

// GetDueForAutoApproval lists DELIVERED orders whose pending delivery passed
// its auto-approval time, oldest deadline first.
func (r *GormOrderRepository) GetDueForAutoApproval(ctx context.Context, now time.Time, limit int) ([]kernel.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&DeliveryDTO{}).
		Joins("JOIN orders ON orders.id = order_deliveries.order_id").
		Where("order_deliveries.approval = ? AND order_deliveries.auto_approve_at <= ?", order.ApprovalPending.String(), now).
		Where("orders.status = ? AND orders.quarantined_at IS NULL", order.Delivered.String()).
		Order("order_deliveries.auto_approve_at").
		Limit(limit).
		Pluck("order_deliveries.order_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return toUUIDs(ids), nil
}

// GetWithStaleNegotiations lists orders whose pending negotiation outlived its TTL.
func (r *GormOrderRepository) GetWithStaleNegotiations(ctx context.Context, now time.Time, limit int) ([]kernel.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&NegotiationDTO{}).
		Joins("JOIN orders ON orders.id = order_negotiations.order_id").
		Where("order_negotiations.status = ? AND order_negotiations.expires_at <= ?", order.NegotiationPending.String(), now).
		Where("orders.quarantined_at IS NULL").
		Order("order_negotiations.expires_at").
		Limit(limit).
		Pluck("order_negotiations.order_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return toUUIDs(ids), nil
}

func (r *GormOrderRepository) Quarantine(ctx context.Context, id kernel.UUID, reason string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&OrderDTO{}).
		Where("id = ?", id.Bytes()).
		Updates(map[string]any{"quarantined_at": at, "quarantine_reason": reason})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

func (r *GormOrderRepository) ReleaseQuarantine(ctx context.Context, id kernel.UUID) error {
	result := r.db.WithContext(ctx).Model(&OrderDTO{}).
		Where("id = ?", id.Bytes()).
		Updates(map[string]any{"quarantined_at": nil, "quarantine_reason": nil})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

// saveChildren upserts the child rows. Children are never removed from an
// order, so rows missing from dto cannot exist.
func saveChildren(db *gorm.DB, dto OrderDTO) error {
	upsert := func() *gorm.DB { return db.Clauses(clause.OnConflict{UpdateAll: true}) }

	if len(dto.Requirements) > 0 {
		if err := upsert().Create(&dto.Requirements).Error; err != nil {
			return err
		}
	}
	if len(dto.Deliveries) > 0 {
		if err := upsert().Create(&dto.Deliveries).Error; err != nil {
			return err
		}
	}
	if len(dto.Negotiations) > 0 {
		if err := upsert().Create(&dto.Negotiations).Error; err != nil {
			return err
		}
	}
	if len(dto.Audit) > 0 {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&dto.Audit).Error; err != nil {
			return err
		}
	}
	return nil
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func notFound(id kernel.UUID) error {
	return errs.NewWorkflowErrorWithCause(errs.CodeOrderNotFound, "order "+id.String()+" not found",
		errs.NewObjectNotFoundError("order", id.String()))
}

func quarantined(id kernel.UUID) error {
	return errs.NewWorkflowErrorWithCause(errs.CodeCorruptAggregate, "order "+id.String()+" is quarantined",
		ports.ErrQuarantined)
}

func toUUIDs(ids []uuid.UUID) []kernel.UUID {
	out := make([]kernel.UUID, 0, len(ids))
	for _, id := range ids {
		out = append(out, kernel.UUIDFromGoogle(id))
	}
	return out
}
