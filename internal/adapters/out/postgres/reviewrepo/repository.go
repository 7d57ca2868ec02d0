// Package reviewrepo reads the reviews table owned by the review service.
package reviewrepo

import (
	"context"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"gorm.io/gorm"
)

type GormReviewLookup struct {
	db *gorm.DB
}

func NewGormReviewLookup(db *gorm.DB) *GormReviewLookup {
	return &GormReviewLookup{db: db}
}

// HasReview reports whether the participant with role already reviewed the order.
func (l *GormReviewLookup) HasReview(ctx context.Context, orderID kernel.UUID, role order.Role) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Table("reviews").
		Where("order_id = ? AND reviewer_role = ?", orderID.Bytes(), role.String()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
