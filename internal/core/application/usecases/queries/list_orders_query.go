package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

var ErrListOrdersQueryIsNotConstructed = errors.New(
	"ListOrdersQuery must be created via NewListOrdersQuery constructor",
)

// ListOrdersQuery lists the orders the actor takes part in, newest first,
// optionally narrowed to some statuses. Quarantined orders are left out.
//
// Example:
//
//	query, _ := NewListOrdersQuery(seller, []order.Status{order.InProgress, order.Delivered}, 20)
//	rows, err := handler.Handle(ctx, query)
type ListOrdersQuery struct { //nolint:recvcheck //using for validation
	actor    order.Actor
	statuses []order.Status
	limit    int

	guard guard.ConstructorGuard
}

// NewListOrdersQuery uses DefaultListLimit when limit is zero.
func NewListOrdersQuery(actor order.Actor, statuses []order.Status, limit int) (ListOrdersQuery, error) {
	if err := errors.Join(actor.ID.Validate(), actor.Role.Validate()); err != nil {
		return ListOrdersQuery{}, err
	}
	if actor.Role == order.RoleSystem {
		return ListOrdersQuery{}, errs.Workflowf(errs.CodeUnauthorizedRole, "%s has no orders of its own", actor.Role)
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 0 || limit > MaxListLimit {
		return ListOrdersQuery{}, errs.NewValueIsOutOfRangeError("limit", limit, 1, MaxListLimit)
	}
	for _, s := range statuses {
		if err := s.Validate(); err != nil {
			return ListOrdersQuery{}, err
		}
	}

	return ListOrdersQuery{
		actor:    actor,
		statuses: append([]order.Status(nil), statuses...),
		limit:    limit,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

func (q ListOrdersQuery) Validate() error {
	return q.guard.Validate(ErrListOrdersQueryIsNotConstructed)
}

type ListOrdersQueryResponse struct {
	ID          kernel.UUID
	GigID       kernel.UUID
	BuyerID     kernel.UUID
	SellerID    kernel.UUID
	Status      order.Status
	Total       kernel.Money
	DateOrdered time.Time
	DueDate     *time.Time
	Version     int64
}

type ListOrdersQueryHandler struct {
	db *gorm.DB
}

func NewListOrdersQueryHandler(db *gorm.DB) ListOrdersQueryHandler {
	return ListOrdersQueryHandler{db: db}
}

func (h ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) ([]ListOrdersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	column := "buyer_id"
	if query.actor.Role == order.RoleSeller {
		column = "seller_id"
	}

	var sql strings.Builder
	sql.WriteString(`
		SELECT
			id,
			gig_id,
			buyer_id,
			seller_id,
			status,
			total_amount,
			currency,
			date_ordered,
			due_date,
			version
		FROM orders
		WHERE ` + column + ` = ? AND quarantined_at IS NULL`)
	args := []any{query.actor.ID.Bytes()}
	if len(query.statuses) > 0 {
		names := make([]string, 0, len(query.statuses))
		for _, s := range query.statuses {
			names = append(names, s.String())
		}
		sql.WriteString(` AND status IN ?`)
		args = append(args, names)
	}
	sql.WriteString(` ORDER BY date_ordered DESC, id LIMIT ?`)
	args = append(args, query.limit)

	rows, err := h.db.WithContext(ctx).Raw(sql.String(), args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]ListOrdersQueryResponse, 0)
	for rows.Next() {
		var (
			id, gigID, buyerID, sellerID uuid.UUID
			status, currency             string
			totalAmount                  int64
			row                          ListOrdersQueryResponse
		)
		err = rows.Scan(
			&id,
			&gigID,
			&buyerID,
			&sellerID,
			&status,
			&totalAmount,
			&currency,
			&row.DateOrdered,
			&row.DueDate,
			&row.Version,
		)
		if err != nil {
			return nil, err
		}

		row.ID = kernel.UUIDFromGoogle(id)
		row.GigID = kernel.UUIDFromGoogle(gigID)
		row.BuyerID = kernel.UUIDFromGoogle(buyerID)
		row.SellerID = kernel.UUIDFromGoogle(sellerID)
		if row.Status, err = order.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("order %s: %w", row.ID, err)
		}
		if row.Total, err = kernel.NewMoney(totalAmount, currency); err != nil {
			return nil, fmt.Errorf("order %s: %w", row.ID, err)
		}
		result = append(result, row)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
