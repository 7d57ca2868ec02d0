package http

import (
	"context"
	"net/http"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

type OrderCreator interface {
	Handle(ctx context.Context, cmd commands.CreateOrderCommand) error
}

type QuarantineReleaser interface {
	Handle(ctx context.Context, cmd commands.ReleaseQuarantineCommand) error
}

type OrderGetter interface {
	Handle(ctx context.Context, query queries.GetOrderQuery) (queries.GetOrderQueryResponse, error)
}

type EligibilityChecker interface {
	Handle(ctx context.Context, query queries.GetReviewEligibilityQuery) (services.ReviewEligibility, error)
}

type OrderLister interface {
	Handle(ctx context.Context, query queries.ListOrdersQuery) ([]queries.ListOrdersQueryResponse, error)
}

// Server implements ServerInterface on top of the application handlers.
// Every workflow action goes through the executor.
type Server struct {
	executor commands.Executor
	creator  OrderCreator
	releaser QuarantineReleaser

	getter      OrderGetter
	eligibility EligibilityChecker
	lister      OrderLister
}

func NewServer(
	executor commands.Executor,
	creator OrderCreator,
	releaser QuarantineReleaser,
	getter OrderGetter,
	eligibility EligibilityChecker,
	lister OrderLister,
) *Server {
	return &Server{
		executor:    executor,
		creator:     creator,
		releaser:    releaser,
		getter:      getter,
		eligibility: eligibility,
		lister:      lister,
	}
}

var _ ServerInterface = (*Server)(nil)

// ListOrders handles GET /orders.
func (s *Server) ListOrders(ctx echo.Context, params ListOrdersParams) error {
	actor, ok := actorFrom(ctx)
	if !ok {
		return unauthenticated(ctx)
	}

	var statuses []order.Status
	if params.Status != nil {
		for _, raw := range *params.Status {
			st, parseErr := order.ParseStatus(raw)
			if parseErr != nil {
				return writeError(ctx, parseErr)
			}
			statuses = append(statuses, st)
		}
	}
	limit := queries.DefaultListLimit
	if params.Limit != nil {
		limit = *params.Limit
	}

	query, err := queries.NewListOrdersQuery(actor, statuses, limit)
	if err != nil {
		return writeError(ctx, err)
	}
	rows, err := s.lister.Handle(ctx.Request().Context(), query)
	if err != nil {
		return writeError(ctx, err)
	}

	response := make([]OrderSummary, len(rows))
	for i, row := range rows {
		response[i] = OrderSummary{
			ID:          row.ID.Bytes(),
			GigID:       row.GigID.Bytes(),
			BuyerID:     row.BuyerID.Bytes(),
			SellerID:    row.SellerID.Bytes(),
			Status:      row.Status.String(),
			Total:       moneyView(row.Total),
			DateOrdered: row.DateOrdered,
			DueDate:     row.DueDate,
			Version:     row.Version,
		}
	}
	return ctx.JSON(http.StatusOK, response)
}

// CreateOrder handles POST /orders. Orders are recorded by the payment
// service once the buyer's payment is captured, so only SYSTEM may call it.
func (s *Server) CreateOrder(ctx echo.Context) error {
	actor, ok := actorFrom(ctx)
	if !ok {
		return unauthenticated(ctx)
	}
	if actor.Role != order.RoleSystem {
		return writeError(ctx, errs.ErrUnauthorizedRole)
	}

	var body NewOrder
	if err := ctx.Bind(&body); err != nil {
		return writeError(ctx, err)
	}

	terms, err := termsFrom(body)
	if err != nil {
		return writeError(ctx, err)
	}
	orderID := kernel.NewUUID()
	if body.OrderID != nil {
		orderID = kernel.UUIDFromGoogle(*body.OrderID)
	}
	requirements := make([]commands.RequirementSpec, len(body.Requirements))
	for i, r := range body.Requirements {
		requirements[i] = commands.RequirementSpec{Question: r.Question, Required: r.Required, HasFile: r.HasFile}
	}

	cmd, err := commands.NewCreateOrderCommand(
		orderID,
		kernel.UUIDFromGoogle(body.GigID),
		kernel.UUIDFromGoogle(body.BuyerID),
		kernel.UUIDFromGoogle(body.SellerID),
		terms,
		requirements,
	)
	if err != nil {
		return writeError(ctx, err)
	}
	if err = s.creator.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, OrderRef{ID: orderID.Bytes()})
}

func termsFrom(body NewOrder) (order.Terms, error) {
	price, err := kernel.NewMoney(body.Price.Amount, body.Price.Currency)
	if err != nil {
		return order.Terms{}, err
	}
	fee, err := kernel.NewMoney(body.ServiceFee.Amount, body.ServiceFee.Currency)
	if err != nil {
		return order.Terms{}, err
	}
	pricing, err := order.NewPricing(price, body.Quantity, fee)
	if err != nil {
		return order.Terms{}, err
	}
	return order.NewTerms(pricing, body.Scope, body.DeliveryDays, body.MaxRevision)
}

// GetOrder handles GET /orders/{orderId}.
func (s *Server) GetOrder(ctx echo.Context, orderID openapi_types.UUID) error {
	actor, ok := actorFrom(ctx)
	if !ok {
		return unauthenticated(ctx)
	}
	query, err := queries.NewGetOrderQuery(kernel.UUIDFromGoogle(orderID), actor)
	if err != nil {
		return writeError(ctx, err)
	}
	response, err := s.getter.Handle(ctx.Request().Context(), query)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, newOrderView(response.Order, response.NextDeadline))
}

// GetReviewEligibility handles GET /orders/{orderId}/review-eligibility.
func (s *Server) GetReviewEligibility(ctx echo.Context, orderID openapi_types.UUID) error {
	actor, ok := actorFrom(ctx)
	if !ok {
		return unauthenticated(ctx)
	}
	query, err := queries.NewGetReviewEligibilityQuery(kernel.UUIDFromGoogle(orderID), actor)
	if err != nil {
		return writeError(ctx, err)
	}
	result, err := s.eligibility.Handle(ctx.Request().Context(), query)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ReviewEligibility{
		Role:     result.Role.String(),
		Eligible: result.Eligible,
		Reason:   result.Reason,
	})
}

func (s *Server) ConfirmPayment(ctx echo.Context, orderID openapi_types.UUID) error {
	return s.execute(ctx, orderID, services.ConfirmPayment{})
}

func (s *Server) SubmitRequirements(ctx echo.Context, orderID openapi_types.UUID) error {
	var body RequirementAnswers
	if err := ctx.Bind(&body); err != nil {
		return writeError(ctx, err)
	}
	answers := make([]order.RequirementAnswer, len(body.Answers))
	for i, a := range body.Answers {
		answers[i] = order.RequirementAnswer{
			RequirementID: kernel.UUIDFromGoogle(a.RequirementID),
			Answer:        a.Answer,
			Files:         a.Files,
		}
	}
	return s.execute(ctx, orderID, services.SubmitRequirements{Answers: answers})
}

func (s *Server) SubmitDelivery(ctx echo.Context, orderID openapi_types.UUID) error {
	var body NewDelivery
	if err := ctx.Bind(&body); err != nil {
		return writeError(ctx, err)
	}
	return s.execute(ctx, orderID, services.SubmitDelivery{Message: body.Message, Files: body.Files})
}

// RespondToDelivery approves the delivery or asks for a revision. Without
// deliveryId the latest delivery is answered.
func (s *Server) RespondToDelivery(ctx echo.Context, orderID openapi_types.UUID) error {
	var body DeliveryResponse
	if err := ctx.Bind(&body); err != nil {
		return writeError(ctx, err)
	}
	decision, err := order.ParseDeliveryDecision(body.Decision)
	if err != nil {
		return writeError(ctx, err)
	}
	instruction := services.RespondToDelivery{Decision: decision, Note: body.Note}
	if body.DeliveryID != nil {
		instruction.DeliveryID = kernel.UUIDFromGoogle(*body.DeliveryID)
	}
	return s.execute(ctx, orderID, instruction)
}

func (s *Server) AutoApproveDelivery(ctx echo.Context, orderID openapi_types.UUID) error {
	return s.execute(ctx, orderID, services.AutoApproveDelivery{})
}

func (s *Server) OpenNegotiation(ctx echo.Context, orderID openapi_types.UUID) error {
	var body NewNegotiation
	if err := ctx.Bind(&body); err != nil {
		return writeError(ctx, err)
	}
	payload, err := payloadFrom(body)
	if err != nil {
		return writeError(ctx, err)
	}
	return s.execute(ctx, orderID, services.OpenNegotiation{Payload: payload, Message: body.Message})
}

func payloadFrom(body NewNegotiation) (order.Payload, error) {
	kind, err := order.ParseNegotiationType(body.Type)
	if err != nil {
		return nil, err
	}

	switch kind {
	case order.ExtendDelivery:
		if body.Days == nil {
			return nil, errs.Workflowf(errs.CodeInvalidPayload, "days is required for %s", kind)
		}
		return order.NewExtendDeliveryPayload(*body.Days)
	case order.CancelOrder:
		reason := ""
		if body.Reason != nil {
			reason = *body.Reason
		}
		return order.NewCancelOrderPayload(reason)
	default:
		var price *kernel.Money
		if body.NewPrice != nil {
			m, moneyErr := kernel.NewMoney(body.NewPrice.Amount, body.NewPrice.Currency)
			if moneyErr != nil {
				return nil, moneyErr
			}
			price = &m
		}
		return order.NewModifyOrderPayload(price, body.NewScope)
	}
}

func (s *Server) RespondToNegotiation(ctx echo.Context, orderID, negotiationID openapi_types.UUID) error {
	var body NegotiationResponse
	if err := ctx.Bind(&body); err != nil {
		return writeError(ctx, err)
	}
	decision, err := order.ParseNegotiationDecision(body.Decision)
	if err != nil {
		return writeError(ctx, err)
	}
	return s.execute(ctx, orderID, services.RespondToNegotiation{
		NegotiationID: kernel.UUIDFromGoogle(negotiationID),
		Decision:      decision,
	})
}

func (s *Server) ExpireNegotiation(ctx echo.Context, orderID openapi_types.UUID) error {
	return s.execute(ctx, orderID, services.ExpireNegotiation{})
}

func (s *Server) EscalateDispute(ctx echo.Context, orderID openapi_types.UUID) error {
	var body NewDispute
	if err := ctx.Bind(&body); err != nil {
		return writeError(ctx, err)
	}
	return s.execute(ctx, orderID, services.EscalateDispute{Reason: body.Reason})
}

// ReleaseQuarantine handles DELETE /orders/{orderId}/quarantine. It is a
// support operation and needs a SYSTEM token.
func (s *Server) ReleaseQuarantine(ctx echo.Context, orderID openapi_types.UUID) error {
	actor, ok := actorFrom(ctx)
	if !ok {
		return unauthenticated(ctx)
	}
	if actor.Role != order.RoleSystem {
		return writeError(ctx, errs.ErrUnauthorizedRole)
	}
	cmd, err := commands.NewReleaseQuarantineCommand(kernel.UUIDFromGoogle(orderID))
	if err != nil {
		return writeError(ctx, err)
	}
	if err = s.releaser.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) execute(ctx echo.Context, orderID openapi_types.UUID, instruction services.Instruction) error {
	actor, ok := actorFrom(ctx)
	if !ok {
		return unauthenticated(ctx)
	}
	cmd, err := commands.NewExecuteCommand(kernel.UUIDFromGoogle(orderID), actor, instruction)
	if err != nil {
		return writeError(ctx, err)
	}
	result, err := s.executor.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return writeError(ctx, err)
	}

	events := make([]string, len(result.Events))
	for i, e := range result.Events {
		events[i] = e.EventName()
	}
	return ctx.JSON(http.StatusOK, CommandResult{
		Outcome: string(result.Outcome),
		Order:   newOrderView(result.Order, nil),
		Events:  events,
	})
}

// unauthenticated answers requests that reached a handler without an actor.
func unauthenticated(ctx echo.Context) error {
	return ctx.JSON(http.StatusUnauthorized, Error{Code: "UNAUTHENTICATED", Message: errMissingToken.Error()})
}
