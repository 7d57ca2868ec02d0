package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Request and response bodies of openapi.yaml.
type (
	Money struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}

	NewRequirement struct {
		Question string `json:"question"`
		Required bool   `json:"required"`
		HasFile  bool   `json:"hasFile"`
	}

	NewOrder struct {
		OrderID      *openapi_types.UUID `json:"orderId,omitempty"`
		GigID        openapi_types.UUID  `json:"gigId"`
		BuyerID      openapi_types.UUID  `json:"buyerId"`
		SellerID     openapi_types.UUID  `json:"sellerId"`
		Price        Money               `json:"price"`
		Quantity     int                 `json:"quantity"`
		ServiceFee   Money               `json:"serviceFee"`
		Scope        string              `json:"scope"`
		DeliveryDays int                 `json:"deliveryDays"`
		MaxRevision  *int                `json:"maxRevision,omitempty"`
		Requirements []NewRequirement    `json:"requirements,omitempty"`
	}

	OrderRef struct {
		ID openapi_types.UUID `json:"id"`
	}

	RequirementAnswer struct {
		RequirementID openapi_types.UUID `json:"requirementId"`
		Answer        string             `json:"answer"`
		Files         []string           `json:"files,omitempty"`
	}

	RequirementAnswers struct {
		Answers []RequirementAnswer `json:"answers"`
	}

	NewDelivery struct {
		Message string   `json:"message"`
		Files   []string `json:"files,omitempty"`
	}

	DeliveryResponse struct {
		DeliveryID *openapi_types.UUID `json:"deliveryId,omitempty"`
		Decision   string              `json:"decision"`
		Note       string              `json:"note,omitempty"`
	}

	NewNegotiation struct {
		Type     string  `json:"type"`
		Days     *int    `json:"days,omitempty"`
		Reason   *string `json:"reason,omitempty"`
		NewPrice *Money  `json:"newPrice,omitempty"`
		NewScope *string `json:"newScope,omitempty"`
		Message  string  `json:"message,omitempty"`
	}

	NegotiationResponse struct {
		Decision string `json:"decision"`
	}

	NewDispute struct {
		Reason string `json:"reason"`
	}

	CommandResult struct {
		Outcome string    `json:"outcome"`
		Order   OrderView `json:"order"`
		Events  []string  `json:"events"`
	}

	OrderSummary struct {
		ID          openapi_types.UUID `json:"id"`
		GigID       openapi_types.UUID `json:"gigId"`
		BuyerID     openapi_types.UUID `json:"buyerId"`
		SellerID    openapi_types.UUID `json:"sellerId"`
		Status      string             `json:"status"`
		Total       Money              `json:"total"`
		DateOrdered time.Time          `json:"dateOrdered"`
		DueDate     *time.Time         `json:"dueDate"`
		Version     int64              `json:"version"`
	}

	ReviewEligibility struct {
		Role     string `json:"role"`
		Eligible bool   `json:"eligible"`
		Reason   string `json:"reason,omitempty"`
	}

	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
)

type ListOrdersParams struct {
	Status *[]string
	Limit  *int
}

// ServerInterface lists one method per operationId of openapi.yaml.
type ServerInterface interface {
	ListOrders(ctx echo.Context, params ListOrdersParams) error
	CreateOrder(ctx echo.Context) error
	GetOrder(ctx echo.Context, orderID openapi_types.UUID) error
	GetReviewEligibility(ctx echo.Context, orderID openapi_types.UUID) error
	ConfirmPayment(ctx echo.Context, orderID openapi_types.UUID) error
	SubmitRequirements(ctx echo.Context, orderID openapi_types.UUID) error
	SubmitDelivery(ctx echo.Context, orderID openapi_types.UUID) error
	RespondToDelivery(ctx echo.Context, orderID openapi_types.UUID) error
	AutoApproveDelivery(ctx echo.Context, orderID openapi_types.UUID) error
	OpenNegotiation(ctx echo.Context, orderID openapi_types.UUID) error
	RespondToNegotiation(ctx echo.Context, orderID, negotiationID openapi_types.UUID) error
	ExpireNegotiation(ctx echo.Context, orderID openapi_types.UUID) error
	EscalateDispute(ctx echo.Context, orderID openapi_types.UUID) error
	ReleaseQuarantine(ctx echo.Context, orderID openapi_types.UUID) error
}

// serverInterfaceWrapper converts echo contexts to typed parameters.
type serverInterfaceWrapper struct {
	handler ServerInterface
}

func bindUUID(ctx echo.Context, name string) (openapi_types.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, ctx.Param(name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return id, echo.NewHTTPError(http.StatusBadRequest, "invalid format for parameter "+name+": "+err.Error())
	}
	return id, nil
}

func (w *serverInterfaceWrapper) ListOrders(ctx echo.Context) error {
	var params ListOrdersParams
	if err := runtime.BindQueryParameter("form", true, false, "status", ctx.QueryParams(), &params.Status); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid format for parameter status: "+err.Error())
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", ctx.QueryParams(), &params.Limit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid format for parameter limit: "+err.Error())
	}
	return w.handler.ListOrders(ctx, params)
}

func (w *serverInterfaceWrapper) CreateOrder(ctx echo.Context) error {
	return w.handler.CreateOrder(ctx)
}

// withOrderID adapts the methods that only take the order id.
func (w *serverInterfaceWrapper) withOrderID(next func(echo.Context, openapi_types.UUID) error) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		orderID, err := bindUUID(ctx, "orderId")
		if err != nil {
			return err
		}
		return next(ctx, orderID)
	}
}

func (w *serverInterfaceWrapper) RespondToNegotiation(ctx echo.Context) error {
	orderID, err := bindUUID(ctx, "orderId")
	if err != nil {
		return err
	}
	negotiationID, err := bindUUID(ctx, "negotiationId")
	if err != nil {
		return err
	}
	return w.handler.RespondToNegotiation(ctx, orderID, negotiationID)
}

// EchoRouter is satisfied by *echo.Echo and *echo.Group.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlersWithBaseURL mounts every operation under baseURL.
func RegisterHandlersWithBaseURL(router EchoRouter, si ServerInterface, baseURL string) {
	w := &serverInterfaceWrapper{handler: si}

	router.GET(baseURL+"/orders", w.ListOrders)
	router.POST(baseURL+"/orders", w.CreateOrder)
	router.GET(baseURL+"/orders/:orderId", w.withOrderID(si.GetOrder))
	router.GET(baseURL+"/orders/:orderId/review-eligibility", w.withOrderID(si.GetReviewEligibility))
	router.POST(baseURL+"/orders/:orderId/payment-confirmation", w.withOrderID(si.ConfirmPayment))
	router.POST(baseURL+"/orders/:orderId/requirements", w.withOrderID(si.SubmitRequirements))
	router.POST(baseURL+"/orders/:orderId/deliveries", w.withOrderID(si.SubmitDelivery))
	router.POST(baseURL+"/orders/:orderId/delivery-response", w.withOrderID(si.RespondToDelivery))
	router.POST(baseURL+"/orders/:orderId/auto-approval", w.withOrderID(si.AutoApproveDelivery))
	router.POST(baseURL+"/orders/:orderId/negotiations", w.withOrderID(si.OpenNegotiation))
	router.POST(baseURL+"/orders/:orderId/negotiations/:negotiationId/response", w.RespondToNegotiation)
	router.POST(baseURL+"/orders/:orderId/negotiation-expiry", w.withOrderID(si.ExpireNegotiation))
	router.POST(baseURL+"/orders/:orderId/dispute", w.withOrderID(si.EscalateDispute))
	router.DELETE(baseURL+"/orders/:orderId/quarantine", w.withOrderID(si.ReleaseQuarantine))
}
