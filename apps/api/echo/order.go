package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/knowledgelearning/backend/core/order"
	"github.com/knowledgelearning/backend/core/user"
)

type orderApi struct {
	svc     *order.Service
	userSvc *user.Service
}

func registerOrderAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *order.Service, userSvc *user.Service) {
	api := orderApi{svc: svc, userSvc: userSvc}

	// the payment gateway posts notifications here; HandleNotification
	// re-verifies the transaction with the gateway so the body is never trusted
	g.POST("/payments/webhook", api.webhook)

	og := g.Group("/orders", jwt, activeUserMiddleware(api.userSvc))
	og.POST("/cursus/:id", api.checkoutCursus)
	og.POST("/lessons/:id", api.checkoutLesson)
	og.GET("/:id", api.retrieve)
	og.POST("/:id/confirm", api.confirm)

	g.GET("/purchases", api.queryPurchases, jwt, activeUserMiddleware(api.userSvc))
}

// Handlers

func (api *orderApi) checkoutCursus(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	chk, err := api.svc.CheckoutCursus(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "checking out cursus")
	}
	return ctx.JSON(http.StatusCreated, chk)
}

func (api *orderApi) checkoutLesson(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	chk, err := api.svc.CheckoutLesson(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "checking out lesson")
	}
	return ctx.JSON(http.StatusCreated, chk)
}

func (api *orderApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ord, err := api.svc.GetOrder(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding order by ID")
	}
	return ctx.JSON(http.StatusOK, ord)
}

// confirm settles the order after the client returns from the gateway.
// The transaction status is fetched from the gateway, never taken from
// the request.
func (api *orderApi) confirm(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// ownership check; confirming someone else's order is a 404
	if _, err = api.svc.GetOrder(ctx.Request().Context(), usr.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding order by ID")
	}

	pur, err := api.svc.ConfirmPayment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "confirming payment")
	}
	return ctx.JSON(http.StatusOK, pur)
}

func (api *orderApi) queryPurchases(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	purchases, err := api.svc.Purchases(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying purchases")
	}
	if purchases == nil {
		purchases = []order.Purchase{}
	}
	return ctx.JSON(http.StatusOK, purchases)
}

type WebhookNotification struct {
	OrderID string `json:"order_id"`
}

func (api *orderApi) webhook(ctx echo.Context) error {
	var data WebhookNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WebhookNotification")
	}
	if data.OrderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "order_id is required")
	}

	if err := api.svc.HandleNotification(ctx.Request().Context(), data.OrderID); err != nil {
		return errors.Wrap(err, "handling payment notification")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "notification processed"})
}
