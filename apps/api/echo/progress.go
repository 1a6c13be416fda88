package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/knowledgelearning/backend/core/progress"
	"github.com/knowledgelearning/backend/core/user"
)

type progressApi struct {
	svc     *progress.Service
	userSvc *user.Service
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *progress.Service, userSvc *user.Service) {
	api := progressApi{svc: svc, userSvc: userSvc}

	pg := g.Group("/progress", jwt, activeUserMiddleware(api.userSvc))
	pg.GET("", api.query)
	pg.GET("/lessons/:id", api.retrieve)
	pg.POST("/lessons/:id/complete", api.complete)
	pg.POST("/lessons/:id/validate", api.validate)
}

// Handlers

func (api *progressApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	records, err := api.svc.QueryByUser(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying progress")
	}
	if records == nil {
		records = []progress.Progress{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *progressApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	prog, err := api.svc.Get(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting lesson progress")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *progressApi) complete(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	prog, err := api.svc.Complete(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "completing lesson")
	}
	return ctx.JSON(http.StatusOK, prog)
}

// validate marks a completed lesson as validated; when it is the last one
// of its theme a certification is issued on the side.
func (api *progressApi) validate(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	prog, err := api.svc.Validate(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "validating lesson")
	}
	return ctx.JSON(http.StatusOK, prog)
}
