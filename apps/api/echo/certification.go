package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/knowledgelearning/backend/core/certification"
	"github.com/knowledgelearning/backend/core/user"
)

type certificationApi struct {
	svc     *certification.Service
	userSvc *user.Service
}

func registerCertificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *certification.Service, userSvc *user.Service) {
	api := certificationApi{svc: svc, userSvc: userSvc}

	cg := g.Group("/certifications", jwt)
	cg.GET("", api.queryOwn, activeUserMiddleware(api.userSvc))
	cg.GET("/all", api.queryAll, adminMiddleware())
}

// Handlers

func (api *certificationApi) queryOwn(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	certs, err := api.svc.QueryByUser(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying certifications")
	}
	if certs == nil {
		certs = []certification.Certification{}
	}
	return ctx.JSON(http.StatusOK, certs)
}

func (api *certificationApi) queryAll(ctx echo.Context) error {
	certs, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying certifications")
	}
	if certs == nil {
		certs = []certification.Certification{}
	}
	return ctx.JSON(http.StatusOK, certs)
}
