package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/knowledgelearning/backend/core/catalog"
	"github.com/knowledgelearning/backend/core/order"
)

type catalogApi struct {
	svc      *catalog.Service
	orderSvc *order.Service
	validate *validator.Validate
}

func registerCatalogAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *catalog.Service,
	orderSvc *order.Service,
	validate *validator.Validate,
) {
	api := catalogApi{
		svc:      svc,
		orderSvc: orderSvc,
		validate: validate,
	}
	optJWT := optionalJWT()

	// the browsing catalog is public; an authed token annotates it with
	// ownership and adjusted prices
	g.GET("/catalog", api.browse, optJWT)

	tg := g.Group("/themes")
	tg.GET("", api.queryThemes)
	tg.GET("/:id", api.retrieveTheme)
	tg.GET("/:id/cursus", api.queryThemeCursus)
	tg.POST("", api.createTheme, jwt, adminMiddleware())
	tg.PUT("/:id", api.updateTheme, jwt, adminMiddleware())
	tg.DELETE("/:id", api.destroyTheme, jwt, adminMiddleware())

	cg := g.Group("/cursus")
	cg.GET("", api.queryCursus)
	cg.GET("/:id", api.retrieveCursus)
	cg.GET("/:id/lessons", api.queryCursusLessons)
	cg.POST("", api.createCursus, jwt, adminMiddleware())
	cg.PUT("/:id", api.updateCursus, jwt, adminMiddleware())
	cg.DELETE("/:id", api.destroyCursus, jwt, adminMiddleware())

	lg := g.Group("/lessons")
	lg.GET("", api.queryLessons, jwt, adminMiddleware())
	lg.GET("/:id", api.retrieveLesson, optJWT)
	lg.POST("", api.createLesson, jwt, adminMiddleware())
	lg.PUT("/:id", api.updateLesson, jwt, adminMiddleware())
	lg.DELETE("/:id", api.destroyLesson, jwt, adminMiddleware())
}

// Handlers

func (api *catalogApi) browse(ctx echo.Context) error {
	var userID string
	if claims, err := getContextClaims(ctx); err == nil {
		userID = claims.Subject
	}

	themes, err := api.orderSvc.BrowseCatalog(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "browsing catalog")
	}
	if themes == nil {
		themes = []order.ThemeCatalog{}
	}
	return ctx.JSON(http.StatusOK, themes)
}

// Themes

func (api *catalogApi) queryThemes(ctx echo.Context) error {
	themes, err := api.svc.QueryThemes(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying themes")
	}
	if themes == nil {
		themes = []catalog.Theme{}
	}
	return ctx.JSON(http.StatusOK, themes)
}

func (api *catalogApi) retrieveTheme(ctx echo.Context) error {
	thm, err := api.svc.GetTheme(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding theme by ID")
	}
	return ctx.JSON(http.StatusOK, thm)
}

func (api *catalogApi) queryThemeCursus(ctx echo.Context) error {
	if _, err := api.svc.GetTheme(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding theme by ID")
	}
	cursus, err := api.svc.QueryCursusByTheme(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying cursus by theme")
	}
	if cursus == nil {
		cursus = []catalog.Cursus{}
	}
	return ctx.JSON(http.StatusOK, cursus)
}

func (api *catalogApi) createTheme(ctx echo.Context) error {
	var data catalog.NewTheme
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTheme")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	thm, err := api.svc.CreateTheme(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating theme")
	}
	return ctx.JSON(http.StatusCreated, thm)
}

func (api *catalogApi) updateTheme(ctx echo.Context) error {
	var data catalog.UpdateTheme
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTheme")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	thm, err := api.svc.UpdateTheme(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating theme")
	}
	return ctx.JSON(http.StatusOK, thm)
}

func (api *catalogApi) destroyTheme(ctx echo.Context) error {
	if _, err := api.svc.GetTheme(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding theme by ID")
	}
	if err := api.svc.DeleteThemes(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting theme")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Cursus

func (api *catalogApi) queryCursus(ctx echo.Context) error {
	cursus, err := api.svc.QueryCursus(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying cursus")
	}
	if cursus == nil {
		cursus = []catalog.Cursus{}
	}
	return ctx.JSON(http.StatusOK, cursus)
}

func (api *catalogApi) retrieveCursus(ctx echo.Context) error {
	cur, err := api.svc.GetCursus(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding cursus by ID")
	}
	return ctx.JSON(http.StatusOK, cur)
}

func (api *catalogApi) queryCursusLessons(ctx echo.Context) error {
	if _, err := api.svc.GetCursus(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding cursus by ID")
	}
	lessons, err := api.svc.QueryLessonsByCursus(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying lessons by cursus")
	}

	previews := make([]catalog.Lesson, len(lessons))
	for i, lsn := range lessons {
		previews[i] = lessonPreview(lsn)
	}
	return ctx.JSON(http.StatusOK, previews)
}

func (api *catalogApi) createCursus(ctx echo.Context) error {
	var data catalog.NewCursus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCursus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cur, err := api.svc.CreateCursus(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating cursus")
	}
	return ctx.JSON(http.StatusCreated, cur)
}

func (api *catalogApi) updateCursus(ctx echo.Context) error {
	orig, err := api.svc.GetCursus(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding cursus by ID")
	}

	var data catalog.UpdateCursus
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCursus")
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}

	cur, err := api.svc.UpdateCursus(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating cursus")
	}
	return ctx.JSON(http.StatusOK, cur)
}

func (api *catalogApi) destroyCursus(ctx echo.Context) error {
	if _, err := api.svc.GetCursus(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding cursus by ID")
	}
	if err := api.svc.DeleteCursus(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting cursus")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Lessons

func (api *catalogApi) queryLessons(ctx echo.Context) error {
	lessons, err := api.svc.QueryLessons(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []catalog.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

// retrieveLesson serves the lesson; `content` and `video_url` are only
// included for an owner or an admin.
func (api *catalogApi) retrieveLesson(ctx echo.Context) error {
	lsn, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lesson by ID")
	}

	if claims, cErr := getContextClaims(ctx); cErr == nil {
		if claims.IsAdmin {
			return ctx.JSON(http.StatusOK, lsn)
		}
		ok, aErr := api.orderSvc.HasLessonAccess(ctx.Request().Context(), claims.Subject, lsn)
		if aErr != nil {
			return errors.Wrap(aErr, "checking lesson access")
		}
		if ok {
			return ctx.JSON(http.StatusOK, lsn)
		}
	}
	return ctx.JSON(http.StatusOK, lessonPreview(lsn))
}

func (api *catalogApi) createLesson(ctx echo.Context) error {
	var data catalog.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err := api.svc.CreateLesson(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *catalogApi) updateLesson(ctx echo.Context) error {
	orig, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lesson by ID")
	}

	var data catalog.UpdateLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}

	lsn, err := api.svc.UpdateLesson(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *catalogApi) destroyLesson(ctx echo.Context) error {
	if _, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding lesson by ID")
	}
	if err := api.svc.DeleteLessons(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// lessonPreview strips the paid content off a Lesson for public listings.
func lessonPreview(lsn catalog.Lesson) catalog.Lesson {
	lsn.Content = ""
	lsn.VideoURL = ""
	return lsn
}
