package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/submita/submita/core/article"
	"github.com/submita/submita/core/evaluation"
	"github.com/submita/submita/core/event"
	"github.com/submita/submita/core/user"
)

type articleApi struct {
	svc      article.Service
	evalSvc  evaluation.Service
	evtSvc   event.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerArticleAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc article.Service,
	evalSvc evaluation.Service,
	evtSvc event.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := articleApi{
		svc:      svc,
		evalSvc:  evalSvc,
		evtSvc:   evtSvc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	ag := g.Group("/articles", jwt)
	ag.POST("", api.submit, studentMiddleware())
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.withdraw)
	ag.GET("/:id/versions", api.queryVersions)
	ag.POST("/:id/versions", api.createVersion)
	ag.GET("/:id/evaluations", api.queryEvaluations)
}

// Handlers

func (api *articleApi) submit(ctx echo.Context) error {
	var data article.NewArticle
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewArticle")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	art, err := api.svc.Submit(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return apiError(errors.Wrap(err, "submitting article"))
	}
	return ctx.JSON(http.StatusCreated, art)
}

func (api *articleApi) query(ctx echo.Context) error {
	filter := new(article.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []article.Article{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	articles, err := api.svc.QueryVisibleTo(ctx.Request().Context(), ctxUsr, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying articles")
	}
	if articles == nil {
		articles = []article.Article{}
	}
	return ctx.JSON(http.StatusOK, articles)
}

func (api *articleApi) retrieve(ctx echo.Context) error {
	art, err := api.getVisibleArticle(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, art)
}

func (api *articleApi) update(ctx echo.Context) error {
	var data article.UpdateArticle
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateArticle")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	art, err := api.svc.Update(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return apiError(errors.Wrap(err, "updating article"))
	}
	return ctx.JSON(http.StatusOK, art)
}

func (api *articleApi) withdraw(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Withdraw(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return apiError(errors.Wrap(err, "withdrawing article"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *articleApi) queryVersions(ctx echo.Context) error {
	if _, err := api.getVisibleArticle(ctx); err != nil {
		return err
	}

	versions, err := api.svc.QueryVersions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return apiError(errors.Wrap(err, "querying article versions"))
	}
	if versions == nil {
		versions = []article.Version{}
	}
	return ctx.JSON(http.StatusOK, versions)
}

func (api *articleApi) createVersion(ctx echo.Context) error {
	var data article.NewVersion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVersion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	art, err := api.svc.CreateNewVersion(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return apiError(errors.Wrap(err, "creating article version"))
	}
	return ctx.JSON(http.StatusCreated, art)
}

func (api *articleApi) queryEvaluations(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	evals, err := api.evalSvc.ListForArticle(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return apiError(errors.Wrap(err, "listing article evaluations"))
	}
	if evals == nil {
		evals = []evaluation.Evaluation{}
	}
	return ctx.JSON(http.StatusOK, evals)
}

// getVisibleArticle fetches the article and enforces read access: the author,
// all coordinators, and evaluators assigned to the article's event may see it.
func (api *articleApi) getVisibleArticle(ctx echo.Context) (article.Article, error) {
	art, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return article.Article{}, apiError(errors.Wrap(err, "finding article by ID"))
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return article.Article{}, errors.Wrap(err, "getting context user")
	}
	if art.AuthorID == ctxUsr.ID || ctxUsr.IsCoordinator() {
		return art, nil
	}
	if ctxUsr.IsEvaluator() {
		assigned, err := api.evtSvc.IsEvaluatorAssigned(ctx.Request().Context(), art.EventID, ctxUsr.ID)
		if err != nil {
			return article.Article{}, errors.Wrap(err, "checking evaluator assignment")
		}
		if assigned {
			return art, nil
		}
	}
	return article.Article{}, errHttpNotFound
}
