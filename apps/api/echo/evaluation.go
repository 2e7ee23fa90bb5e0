package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/submita/submita/core/evaluation"
	"github.com/submita/submita/core/user"
)

type evaluationApi struct {
	svc      evaluation.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerEvaluationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc evaluation.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := evaluationApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	vg := g.Group("/evaluations", jwt)
	vg.POST("", api.record, evaluatorMiddleware())
	vg.GET("", api.query)
	vg.GET("/stats", api.stats, evaluatorMiddleware())
	vg.GET("/can-evaluate/:articleId", api.canEvaluate, evaluatorMiddleware())
	vg.POST("/draft", api.saveDraft, evaluatorMiddleware())
	vg.GET("/:id", api.retrieve)
	vg.PUT("/:id", api.update, evaluatorMiddleware())
	vg.PUT("/:id/draft", api.updateDraft, evaluatorMiddleware())
	vg.DELETE("/:id", api.remove)
	vg.DELETE("/:id/clear-checklist", api.clearChecklist, evaluatorMiddleware())
}

// Handlers

func (api *evaluationApi) record(ctx echo.Context) error {
	var data evaluation.NewEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvaluation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Record(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return apiError(errors.Wrap(err, "recording evaluation"))
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *evaluationApi) update(ctx echo.Context) error {
	var data evaluation.NewEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvaluation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Update(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return apiError(errors.Wrap(err, "updating evaluation"))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *evaluationApi) saveDraft(ctx echo.Context) error {
	var data evaluation.DraftEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DraftEvaluation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	draft, err := api.svc.SaveDraft(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return apiError(errors.Wrap(err, "saving draft evaluation"))
	}
	return ctx.JSON(http.StatusCreated, draft)
}

func (api *evaluationApi) updateDraft(ctx echo.Context) error {
	var data evaluation.DraftEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DraftEvaluation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	draft, err := api.svc.UpdateDraft(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return apiError(errors.Wrap(err, "updating draft evaluation"))
	}
	return ctx.JSON(http.StatusOK, draft)
}

func (api *evaluationApi) remove(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return apiError(errors.Wrap(err, "deleting evaluation"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *evaluationApi) clearChecklist(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.ClearResponses(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return apiError(errors.Wrap(err, "clearing checklist responses"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *evaluationApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	eval, err := api.svc.GetByID(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return apiError(errors.Wrap(err, "finding evaluation by ID"))
	}
	return ctx.JSON(http.StatusOK, eval)
}

func (api *evaluationApi) query(ctx echo.Context) error {
	filter := new(evaluation.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []evaluation.Evaluation{})
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	evals, err := api.svc.Query(ctx.Request().Context(), ctxUsr, filter)
	if err != nil {
		return apiError(errors.Wrap(err, "querying evaluations"))
	}
	if evals == nil {
		evals = []evaluation.Evaluation{}
	}
	return ctx.JSON(http.StatusOK, evals)
}

func (api *evaluationApi) canEvaluate(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	elig, err := api.svc.CanEvaluate(ctx.Request().Context(), ctxUsr, ctx.Param("articleId"))
	if err != nil {
		return apiError(errors.Wrap(err, "checking evaluation eligibility"))
	}
	return ctx.JSON(http.StatusOK, elig)
}

func (api *evaluationApi) stats(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	stats, err := api.svc.Stats(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return apiError(errors.Wrap(err, "computing evaluator stats"))
	}
	return ctx.JSON(http.StatusOK, stats)
}
