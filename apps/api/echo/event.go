package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/submita/submita/core/event"
	"github.com/submita/submita/core/user"
)

type eventApi struct {
	svc      event.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerEventAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc event.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := eventApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	eg := g.Group("/events", jwt)
	eg.GET("", api.query)
	eg.POST("", api.create, coordinatorMiddleware())
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update, coordinatorMiddleware())
	eg.DELETE("/:id", api.destroy, coordinatorMiddleware())
	eg.GET("/:id/questions", api.queryQuestions)
	eg.GET("/:id/evaluators", api.queryEvaluators, coordinatorMiddleware())
	eg.POST("/:id/evaluators", api.assignEvaluators, coordinatorMiddleware())
	eg.DELETE("/:id/evaluators/:userId", api.removeEvaluator)

	cg := g.Group("/checklists", jwt, coordinatorMiddleware())
	cg.GET("", api.queryChecklists)
	cg.POST("", api.createChecklist)
	cg.GET("/:id", api.retrieveChecklist)
	cg.PUT("/:id", api.updateChecklist)
	cg.POST("/:id/questions", api.addQuestion)

	qg := g.Group("/questions", jwt, coordinatorMiddleware())
	qg.PUT("/:id", api.updateQuestion)
	qg.DELETE("/:id", api.removeQuestion)
}

// Handlers

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	evt, err := api.svc.Create(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return apiError(errors.Wrap(err, "creating event"))
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *eventApi) query(ctx echo.Context) error {
	filter := new(event.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []event.Event{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	evt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return apiError(errors.Wrap(err, "finding event by ID"))
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	evt, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return apiError(errors.Wrap(err, "updating event"))
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return apiError(errors.Wrap(err, "deleting event"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

// queryQuestions lists the active checklist questions evaluators must answer
// for this event. An event without a checklist yields an empty list.
func (api *eventApi) queryQuestions(ctx echo.Context) error {
	questions, err := api.svc.QueryEventQuestions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return apiError(errors.Wrap(err, "querying event questions"))
	}
	if questions == nil {
		questions = []event.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *eventApi) queryEvaluators(ctx echo.Context) error {
	evaluators, err := api.svc.QueryEvaluators(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return apiError(errors.Wrap(err, "querying event evaluators"))
	}
	if evaluators == nil {
		evaluators = []user.User{}
	}
	return ctx.JSON(http.StatusOK, evaluators)
}

func (api *eventApi) assignEvaluators(ctx echo.Context) error {
	var data AssignEvaluatorsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignEvaluatorsRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if err := api.svc.AssignEvaluators(ctx.Request().Context(), ctx.Param("id"), data.UserIDs); err != nil {
		return apiError(errors.Wrap(err, "assigning evaluators"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

// removeEvaluator unassigns an evaluator from an event. Coordinators may remove
// anyone; evaluators may only refuse their own assignment.
func (api *eventApi) removeEvaluator(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	userID := ctx.Param("userId")
	if !claims.IsCoordinator && !(claims.IsEvaluator && claims.Subject == userID) {
		return errHttpForbidden
	}

	if err := api.svc.RemoveEvaluator(ctx.Request().Context(), ctx.Param("id"), userID); err != nil {
		return apiError(errors.Wrap(err, "removing evaluator"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) createChecklist(ctx echo.Context) error {
	var data event.NewChecklist
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChecklist")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cl, err := api.svc.CreateChecklist(ctx.Request().Context(), data)
	if err != nil {
		return apiError(errors.Wrap(err, "creating checklist"))
	}
	return ctx.JSON(http.StatusCreated, cl)
}

func (api *eventApi) queryChecklists(ctx echo.Context) error {
	checklists, err := api.svc.QueryChecklists(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying checklists")
	}
	if checklists == nil {
		checklists = []event.Checklist{}
	}
	return ctx.JSON(http.StatusOK, checklists)
}

func (api *eventApi) retrieveChecklist(ctx echo.Context) error {
	cl, err := api.svc.GetChecklist(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return apiError(errors.Wrap(err, "finding checklist by ID"))
	}
	return ctx.JSON(http.StatusOK, cl)
}

func (api *eventApi) updateChecklist(ctx echo.Context) error {
	var data event.NewChecklist
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChecklist")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cl, err := api.svc.UpdateChecklist(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return apiError(errors.Wrap(err, "updating checklist"))
	}
	return ctx.JSON(http.StatusOK, cl)
}

func (api *eventApi) addQuestion(ctx echo.Context) error {
	var data event.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.AddQuestion(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return apiError(errors.Wrap(err, "adding question"))
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *eventApi) updateQuestion(ctx echo.Context) error {
	var data event.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.UpdateQuestion(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return apiError(errors.Wrap(err, "updating question"))
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *eventApi) removeQuestion(ctx echo.Context) error {
	if err := api.svc.RemoveQuestion(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return apiError(errors.Wrap(err, "removing question"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

type AssignEvaluatorsRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,uuid4"`
}
