package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/juku/core"
	"github.com/trezcool/juku/core/schedule"
)

type (
	scheduleApi struct {
		schedules  *schedule.Accessor
		validate   *validator.Validate
		translator ut.Translator
	}

	dailyRequest struct {
		Date string `param:"date" json:"date" validate:"required,ymd"`
	}

	dailyResponse struct {
		*schedule.Schedule
		Date string `json:"date"`
		// Stored is false when the schedule is a template copy that was never materialized.
		Stored bool `json:"stored"`
	}
)

func registerScheduleAPI(g *echo.Group, schedules *schedule.Accessor, validate *validator.Validate, translator ut.Translator) {
	api := scheduleApi{
		schedules:  schedules,
		validate:   validate,
		translator: translator,
	}

	sg := g.Group("/schedules")
	sg.GET("/daily/:date", api.daily)
}

func (api *scheduleApi) daily(ctx echo.Context) error {
	var data dailyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to dailyRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return core.TranslateValidationErrors(err, api.translator)
	}
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}

	s, stored, err := api.schedules.LoadDaily(ctx.Request().Context(), actor.ClassroomCode, data.Date)
	if err != nil {
		return errors.Wrap(err, "loading daily schedule")
	}
	return ctx.JSON(http.StatusOK, dailyResponse{Schedule: s, Date: data.Date, Stored: stored})
}
