package echoapi

import (
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/juku/core"
	"github.com/trezcool/juku/core/attendance"
)

type (
	attendanceApi struct {
		svc        *attendance.Service
		validate   *validator.Validate
		translator ut.Translator
		metrics    *metrics
	}

	editRequest struct {
		Original attendance.Entry   `json:"original"`
		Changes  attendance.Changes `json:"changes"`
	}

	historyRequest struct {
		StudentID string `param:"id" json:"studentId" validate:"required,notblank"`
		Month     string `query:"month" json:"month" validate:"required,ym"`
	}

	historyResponse struct {
		StudentID string             `json:"studentId"`
		Month     string             `json:"month"`
		Regular   []attendance.Entry `json:"regular"`
		Makeup    []attendance.Entry `json:"makeup"`
	}
)

func registerAttendanceAPI(
	g *echo.Group,
	svc *attendance.Service,
	validate *validator.Validate,
	translator ut.Translator,
	m *metrics,
) {
	api := attendanceApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
		metrics:    m,
	}

	g.POST("/attendance/edit", api.edit)
	g.GET("/students/:id/attendance", api.history)
}

// Handlers

func (api *attendanceApi) edit(ctx echo.Context) error {
	var data editRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to editRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return core.TranslateValidationErrors(err, api.translator)
	}
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	updated, err := api.svc.Edit(ctx.Request().Context(), actor.ClassroomCode, data.Original, data.Changes)
	api.metrics.observeEdit(attendance.ReasonOf(err), time.Since(start))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (api *attendanceApi) history(ctx echo.Context) error {
	var data historyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to historyRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return core.TranslateValidationErrors(err, api.translator)
	}
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}

	entries, err := api.svc.MonthlyAttendance(ctx.Request().Context(), actor.ClassroomCode, data.StudentID, data.Month)
	if err != nil {
		return errors.Wrap(err, "loading monthly attendance")
	}
	p := attendance.NewProjection(entries)
	return ctx.JSON(http.StatusOK, historyResponse{
		StudentID: core.CleanString(data.StudentID),
		Month:     data.Month,
		Regular:   p.Regular(),
		Makeup:    p.Makeup(),
	})
}
