package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apierr "github.com/expfab/expfab/pkg/api/types/errors"
	apiexp "github.com/expfab/expfab/pkg/api/types/experiments"
	"github.com/expfab/expfab/pkg/domain"
	"github.com/expfab/expfab/pkg/domain/event"
	kdbexp "github.com/expfab/expfab/pkg/domain/experiment/db"
	kdbjob "github.com/expfab/expfab/pkg/domain/job/db"
	"github.com/expfab/expfab/pkg/utils/slices"
)

func GetExperimentStatusesHandler(
	dbExperiment kdbexp.ExperimentInterface,
	registry *event.Registry,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()
		experimentId := c.Param("experimentId")

		experiments, err := dbExperiment.Get(ctx, []string{experimentId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		experiment, ok := experiments[experimentId]
		if !ok {
			return apierr.NotFound()
		}

		history, err := dbExperiment.History(ctx, experimentId)
		if err != nil {
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		registry.Record(
			ctx, domain.ExperimentStatusesViewed, experiment.Snapshot(), actorOf(c), nil,
		)

		return c.JSON(http.StatusOK, slices.Map(history, apiexp.ComposeStatusRecord))
	}
}

// NewExperimentStatusHandler appends to the experiment's ledger.
//
// Re-appending the terminal status the experiment already has is not an
// error; the existing latest record comes back.
func NewExperimentStatusHandler(
	dbExperiment kdbexp.ExperimentInterface,
	registry *event.Registry,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()
		experimentId := c.Param("experimentId")

		req := apiexp.NewStatus{}
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("format error", err)
		}
		status, err := domain.AsLifeStatus(req.Status)
		if err != nil {
			return apierr.BadRequest(`"status" should be a lifecycle status`, err)
		}

		record, err := dbExperiment.NewStatus(ctx, experimentId, status, req.Message)
		if err != nil {
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			if errors.Is(err, domain.ErrTerminalStateViolation) ||
				errors.Is(err, domain.ErrInvalidStatusChanging) {
				return apierr.Conflict("prohibited status changing", apierr.WithError(err))
			}
			return apierr.InternalServerError(err)
		}

		experiments, err := dbExperiment.Get(ctx, []string{experimentId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		if experiment, ok := experiments[experimentId]; ok {
			registry.Record(
				ctx, domain.ExperimentNewStatus, experiment.Snapshot(), actorOf(c),
				map[string]any{"status": record.Status.String()},
			)
		}

		return c.JSON(http.StatusOK, apiexp.ComposeStatusRecord(record))
	}
}

func GetJobStatusesHandler(
	dbJob kdbjob.JobInterface,
	registry *event.Registry,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()
		jobId := c.Param("jobId")

		jobs, err := dbJob.Get(ctx, []string{jobId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		job, ok := jobs[jobId]
		if !ok {
			return apierr.NotFound()
		}

		history, err := dbJob.History(ctx, jobId)
		if err != nil {
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		registry.Record(
			ctx, domain.ExperimentJobStatusesViewed, job.Snapshot(), actorOf(c), nil,
		)

		return c.JSON(http.StatusOK, slices.Map(history, apiexp.ComposeStatusRecord))
	}
}

func NewJobStatusHandler(
	dbJob kdbjob.JobInterface,
	registry *event.Registry,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()
		jobId := c.Param("jobId")

		req := apiexp.NewStatus{}
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("format error", err)
		}
		status, err := domain.AsLifeStatus(req.Status)
		if err != nil {
			return apierr.BadRequest(`"status" should be a lifecycle status`, err)
		}

		record, err := dbJob.NewStatus(ctx, jobId, status, req.Message)
		if err != nil {
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			if errors.Is(err, domain.ErrTerminalStateViolation) ||
				errors.Is(err, domain.ErrInvalidStatusChanging) {
				return apierr.Conflict("prohibited status changing", apierr.WithError(err))
			}
			return apierr.InternalServerError(err)
		}

		jobs, err := dbJob.Get(ctx, []string{jobId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		if job, ok := jobs[jobId]; ok {
			registry.Record(
				ctx, domain.ExperimentJobNewStatus, job.Snapshot(), actorOf(c),
				map[string]any{"status": record.Status.String()},
			)
		}

		return c.JSON(http.StatusOK, apiexp.ComposeStatusRecord(record))
	}
}
