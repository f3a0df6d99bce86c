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
)

func FindJobHandler(
	dbExperiment kdbexp.ExperimentInterface,
	dbJob kdbjob.JobInterface,
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

		jobIds, err := dbJob.FindByExperiment(ctx, experimentId)
		if err != nil {
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}
		jobs, err := dbJob.Get(ctx, jobIds)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		registry.Record(
			ctx, domain.ExperimentJobsViewed, experiment.Snapshot(), actorOf(c), nil,
		)

		resp := make([]apiexp.JobDetail, 0, len(jobs))
		for _, jobId := range jobIds {
			resp = append(resp, apiexp.ComposeJobDetail(jobs[jobId]))
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func CreateJobHandler(dbJob kdbjob.JobInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()
		experimentId := c.Param("experimentId")

		req := apiexp.NewJob{}
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("format error", err)
		}
		if req.Role == "" {
			return apierr.BadRequest(`"role" is required`, nil)
		}

		jobId, err := dbJob.New(ctx, domain.NewExperimentJob{
			ExperimentId: experimentId,
			Role:         req.Role,
			Definition:   req.Definition,
		})
		if err != nil {
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		jobs, err := dbJob.Get(ctx, []string{jobId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		job, ok := jobs[jobId]
		if !ok {
			return apierr.NotFound()
		}

		return c.JSON(http.StatusCreated, apiexp.ComposeJobDetail(job))
	}
}

func GetJobHandler(
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

		registry.Record(ctx, domain.ExperimentJobViewed, job.Snapshot(), actorOf(c), nil)

		return c.JSON(http.StatusOK, apiexp.ComposeJobDetail(job))
	}
}
