package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierr "github.com/expfab/expfab/pkg/api/types/errors"
	apiexp "github.com/expfab/expfab/pkg/api/types/experiments"
	"github.com/expfab/expfab/pkg/domain"
	"github.com/expfab/expfab/pkg/domain/command"
	"github.com/expfab/expfab/pkg/domain/event"
	kdbexp "github.com/expfab/expfab/pkg/domain/experiment/db"
	kdbmetric "github.com/expfab/expfab/pkg/domain/metric/db"
	"github.com/expfab/expfab/pkg/utils/slices"
)

func GetExperimentMetricsHandler(
	dbExperiment kdbexp.ExperimentInterface,
	dbMetric kdbmetric.MetricInterface,
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

		metrics, err := dbMetric.ListByExperiment(ctx, experimentId)
		if err != nil {
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		registry.Record(
			ctx, domain.ExperimentMetricsViewed, experiment.Snapshot(), actorOf(c), nil,
		)

		return c.JSON(http.StatusOK, slices.Map(metrics, apiexp.ComposeMetric))
	}
}

// PostExperimentMetricsHandler ingests submitted metrics.
//
// The body shape picks the path: a single object is persisted right away
// and the stored row is returned; a list is handed to the worker fleet as
// a set_metrics command and accepted without waiting.
func PostExperimentMetricsHandler(
	dbMetric kdbmetric.MetricInterface,
	dispatcher *command.Dispatcher,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()
		experimentId := c.Param("experimentId")

		payload := apiexp.MetricsPayload{}
		if err := c.Bind(&payload); err != nil {
			return apierr.BadRequest("format error", err)
		}

		if payload.Single != nil {
			if len(payload.Single.Values) == 0 {
				return apierr.BadRequest(`"values" is required`, nil)
			}
			metric, err := dbMetric.New(ctx, experimentId, asMetricRecord(*payload.Single))
			if err != nil {
				if errors.Is(err, domain.ErrMissing) {
					return apierr.NotFound()
				}
				return apierr.InternalServerError(err)
			}
			return c.JSON(http.StatusCreated, apiexp.ComposeMetric(metric))
		}

		if len(payload.List) == 0 {
			return apierr.BadRequest("no metric records are given", nil)
		}
		records := slices.Map(payload.List, asMetricRecord)
		if err := dispatcher.DispatchSetMetrics(ctx, experimentId, records); err != nil {
			return apierr.ServiceUnavailable("the command queue is not available", err)
		}

		c.Response().WriteHeader(http.StatusAccepted)
		return nil
	}
}

func asMetricRecord(v apiexp.MetricValues) domain.MetricRecord {
	var createdAt *time.Time
	if v.CreatedAt != nil {
		t := v.CreatedAt.Time()
		createdAt = &t
	}
	return domain.MetricRecord{Values: v.Values, CreatedAt: createdAt}
}
