package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apierr "github.com/expfab/expfab/pkg/api/types/errors"
	apiexp "github.com/expfab/expfab/pkg/api/types/experiments"
	"github.com/expfab/expfab/pkg/domain"
	"github.com/expfab/expfab/pkg/domain/command"
	"github.com/expfab/expfab/pkg/domain/derive"
	"github.com/expfab/expfab/pkg/domain/event"
	kdbexp "github.com/expfab/expfab/pkg/domain/experiment/db"
	"github.com/expfab/expfab/pkg/domain/experiment/ttl"
	kdbproj "github.com/expfab/expfab/pkg/domain/project/db"
	"github.com/expfab/expfab/pkg/domain/spec"
	"github.com/expfab/expfab/pkg/utils/rfctime"
	kstrings "github.com/expfab/expfab/pkg/utils/strings"
)

func CreateExperimentHandler(
	dbExperiment kdbexp.ExperimentInterface,
	dbProject kdbproj.ProjectInterface,
	registry *event.Registry,
	ttlStore ttl.Store,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()

		actor := actorOf(c)
		if actor.Id == "" {
			return apierr.BadRequest(
				`"`+HeaderUserId+`" header is required to create an experiment`,
				nil,
			)
		}

		req := apiexp.ExperimentSpec{}
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("format error", err)
		}
		if req.ProjectId == "" {
			return apierr.BadRequest(`"projectId" is required`, nil)
		}
		if req.TTL != nil && *req.TTL <= 0 {
			return apierr.BadRequest(`"ttl" should be a positive number of seconds`, nil)
		}

		parsed, err := spec.New(req.Specification)
		if err != nil {
			return apierr.BadRequest("specification is invalid", err)
		}

		if req.GroupId != nil {
			groups, err := dbProject.GetGroups(ctx, []string{*req.GroupId})
			if err != nil {
				return apierr.InternalServerError(err)
			}
			group, ok := groups[*req.GroupId]
			if !ok || group.ProjectId != req.ProjectId {
				return apierr.BadRequest(
					`"groupId" should name a group of the project`, nil,
				)
			}
		}

		experimentId, err := dbExperiment.New(ctx, domain.NewExperiment{
			ProjectId:     req.ProjectId,
			GroupId:       req.GroupId,
			UserId:        actor.Id,
			Description:   req.Description,
			CodeReference: req.CodeReference,
			Specification: parsed.Parsed(),
			Declarations:  parsed.Declarations(),
		})
		if err != nil {
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		if req.TTL != nil {
			d := time.Duration(*req.TTL) * time.Second
			if err := ttlStore.Set(ctx, experimentId, d); err != nil {
				return apierr.InternalServerError(err)
			}
		}

		experiments, err := dbExperiment.Get(ctx, []string{experimentId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		experiment, ok := experiments[experimentId]
		if !ok {
			return apierr.NotFound()
		}

		registry.Record(ctx, domain.ExperimentCreated, experiment.Snapshot(), actor, nil)

		return c.JSON(http.StatusCreated, apiexp.ComposeDetail(experiment))
	}
}

func FindExperimentHandler(
	dbExperiment kdbexp.ExperimentInterface,
	dbProject kdbproj.ProjectInterface,
	registry *event.Registry,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		query, err := func(c echo.Context) (domain.ExperimentFindQuery, error) {
			result := domain.ExperimentFindQuery{
				ProjectId: kstrings.SplitIfNotEmpty(c.QueryParam("project"), ","),
				GroupId:   kstrings.SplitIfNotEmpty(c.QueryParam("group"), ","),
			}

			if p := c.QueryParam("independent"); p != "" {
				independent, err := strconv.ParseBool(p)
				if err != nil {
					return domain.ExperimentFindQuery{}, apierr.BadRequest(
						`"independent" should be a boolean`, err,
					)
				}
				result.Independent = independent
			}
			if result.Independent && 0 < len(result.GroupId) {
				return domain.ExperimentFindQuery{}, apierr.BadRequest(
					`"independent" and "group" are exclusive`, nil,
				)
			}

			for _, p := range kstrings.SplitIfNotEmpty(c.QueryParam("status"), ",") {
				s, err := domain.AsLifeStatus(p)
				if err != nil {
					return domain.ExperimentFindQuery{}, apierr.BadRequest(
						`"status" should be a comma-separated list of lifecycle statuses`,
						err,
					)
				}
				result.Status = append(result.Status, s)
			}

			since := c.QueryParam("since")
			if since != "" {
				t, err := rfctime.ParseRFC3339DateTime(since)
				if err != nil {
					return domain.ExperimentFindQuery{}, apierr.BadRequest(
						`"since" should be a RFC3339 date-time format`, err,
					)
				}
				_t := t.Time()
				result.UpdatedSince = &_t
			}

			duration := c.QueryParam("duration")
			if duration != "" {
				if result.UpdatedSince == nil {
					return domain.ExperimentFindQuery{}, apierr.BadRequest(
						`"duration" should be used with "since"`, nil,
					)
				}
				d, err := time.ParseDuration(duration)
				if err != nil {
					return domain.ExperimentFindQuery{}, apierr.BadRequest(
						`"duration" should be a Go duration format`, err,
					)
				}
				_t := result.UpdatedSince.Add(d)
				result.UpdatedUntil = &_t
			}

			return result, nil
		}(c)
		if err != nil {
			return err
		}

		ctx := c.Request().Context()

		// filters name entities, so unknown ids are an error, not an empty hit.
		projects := map[string]domain.ProjectBody{}
		if 0 < len(query.ProjectId) {
			projects, err = dbProject.Get(ctx, query.ProjectId)
			if err != nil {
				return apierr.InternalServerError(err)
			}
			for _, projectId := range query.ProjectId {
				if _, ok := projects[projectId]; !ok {
					return apierr.NotFound()
				}
			}
		}
		groups := map[string]domain.GroupBody{}
		if 0 < len(query.GroupId) {
			groups, err = dbProject.GetGroups(ctx, query.GroupId)
			if err != nil {
				return apierr.InternalServerError(err)
			}
			for _, groupId := range query.GroupId {
				if _, ok := groups[groupId]; !ok {
					return apierr.NotFound()
				}
			}
		}

		experimentIds, err := dbExperiment.Find(ctx, query)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		experiments, err := dbExperiment.Get(ctx, experimentIds)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		actor := actorOf(c)
		for _, projectId := range query.ProjectId {
			registry.Record(
				ctx, domain.ProjectExperimentsViewed,
				projects[projectId].Snapshot(), actor, nil,
			)
		}
		for _, groupId := range query.GroupId {
			registry.Record(
				ctx, domain.GroupExperimentsViewed,
				groups[groupId].Snapshot(), actor, nil,
			)
		}

		resp := make([]apiexp.Detail, 0, len(experiments))
		for _, experimentId := range experimentIds {
			resp = append(resp, apiexp.ComposeDetail(experiments[experimentId]))
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func GetExperimentHandler(
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

		registry.Record(ctx, domain.ExperimentViewed, experiment.Snapshot(), actorOf(c), nil)

		return c.JSON(http.StatusOK, apiexp.ComposeDetail(experiment))
	}
}

func GetCodeReferenceHandler(
	dbExperiment kdbexp.ExperimentInterface,
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

		return c.JSON(http.StatusOK, apiexp.ComposeCodeReference(experiment))
	}
}

func UpdateExperimentHandler(
	dbExperiment kdbexp.ExperimentInterface,
	registry *event.Registry,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()
		experimentId := c.Param("experimentId")

		req := apiexp.ExperimentPatch{}
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("format error", err)
		}

		if err := dbExperiment.Update(ctx, experimentId, domain.ExperimentPatch{
			Description:   req.Description,
			CodeReference: req.CodeReference,
			Declarations:  req.Declarations,
		}); err != nil {
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		experiments, err := dbExperiment.Get(ctx, []string{experimentId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		experiment, ok := experiments[experimentId]
		if !ok {
			return apierr.NotFound()
		}

		registry.Record(ctx, domain.ExperimentUpdated, experiment.Snapshot(), actorOf(c), nil)

		return c.JSON(http.StatusOK, apiexp.ComposeDetail(experiment))
	}
}

func DeleteExperimentHandler(
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

		if err := dbExperiment.Delete(ctx, experimentId); err != nil {
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		registry.Record(
			ctx, domain.ExperimentDeletedTriggered, experiment.Snapshot(), actorOf(c), nil,
		)

		c.Response().WriteHeader(http.StatusNoContent)
		return nil
	}
}

// CloneExperimentHandler derives a new experiment from the one in the path.
// The derivation engine records the triggered event against the source.
func CloneExperimentHandler(
	engine *derive.Engine,
	dbExperiment kdbexp.ExperimentInterface,
	ttlStore ttl.Store,
	strategy domain.CloneStrategy,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()
		sourceId := c.Param("experimentId")

		actor := actorOf(c)
		if actor.Id == "" {
			return apierr.BadRequest(
				`"`+HeaderUserId+`" header is required to derive an experiment`,
				nil,
			)
		}

		req := apiexp.CloneSpec{}
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("format error", err)
		}
		if req.TTL != nil && *req.TTL <= 0 {
			return apierr.BadRequest(`"ttl" should be a positive number of seconds`, nil)
		}

		experimentId, err := engine.Derive(ctx, sourceId, derive.Request{
			Strategy:             strategy,
			Override:             req.Override,
			PreserveDeclarations: req.PreserveDeclarations,
			UpdateCodeReference:  req.UpdateCodeReference,
			Description:          req.Description,
			GroupId:              req.GroupId,
		}, actor)
		if err != nil {
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			if errors.Is(err, spec.ErrInvalidSpec) {
				return apierr.BadRequest("override does not merge into a valid specification", err)
			}
			if errors.Is(err, derive.ErrNoCodeRefResolver) {
				return apierr.BadRequest(`"updateCodeReference" is not supported on this server`, err)
			}
			return apierr.InternalServerError(err)
		}

		if req.TTL != nil {
			d := time.Duration(*req.TTL) * time.Second
			if err := ttlStore.Set(ctx, experimentId, d); err != nil {
				return apierr.InternalServerError(err)
			}
		}

		experiments, err := dbExperiment.Get(ctx, []string{experimentId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		experiment, ok := experiments[experimentId]
		if !ok {
			return apierr.NotFound()
		}

		return c.JSON(http.StatusCreated, apiexp.ComposeDetail(experiment))
	}
}

func StopExperimentHandler(
	dbExperiment kdbexp.ExperimentInterface,
	registry *event.Registry,
	dispatcher *command.Dispatcher,
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

		registry.Record(
			ctx, domain.ExperimentStoppedTriggered, experiment.Snapshot(), actorOf(c), nil,
		)

		if err := dispatcher.DispatchStop(ctx, experiment, true); err != nil {
			return apierr.ServiceUnavailable("the command queue is not available", err)
		}

		return c.JSON(http.StatusAccepted, apiexp.ComposeDetail(experiment))
	}
}
