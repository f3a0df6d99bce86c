package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierr "github.com/expfab/expfab/pkg/api/types/errors"
	apiexp "github.com/expfab/expfab/pkg/api/types/experiments"
	"github.com/expfab/expfab/pkg/domain"
	kdbexp "github.com/expfab/expfab/pkg/domain/experiment/db"
	"github.com/expfab/expfab/pkg/domain/scope"
	"github.com/expfab/expfab/pkg/utils/slices"
)

// GrantScopeHandler issues an ephemeral scoped credential for the calling
// user on an experiment. An empty scope in the request falls back to the
// default worker scope.
func GrantScopeHandler(
	authorizer *scope.Authorizer,
	dbExperiment kdbexp.ExperimentInterface,
	tokenTTL time.Duration,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()

		actor := actorOf(c)
		if actor.Id == "" {
			return apierr.BadRequest(
				`"`+HeaderUserId+`" header is required to grant scope`, nil,
			)
		}

		req := apiexp.ScopeGrantRequest{}
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("format error", err)
		}
		if req.ExperimentId == "" {
			return apierr.BadRequest(`"experimentId" is required`, nil)
		}

		experiments, err := dbExperiment.Get(ctx, []string{req.ExperimentId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		if _, ok := experiments[req.ExperimentId]; !ok {
			return apierr.NotFound()
		}

		capabilities := slices.Map(req.Scope, func(s string) domain.Capability {
			return domain.Capability(s)
		})
		if len(capabilities) == 0 {
			capabilities = domain.DefaultExperimentScope()
		}

		token, err := authorizer.GrantScope(
			ctx, actor.Id, domain.ModelExperiment, req.ExperimentId,
			capabilities, tokenTTL,
		)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusCreated, apiexp.ScopeToken{Token: token})
	}
}

// ExchangeScopeTokenHandler trades an ephemeral scope token for the
// bearer's durable credential. Every denial is the same forbidden answer.
func ExchangeScopeTokenHandler(authorizer *scope.Authorizer) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()

		req := apiexp.ScopeExchange{}
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("format error", err)
		}
		if req.Token == "" {
			return apierr.BadRequest(`"token" is required`, nil)
		}

		token, err := authorizer.Exchange(ctx, req.Token)
		if err != nil {
			if errors.Is(err, domain.ErrForbidden) {
				return apierr.Forbidden(err)
			}
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, apiexp.ComposeDurableToken(token))
	}
}
