package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/expfab/expfab/pkg/domain"
)

// headers the authenticating frontend sets for the acting user.
const (
	HeaderUserId   = "X-User-Id"
	HeaderUserName = "X-User-Name"
)

func actorOf(c echo.Context) domain.Actor {
	return domain.Actor{
		Id:   c.Request().Header.Get(HeaderUserId),
		Name: c.Request().Header.Get(HeaderUserName),
	}
}
