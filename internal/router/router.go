package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/handler"
)

// RegisterRoutes wires the health check and the GraphQL endpoint on the
// provided Echo instance. The GraphQL route carries the given middleware
// chain (rate limiting, auth context); the health check stays bare so
// probes are never throttled.
func RegisterRoutes(e *echo.Echo, gql *handler.GraphQLHandler, mws ...echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)
	e.POST("/api/v1", gql.Serve, mws...)
}
