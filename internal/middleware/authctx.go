package middleware // reusable HTTP middleware for the API route

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/graph"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
)

// AuthContext resolves the calling principal from the Authorization header
// before the GraphQL executor runs, and attaches the result to the request
// context for every operation regardless of whether it requires
// authentication.
//
// A missing, malformed or mis-signed token degrades to an anonymous context;
// the request itself proceeds. A validly signed but expired access token is
// the one case that aborts the request, so clients learn to refresh instead
// of being silently downgraded to anonymous. A token whose account no longer
// exists also resolves to anonymous.
func AuthContext(codec *utils.TokenCodec, store graph.UserStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac := graph.AuthContext{}

			header := c.Request().Header.Get("Authorization")
			if header != "" {
				claims, err := codec.Verify(utils.AccessToken, header)
				switch {
				case err == nil:
					user, lookupErr := store.FindByEmail(c.Request().Context(), claims.Email)
					if lookupErr == nil {
						ac.User = &graph.AuthUser{ID: user.ID}
					} else if !errors.Is(lookupErr, repository.ErrUserNotFound) {
						return lookupErr
					}
				case errors.Is(err, utils.ErrTokenExpired):
					return c.JSON(http.StatusOK, graph.Response{
						Errors: []graph.ResponseError{{
							Message:    "accessToken_expired",
							Extensions: map[string]interface{}{"code": graph.CodeUnauthenticated},
						}},
					})
				}
			}

			ctx := graph.WithAuthContext(c.Request().Context(), ac)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
