package middleware

import (
	"strings"

	"meetsync/core/constants"
	"meetsync/core/controller"
	"meetsync/core/errors"
	"meetsync/core/utils"

	"github.com/labstack/echo/v4"
)

// Middleware bundles the request middlewares shared by all module routers
type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// AuthMiddleware validates the Bearer token and stores the claims in context
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return controller.NewErrorResponse(401, errors.ErrMissingAuthorizationHeader, "Missing Authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return controller.NewErrorResponse(401, errors.ErrInvalidTokenFormat, "Authorization header must be a Bearer token")
			}

			claims, err := utils.ValidateAndParseToken(parts[1])
			if err != nil {
				return controller.NewErrorResponse(401, errors.ErrUnauthorized, "Invalid or expired token")
			}

			if claims.Scope != constants.ScopeTokenAccess {
				return controller.NewErrorResponse(401, errors.ErrUnauthorized, "Token scope is not valid for API access")
			}

			c.Set(constants.ContextTokenData, claims)
			return next(c)
		}
	}
}
