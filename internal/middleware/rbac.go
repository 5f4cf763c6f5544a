package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAccountType ensures the requester's account type is one of the
// allowed kinds. Usage: route(..., RequireAccountType("client")).
func RequireAccountType(types ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			at, _ := c.Get("account_type").(string)
			if at == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account type missing"})
			}
			for _, t := range types {
				if at == t {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
		}
	}
}
