package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/workhub-dev/workhub/internal/store"
)

// Error maps a domain failure to the transport response. Unknown errors are
// infrastructure failures: logged and surfaced as a generic 500 without a
// domain kind.
func Error(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
	case errors.Is(err, store.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid state for this transition"})
	case errors.Is(err, store.ErrJobNotOpen):
		return c.JSON(http.StatusConflict, echo.Map{"error": "job is not open to quote"})
	case errors.Is(err, store.ErrPendingQuotation):
		return c.JSON(http.StatusConflict, echo.Map{"error": "you already have a pending quotation for this job"})
	case errors.Is(err, store.ErrInsufficientCredit):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "insufficient credit balance"})
	case errors.Is(err, store.ErrInsufficientFunds):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "insufficient balance"})
	case errors.Is(err, store.ErrPromotionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "promotion not found"})
	case errors.Is(err, store.ErrPromotionUsed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "promotion already in use"})
	case errors.Is(err, store.ErrEmailTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}
	slog.Error("request failed", "path", c.Path(), "err", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// UserID pulls the authenticated user id set by the JWT middleware.
func UserID(c echo.Context) (string, bool) {
	id, ok := c.Get("user_id").(string)
	return id, ok && id != ""
}

// PageFromQuery reads limit/offset query params, leaving zero values for the
// store defaults when absent or malformed.
func PageFromQuery(c echo.Context) store.Page {
	var p store.Page
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		p.Offset = v
	}
	return p
}
