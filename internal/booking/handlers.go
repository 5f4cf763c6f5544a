package booking

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/workhub-dev/workhub/internal/httpx"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) Get(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.svc.Get(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

func (h *Handlers) List(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bs, err := h.svc.List(c.Request().Context(), userID, httpx.PageFromQuery(c))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bs})
}

func (h *Handlers) RequestStart(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.svc.RequestStart(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

func (h *Handlers) DenyStart(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.svc.DenyStart(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

func (h *Handlers) RequestFinish(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.svc.RequestFinish(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

func (h *Handlers) DenyFinish(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.svc.DenyFinish(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

type DisputeRequest struct {
	ReasonID string `json:"reason_id"`
	Note     string `json:"note"`
}

func (h *Handlers) Dispute(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(DisputeRequest)
	if err := c.Bind(req); err != nil || req.ReasonID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason_id is required"})
	}
	b, err := h.svc.Dispute(c.Request().Context(), c.Param("id"), userID, req.ReasonID, req.Note)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}
