package quotation

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/workhub-dev/workhub/internal/httpx"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

type SubmitRequest struct {
	JobID        string     `json:"job_id"`
	Budget       int64      `json:"budget"`
	ProposedDate *time.Time `json:"proposed_date"`
	CoverNote    string     `json:"cover_note"`
}

func (h *Handlers) Submit(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(SubmitRequest)
	if err := c.Bind(req); err != nil || req.JobID == "" || req.Budget <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "job_id and a positive budget are required"})
	}
	q, err := h.svc.Submit(c.Request().Context(), userID, req.JobID, req.Budget, req.ProposedDate, req.CoverNote)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"quotation": q})
}

type AcceptRequest struct {
	PromotionID string `json:"promotion_id"`
}

func (h *Handlers) Accept(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(AcceptRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	res, err := h.svc.Accept(c.Request().Context(), userID, c.Param("jobID"), c.Param("id"), req.PromotionID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"quotation": res.Winner,
		"booking":   res.Booking,
		"rejected":  len(res.Rejected),
	})
}

type RejectRequest struct {
	ReasonID string `json:"reason_id"`
	Note     string `json:"note"`
}

func (h *Handlers) Reject(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(RejectRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	q, err := h.svc.Reject(c.Request().Context(), userID, c.Param("jobID"), c.Param("id"), req.ReasonID, req.Note)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"quotation": q})
}

func (h *Handlers) MarkRead(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.svc.MarkRead(c.Request().Context(), userID, c.Param("id")); err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "marked read"})
}

func (h *Handlers) ForJob(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	qs, err := h.svc.ForJob(c.Request().Context(), c.Param("jobID"), userID, httpx.PageFromQuery(c))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"quotations": qs})
}

func (h *Handlers) Mine(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	qs, err := h.svc.Mine(c.Request().Context(), userID, httpx.PageFromQuery(c))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"quotations": qs})
}
