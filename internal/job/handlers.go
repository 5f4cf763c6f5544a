package job

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/workhub-dev/workhub/internal/httpx"
	"github.com/workhub-dev/workhub/internal/store"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

func (h *Handlers) CreateTask(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(CreateTaskRequest)
	if err := c.Bind(req); err != nil || req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	t, err := h.svc.Create(c.Request().Context(), userID, req.Title, req.Description, req.Price)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"task": t})
}

func (h *Handlers) GetTask(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	t, err := h.svc.Task(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"task": t})
}

func (h *Handlers) ListTasks(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ts, err := h.svc.List(c.Request().Context(), userID, httpx.PageFromQuery(c))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tasks": ts})
}

func (h *Handlers) DeleteTask(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.svc.Delete(c.Request().Context(), c.Param("id"), userID); err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "task deleted"})
}

func (h *Handlers) UpdateBaseInfo(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(CreateTaskRequest)
	if err := c.Bind(req); err != nil || req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	t, err := h.svc.UpdateBaseInfo(c.Request().Context(), c.Param("id"), userID, req.Title, req.Description, req.Price)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"task": t})
}

type UpdateCategoryRequest struct {
	CategoryID       string `json:"category_id"`
	SubCategoryID    string `json:"sub_category_id"`
	SubSubCategoryID string `json:"sub_sub_category_id"`
	ServiceID        string `json:"service_id"`
}

func (h *Handlers) UpdateCategory(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(UpdateCategoryRequest)
	if err := c.Bind(req); err != nil || req.CategoryID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category_id is required"})
	}
	t, err := h.svc.UpdateCategory(c.Request().Context(), c.Param("id"), userID,
		req.CategoryID, req.SubCategoryID, req.SubSubCategoryID, req.ServiceID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"task": t})
}

type UpdateAddressRequest struct {
	AddressID string `json:"address_id"`
}

func (h *Handlers) UpdateAddress(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(UpdateAddressRequest)
	if err := c.Bind(req); err != nil || req.AddressID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "address_id is required"})
	}
	t, err := h.svc.UpdateAddress(c.Request().Context(), c.Param("id"), userID, req.AddressID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"task": t})
}

type UpdateImagesRequest struct {
	Images []string `json:"images"`
}

func (h *Handlers) UpdateImages(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(UpdateImagesRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	t, err := h.svc.UpdateImages(c.Request().Context(), c.Param("id"), userID, req.Images)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"task": t})
}

type UpdateStartDateRequest struct {
	StartDate time.Time `json:"start_date"`
}

func (h *Handlers) UpdateStartDate(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(UpdateStartDateRequest)
	if err := c.Bind(req); err != nil || req.StartDate.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date is required"})
	}
	t, err := h.svc.UpdateStartDate(c.Request().Context(), c.Param("id"), userID, req.StartDate)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"task": t})
}

type UpdateProvidersRequest struct {
	ProviderIDs []string `json:"provider_ids"`
}

func (h *Handlers) UpdateProviders(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(UpdateProvidersRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	t, err := h.svc.UpdateProviders(c.Request().Context(), c.Param("id"), userID, req.ProviderIDs)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"task": t})
}

type UpdateAnswersRequest struct {
	Answers map[string]string `json:"answers"`
}

func (h *Handlers) UpdateAnswers(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(UpdateAnswersRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	t, err := h.svc.UpdateAnswers(c.Request().Context(), c.Param("id"), userID, req.Answers)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"task": t})
}

func (h *Handlers) Publish(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	j, err := h.svc.Publish(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"job": j})
}

func (h *Handlers) GetJob(c echo.Context) error {
	j, err := h.svc.Job(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"job": j})
}

// OpenJobs serves the provider feed, filtered by the category query params.
func (h *Handlers) OpenJobs(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	f := store.JobFilter{
		CategoryID:    c.QueryParam("category_id"),
		SubCategoryID: c.QueryParam("sub_category_id"),
		ServiceID:     c.QueryParam("service_id"),
		ProviderID:    userID,
		Page:          httpx.PageFromQuery(c),
	}
	js, err := h.svc.OpenJobs(c.Request().Context(), f)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"jobs": js})
}

func (h *Handlers) ClientJobs(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	js, err := h.svc.ClientJobs(c.Request().Context(), userID, httpx.PageFromQuery(c))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"jobs": js})
}

type CancelJobRequest struct {
	ReasonID string `json:"reason_id"`
	Note     string `json:"note"`
}

func (h *Handlers) CancelJob(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(CancelJobRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	res, err := h.svc.Cancel(c.Request().Context(), c.Param("id"), userID, req.ReasonID, req.Note)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"job": res.Job, "booking": res.Booking})
}
