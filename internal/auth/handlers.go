package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/workhub-dev/workhub/internal/httpx"
	"github.com/workhub-dev/workhub/internal/model"
	"github.com/workhub-dev/workhub/internal/store"
)

const tokenTTL = 72 * time.Hour

// Alerter queues the welcome mail after signup.
type Alerter interface {
	Welcome(userID, email, name string) error
}

type Handlers struct {
	Store  store.Store
	Alerts Alerter
	Secret string
	Log    *slog.Logger
}

func NewHandlers(st store.Store, a Alerter, secret string, log *slog.Logger) *Handlers {
	return &Handlers{Store: st, Alerts: a, Secret: secret, Log: log}
}

type SignupRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	AccountType string `json:"account_type"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// Signup creates the account and its wallet, then returns a token. The
// account type is fixed here and never changes afterwards.
func (h *Handlers) Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email and a password of at least 6 characters are required"})
	}
	at := model.AccountType(req.AccountType)
	if at == "" {
		at = model.AccountClient
	}
	if !at.Valid() || at == model.AccountSuperAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "account_type must be client or service_provider"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	u := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashed),
		AccountType:  at,
	}
	if err := h.Store.CreateUser(c.Request().Context(), u); err != nil {
		return httpx.Error(c, err)
	}

	if err := h.Alerts.Welcome(u.ID, u.Email, u.Name); err != nil {
		h.Log.Error("welcome alert", "user_id", u.ID, "err", err)
	}

	signed, err := h.sign(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	return c.JSON(http.StatusCreated, TokenResponse{Token: signed})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	u, err := h.Store.UserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	signed, err := h.sign(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: signed})
}

// Me returns the authenticated user's profile.
func (h *Handlers) Me(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	u, err := h.Store.UserByID(c.Request().Context(), userID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

type PushTokenRequest struct {
	Token string `json:"token"`
}

// SetPushToken stores the device push token for mobile notifications.
func (h *Handlers) SetPushToken(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(PushTokenRequest)
	if err := c.Bind(req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}
	if err := h.Store.SetPushToken(c.Request().Context(), userID, req.Token); err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "push token saved"})
}

func (h *Handlers) sign(u *model.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":      u.ID,
		"account_type": string(u.AccountType),
		"exp":          time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.Secret))
}
