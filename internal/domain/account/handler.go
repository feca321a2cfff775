package account

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// contextKey is where the resolved account lives in the echo context.
const contextKey = "account"

// Middleware resolves the caller's account from the messaging-
// platform user id (form value, query param or X-External-ID header),
// creating it on first contact, and stores it in the request context.
func Middleware(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.FormValue("external_id")
			if raw == "" {
				raw = c.QueryParam("external_id")
			}
			if raw == "" {
				raw = c.Request().Header.Get("X-External-ID")
			}
			externalID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || externalID == 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "external_id is required")
			}

			var username, displayName *string
			if v := c.FormValue("username"); v != "" {
				username = &v
			} else if v := c.Request().Header.Get("X-Username"); v != "" {
				username = &v
			}
			if v := c.FormValue("display_name"); v != "" {
				displayName = &v
			}

			acct, err := svc.GetOrCreate(c.Request().Context(), externalID, username, displayName)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			Attach(c, acct)
			return next(c)
		}
	}
}

// Attach stores the account in the request context.
func Attach(c echo.Context, a *Account) {
	c.Set(contextKey, a)
}

// FromContext returns the account resolved by Middleware, or nil.
func FromContext(c echo.Context) *Account {
	a, _ := c.Get(contextKey).(*Account)
	return a
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/account", h.Get)
	api.PUT("/account/locale", h.SetLocale)
}

// Get reports the caller's account together with the plan limits and
// remaining monthly uploads.
func (h *Handler) Get(c echo.Context) error {
	acct := FromContext(c)
	remaining, err := h.svc.CheckUploadQuota(c.Request().Context(), acct)
	if err != nil && !errors.Is(err, ErrUploadLimit) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{
		"account":           acct,
		"limits":            acct.Plan.Limits(),
		"remaining_uploads": remaining,
	})
}

var supportedLocales = map[string]bool{"ru": true, "en": true, "uk": true}

func (h *Handler) SetLocale(c echo.Context) error {
	var req struct {
		Locale string `json:"locale"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !supportedLocales[req.Locale] {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported locale")
	}
	acct := FromContext(c)
	if err := h.svc.SetLocale(c.Request().Context(), acct, req.Locale); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, acct)
}
