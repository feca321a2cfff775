package profile

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/biopulse/biopulse/internal/domain/account"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/profiles", h.List)
	api.POST("/profiles", h.Create)
	api.GET("/profiles/:id", h.Get)
	api.PUT("/profiles/:id", h.Rename)
	api.DELETE("/profiles/:id", h.Delete)
}

// List returns the account's profiles, primary first, then oldest
// first.
func (h *Handler) List(c echo.Context) error {
	acct := account.FromContext(c)
	profiles, err := h.svc.List(c.Request().Context(), acct.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, profiles)
}

// Create adds a profile explicitly, enforcing the plan's profile cap.
// Profiles created implicitly during ingestion bypass the cap so a
// parsed report is never lost to it.
func (h *Handler) Create(c echo.Context) error {
	acct := account.FromContext(c)
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	existing, err := h.svc.List(c.Request().Context(), acct.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if max := acct.Plan.Limits().MaxProfiles; max >= 0 && len(existing) >= max {
		return echo.NewHTTPError(http.StatusPaymentRequired, "profile limit reached")
	}

	p, err := h.svc.Create(c.Request().Context(), acct.ID, req.Name)
	if err != nil {
		if errors.Is(err, ErrNameTooShort) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	p, err := h.owned(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Rename(c echo.Context) error {
	p, err := h.owned(c)
	if err != nil {
		return err
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Rename(c.Request().Context(), p, req.Name); err != nil {
		if errors.Is(err, ErrNameTooShort) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	p, err := h.owned(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), p.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// owned loads the profile from the path and checks it belongs to the
// caller.
func (h *Handler) owned(c echo.Context) (*Profile, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	if acct := account.FromContext(c); acct == nil || p.AccountID != acct.ID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	return p, nil
}
