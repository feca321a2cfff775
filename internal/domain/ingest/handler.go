package ingest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/biopulse/biopulse/internal/domain/account"
	"github.com/biopulse/biopulse/internal/domain/document"
	"github.com/biopulse/biopulse/internal/domain/profile"
	"github.com/biopulse/biopulse/internal/platform/blobstore"
)

// processTimeout bounds background processing of one upload,
// including the external parse call.
const processTimeout = 5 * time.Minute

type Handler struct {
	svc       *Service
	documents document.Repository
	logger    zerolog.Logger
}

func NewHandler(svc *Service, documents document.Repository, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, documents: documents, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/uploads", h.Upload)
	api.GET("/uploads/:id", h.UploadStatus)
	api.GET("/pending", h.PendingState)
	api.POST("/pending/select", h.SelectProfile)
	api.POST("/pending/new-profile", h.RequestNewProfile)
	api.POST("/pending/name", h.SubmitName)
}

// Upload accepts a multipart lab report, acknowledges with 202 and
// processes it in the background. The caller polls the document id
// for the outcome.
func (h *Handler) Upload(c echo.Context) error {
	acct, err := h.account(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read file")
	}
	defer f.Close()
	data, err := blobstore.ReadUpload(f)
	if err != nil {
		if errors.Is(err, blobstore.ErrTooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read file")
	}
	contentType := fh.Header.Get("Content-Type")

	doc, err := h.svc.Begin(c.Request().Context(), acct, contentType, data)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrUploadLimit):
			return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
		case errors.Is(err, blobstore.ErrTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, blobstore.ErrUnsupportedType):
			return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		h.svc.Process(ctx, acct, doc, data)
	}()

	return c.JSON(http.StatusAccepted, echo.Map{
		"document_id": doc.ID,
		"status":      doc.Status,
	})
}

// UploadStatus reports a document's current state and, once
// processing finished, its outcome.
func (h *Handler) UploadStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doc, err := h.documents.GetByID(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	if acct := account.FromContext(c); acct != nil && doc.AccountID != acct.ID {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	h.svc.SweepPending(c.Request().Context(), doc.AccountID)

	resp := echo.Map{"document": doc}
	if out, ok := h.svc.Outcome(id); ok {
		resp["outcome"] = out
	}
	return c.JSON(http.StatusOK, resp)
}

// PendingState reports whether the account has a disambiguation in
// flight and which stage it is in.
func (h *Handler) PendingState(c echo.Context) error {
	acct, err := h.account(c)
	if err != nil {
		return err
	}
	h.svc.SweepPending(c.Request().Context(), acct.ID)
	stage, ok := h.svc.Pending(acct.ID)
	return c.JSON(http.StatusOK, echo.Map{"pending": ok, "stage": stage})
}

func (h *Handler) SelectProfile(c echo.Context) error {
	acct, err := h.account(c)
	if err != nil {
		return err
	}
	var req struct {
		ProfileID uuid.UUID `json:"profile_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.svc.SelectProfile(c.Request().Context(), acct, req.ProfileID)
	if err != nil {
		return pendingError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) RequestNewProfile(c echo.Context) error {
	acct, err := h.account(c)
	if err != nil {
		return err
	}
	if err := h.svc.RequestNewProfile(c.Request().Context(), acct); err != nil {
		return pendingError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SubmitName(c echo.Context) error {
	acct, err := h.account(c)
	if err != nil {
		return err
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.svc.SubmitName(c.Request().Context(), acct, req.Name)
	if err != nil {
		return pendingError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func pendingError(err error) error {
	switch {
	case errors.Is(err, ErrNoPending):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPendingExpired):
		return echo.NewHTTPError(http.StatusGone, err.Error())
	case errors.Is(err, profile.ErrNameTooShort):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, profile.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// account returns the caller's account resolved by the account
// middleware.
func (h *Handler) account(c echo.Context) (*account.Account, error) {
	acct := account.FromContext(c)
	if acct == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown account")
	}
	return acct, nil
}
