package document

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/biopulse/biopulse/internal/domain/account"
	"github.com/biopulse/biopulse/internal/domain/profile"
	"github.com/biopulse/biopulse/internal/platform/blobstore"
	"github.com/biopulse/biopulse/pkg/pagination"
)

// ProfileDirectory is the slice of the profile service the handlers
// need to verify that a requested profile belongs to the caller.
type ProfileDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
}

type Handler struct {
	docs     Repository
	readings ReadingRepository
	profiles ProfileDirectory
	signer   *blobstore.URLSigner
}

func NewHandler(docs Repository, readings ReadingRepository, profiles ProfileDirectory, signer *blobstore.URLSigner) *Handler {
	return &Handler{docs: docs, readings: readings, profiles: profiles, signer: signer}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/documents", h.List)
	api.GET("/documents/:id", h.Get)
	api.GET("/documents/:id/download", h.DownloadURL)
	api.GET("/documents/:id/readings", h.Readings)
	api.GET("/profiles/:id/readings", h.History)
}

// List returns the caller's documents, newest first. With a
// profile_id query parameter the listing is narrowed to one profile.
func (h *Handler) List(c echo.Context) error {
	acct := account.FromContext(c)
	if acct == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown account")
	}
	pg := pagination.FromContext(c)

	if profileID := c.QueryParam("profile_id"); profileID != "" {
		pid, err := uuid.Parse(profileID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid profile_id")
		}
		if err := h.ownedProfile(c, pid); err != nil {
			return err
		}
		items, total, err := h.docs.ListByProfile(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}

	items, total, err := h.docs.ListByAccount(c.Request().Context(), acct.ID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	doc, err := h.owned(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// DownloadURL issues a short-lived signed link to the original file.
func (h *Handler) DownloadURL(c echo.Context) error {
	doc, err := h.owned(c)
	if err != nil {
		return err
	}
	if doc.StoragePath == "" {
		return echo.NewHTTPError(http.StatusNotFound, "file not stored")
	}
	url, err := h.signer.SignedURL(doc.StoragePath)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

func (h *Handler) Readings(c echo.Context) error {
	doc, err := h.owned(c)
	if err != nil {
		return err
	}
	items, err := h.readings.ListByDocument(c.Request().Context(), doc.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// History returns a profile's readings for one biomarker, oldest
// first, for trend charts.
func (h *Handler) History(c echo.Context) error {
	profileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	biomarkerID, err := uuid.Parse(c.QueryParam("biomarker_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "biomarker_id is required")
	}
	if err := h.ownedProfile(c, profileID); err != nil {
		return err
	}
	items, err := h.readings.ListByProfileBiomarker(c.Request().Context(), profileID, biomarkerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// ownedProfile rejects with 404 unless the profile exists and
// belongs to the caller's account.
func (h *Handler) ownedProfile(c echo.Context, profileID uuid.UUID) error {
	prof, err := h.profiles.Get(c.Request().Context(), profileID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	if acct := account.FromContext(c); acct == nil || prof.AccountID != acct.ID {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	return nil
}

func (h *Handler) owned(c echo.Context) (*Document, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doc, err := h.docs.GetByID(c.Request().Context(), id)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	if acct := account.FromContext(c); acct == nil || doc.AccountID != acct.ID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	return doc, nil
}
