package patient

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/deptcare/deptcare/internal/platform/auth"
	"github.com/deptcare/deptcare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Register)
	g.GET("", h.Search)
	g.GET("/:uhid", h.Get)
	g.PUT("/:uhid", h.Update)
	g.DELETE("/:uhid", h.Remove, auth.RequireRole("admin"))
}

// editorID resolves the acting user from the authenticated identity.
func editorID(c echo.Context) (int64, error) {
	uid := auth.UserIDFromContext(c.Request().Context())
	id, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "no user identity")
	}
	return id, nil
}

func (h *Handler) Register(c echo.Context) error {
	editor, err := editorID(c)
	if err != nil {
		return err
	}

	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p, err := h.svc.Register(c.Request().Context(), editor, in)
	if err != nil {
		return patientHTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	p, err := h.svc.Get(c.Request().Context(), c.Param("uhid"))
	if err != nil {
		return patientHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Search(c echo.Context) error {
	page := pagination.FromContext(c)

	patients, total, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"), page.Limit, page.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to search patients")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, page.Limit, page.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	editor, err := editorID(c)
	if err != nil {
		return err
	}

	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p, err := h.svc.Update(c.Request().Context(), editor, c.Param("uhid"), in)
	if err != nil {
		return patientHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Remove(c echo.Context) error {
	editor, err := editorID(c)
	if err != nil {
		return err
	}

	if err := h.svc.Remove(c.Request().Context(), editor, c.Param("uhid")); err != nil {
		return patientHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func patientHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrDuplicateUHID):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
