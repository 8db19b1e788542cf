package analytics

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/dashboard", h.Dashboard)
}

func (h *Handler) Dashboard(c echo.Context) error {
	dash, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build dashboard")
	}
	return c.JSON(http.StatusOK, dash)
}
