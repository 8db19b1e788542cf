package orders

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/deptcare/deptcare/internal/platform/auth"
)

// Handler exposes the order workflow over HTTP. Every route derives the
// caller's department from the authenticated identity; it is never taken
// from the request body.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/orders", h.SubmitLabOrder)
	g.GET("/orders", h.ListHistory)
	g.GET("/orders/:id/status", h.OrderStatus)
	g.GET("/orders/:id/results", h.AwaitResults)
	g.GET("/orders/:id/artifact", h.DownloadArtifact)
	g.POST("/scans", h.SubmitScan)
}

type submitLabOrderRequest struct {
	SubjectID string   `json:"subject_id"`
	Clinician string   `json:"clinician"`
	Tests     []string `json:"tests"`
	Priority  string   `json:"priority"`
	Specimen  string   `json:"specimen"`
	Notes     string   `json:"notes"`
}

func (h *Handler) SubmitLabOrder(c echo.Context) error {
	dept, err := callerDepartment(c)
	if err != nil {
		return err
	}

	var req submitLabOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	orderID, err := h.svc.SubmitLabOrder(c.Request().Context(), SubmitLabOrderInput{
		Department: dept,
		SubjectID:  req.SubjectID,
		Clinician:  req.Clinician,
		Tests:      req.Tests,
		Priority:   req.Priority,
		Specimen:   req.Specimen,
		Notes:      req.Notes,
	})
	if err != nil {
		return orderHTTPError(err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"order_id": orderID})
}

type submitScanRequest struct {
	SubjectID string `json:"subject_id"`
	ScanType  string `json:"scan_type"`
	BodyPart  string `json:"body_part"`
	Priority  string `json:"priority"`
}

func (h *Handler) SubmitScan(c echo.Context) error {
	dept, err := callerDepartment(c)
	if err != nil {
		return err
	}

	var req submitScanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	filename, err := h.svc.SubmitScan(c.Request().Context(), SubmitScanInput{
		Department: dept,
		SubjectID:  req.SubjectID,
		ScanType:   req.ScanType,
		BodyPart:   req.BodyPart,
		Priority:   req.Priority,
	})
	if err != nil {
		return orderHTTPError(err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"filename": filename})
}

func (h *Handler) ListHistory(c echo.Context) error {
	dept, err := callerDepartment(c)
	if err != nil {
		return err
	}

	// Admins may inspect any department's history, or all of it.
	if auth.RoleFromContext(c.Request().Context()) == "admin" {
		dept = c.QueryParam("department")
	}

	records := h.svc.ListHistory(dept)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"orders": records,
		"total":  len(records),
	})
}

func (h *Handler) OrderStatus(c echo.Context) error {
	dept, err := callerDepartment(c)
	if err != nil {
		return err
	}

	summary, err := h.svc.OrderStatus(c.Request().Context(), dept, c.Param("id"))
	if err != nil {
		return orderHTTPError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) AwaitResults(c echo.Context) error {
	dept, err := callerDepartment(c)
	if err != nil {
		return err
	}

	filename, err := h.svc.AwaitLabResults(c.Request().Context(), dept, c.Param("id"))
	if err != nil {
		return orderHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"filename": filename})
}

func (h *Handler) DownloadArtifact(c echo.Context) error {
	dept, err := callerDepartment(c)
	if err != nil {
		return err
	}

	path, err := h.svc.DownloadArtifact(c.Request().Context(), dept, c.Param("id"))
	if err != nil {
		return orderHTTPError(err)
	}
	return c.Attachment(path, filepath.Base(path))
}

func callerDepartment(c echo.Context) (string, error) {
	dept := auth.DepartmentFromContext(c.Request().Context())
	if dept == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "no department in credentials")
	}
	return dept, nil
}

// orderHTTPError maps workflow errors onto HTTP statuses. Every failure
// carries a human-readable reason.
func orderHTTPError(err error) error {
	var ve *ValidationError
	var re *RemoteError

	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "order belongs to another department")
	case errors.Is(err, ErrArtifactUnavailable):
		return echo.NewHTTPError(http.StatusNotFound, "artifact not yet available")
	case errors.Is(err, ErrPollTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "remote service did not complete in time")
	case errors.As(err, &re):
		return echo.NewHTTPError(http.StatusBadGateway, re.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
