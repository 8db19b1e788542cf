package records

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/deptcare/deptcare/internal/patient"
	"github.com/deptcare/deptcare/internal/platform/auth"
	"github.com/deptcare/deptcare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts clinical-entry routes under the patients group.
func (h *Handler) RegisterRoutes(patients *echo.Group, api *echo.Group) {
	patients.POST("/:uhid/records", h.AddMedicalRecord)
	patients.GET("/:uhid/records", h.ListMedicalRecords)
	patients.POST("/:uhid/prescriptions", h.AddPrescription)
	patients.GET("/:uhid/prescriptions", h.ListPrescriptions)
	api.POST("/risk/retinopathy", h.AssessRisk)
}

func editorID(c echo.Context) (int64, error) {
	uid := auth.UserIDFromContext(c.Request().Context())
	id, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "no user identity")
	}
	return id, nil
}

func (h *Handler) AddMedicalRecord(c echo.Context) error {
	editor, err := editorID(c)
	if err != nil {
		return err
	}

	var in MedicalRecordInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec, err := h.svc.AddMedicalRecord(c.Request().Context(), editor, c.Param("uhid"), in)
	if err != nil {
		return recordHTTPError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListMedicalRecords(c echo.Context) error {
	page := pagination.FromContext(c)

	records, total, err := h.svc.ListMedicalRecords(c.Request().Context(), c.Param("uhid"), page.Limit, page.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list medical records")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(records, total, page.Limit, page.Offset))
}

func (h *Handler) AddPrescription(c echo.Context) error {
	editor, err := editorID(c)
	if err != nil {
		return err
	}

	var in PrescriptionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	presc, err := h.svc.AddPrescription(c.Request().Context(), editor, c.Param("uhid"), in)
	if err != nil {
		return recordHTTPError(err)
	}
	return c.JSON(http.StatusCreated, presc)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	page := pagination.FromContext(c)

	prescriptions, total, err := h.svc.ListPrescriptions(c.Request().Context(), c.Param("uhid"), page.Limit, page.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list prescriptions")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(prescriptions, total, page.Limit, page.Offset))
}

// AssessRisk scores a retinopathy risk profile. A uhid in the request ties
// the outcome to that patient's audit trail.
func (h *Handler) AssessRisk(c echo.Context) error {
	editor, err := editorID(c)
	if err != nil {
		return err
	}

	var in struct {
		RiskInput
		UHID string `json:"uhid"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.AssessRisk(c.Request().Context(), editor, in.UHID, in.RiskInput)
	if err != nil {
		return recordHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func recordHTTPError(err error) error {
	switch {
	case errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
