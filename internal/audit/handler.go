package audit

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
)

// Handler exposes the audit trail to administrators: a paged listing plus
// CSV and XLSX exports.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/export", h.Export)
}

func (h *Handler) List(c echo.Context) error {
	filter, err := filterFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entries, total, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list audit entries")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
	})
}

func (h *Handler) Export(c echo.Context) error {
	filter, err := filterFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// Exports are not paged.
	filter.Limit = 1 << 20
	filter.Offset = 0

	entries, _, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to export audit entries")
	}

	switch c.QueryParam("format") {
	case "", "csv":
		return writeCSV(c, entries)
	case "xlsx":
		return writeXLSX(c, entries)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "format must be csv or xlsx")
	}
}

var exportHeader = []string{"edited_at", "uhid", "editor_id", "field_name", "old_value", "new_value"}

func exportRow(e *Entry) []string {
	old := ""
	if e.OldValue != nil {
		old = *e.OldValue
	}
	return []string{
		e.EditedAt.Format(time.RFC3339),
		e.UHID,
		strconv.FormatInt(e.EditorID, 10),
		e.FieldName,
		old,
		e.NewValue,
	}
}

func writeCSV(c echo.Context, entries []*Entry) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="audit_trail.csv"`)
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response().Writer)
	if err := w.Write(exportHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.Write(exportRow(e)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(c echo.Context, entries []*Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Audit Trail"
	f.SetSheetName("Sheet1", sheet)

	header := make([]interface{}, len(exportHeader))
	for i, col := range exportHeader {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastCell, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
		f.SetCellStyle(sheet, "A1", lastCell, bold)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := exportRow(e)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="audit_trail.xlsx"`)
	c.Response().WriteHeader(http.StatusOK)
	return f.Write(c.Response().Writer)
}

func filterFromQuery(c echo.Context) (ListFilter, error) {
	filter := ListFilter{UHID: c.QueryParam("uhid"), Limit: 100}

	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, fmt.Errorf("from must be YYYY-MM-DD")
		}
		filter.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, fmt.Errorf("to must be YYYY-MM-DD")
		}
		// Inclusive of the whole end day.
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return filter, fmt.Errorf("limit must be a positive integer")
		}
		filter.Limit = n
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}
