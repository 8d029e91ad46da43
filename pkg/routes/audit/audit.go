package audit

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/acre/internal/repositories/audit"
	"github.com/Ramsey-B/acre/pkg/models"
)

// Register registers audit routes
func Register(g *echo.Group) {
	g.GET("/runs/:runID", ListRunRecords)
	g.GET("/runs/:runID/counts", GetRunCounts)
}

// ListRunRecords lists the audit records of a reconciliation run. The kind
// query parameter filters to orphan, duplicate or unkeyable.
func ListRunRecords(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("runID")
	kind := models.AuditKind(c.QueryParam("kind"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, repo, err := ectoinject.GetContext[*audit.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	records, err := repo.ListByRun(ctx, runID, kind, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, records)
}

// GetRunCounts reports per-kind audit record counts for a run
func GetRunCounts(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("runID")

	ctx, repo, err := ectoinject.GetContext[*audit.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	counts, err := repo.CountByRun(ctx, runID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, counts)
}
