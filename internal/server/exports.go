package server

import (
	"net/http"

	"github.com/damshique/admin-gateway/internal/export"
	"github.com/damshique/admin-gateway/internal/filter"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExport streams an xlsx download. The invoice export honors the same
// filter query parameters as the list endpoint, so "export what I see" works;
// the other kinds dump the full snapshot.
func (s *Server) handleExport(c *gin.Context) {
	kind := c.Param("kind")

	var (
		workbook *excelize.File
		err      error
	)
	switch kind {
	case "invoices":
		invoices := filter.Apply(s.Registry.Invoices.Snapshot(), parseFilterState(c), filter.InvoiceFields)
		workbook, err = s.Exports.Invoices(invoices)
	case "merchants":
		workbook, err = s.Exports.Merchants(s.Registry.Merchants.Snapshot())
	case "employees":
		workbook, err = s.Exports.Employees(s.Registry.Users.Snapshot())
	case "audit-logs":
		workbook, err = s.Exports.AuditLogs(s.Registry.AuditLogs.Snapshot())
	case "notifications":
		workbook, err = s.Exports.Notifications(s.Registry.Notifications.Snapshot())
	default:
		c.JSON(http.StatusNotFound, gin.H{"detail": "Unknown export kind"})
		return
	}
	if err != nil {
		s.Logger.Error("Export build failed", zap.String("kind", kind), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to build export"})
		return
	}

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(kind)+`"`)
	if err := workbook.Write(c.Writer); err != nil {
		s.Logger.Error("Export write failed", zap.String("kind", kind), zap.Error(err))
	}
}
