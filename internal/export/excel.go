// Package export renders record snapshots into xlsx workbooks, the download
// format the dashboard's export buttons produced. Invoice exports honor the
// caller's current filter state; the other exports dump the full snapshot.
package export

import (
	"fmt"
	"time"

	"github.com/damshique/admin-gateway/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Builder generates export workbooks.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates an export builder.
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// Filename returns a dated download name for an export kind.
func Filename(kind string) string {
	return fmt.Sprintf("damshique_%s_%s.xlsx", kind, time.Now().Format("20060102"))
}

// Invoices builds an invoice workbook with a totals row.
func (b *Builder) Invoices(invoices []models.Invoice) (*excelize.File, error) {
	headers := []string{"Invoice ID", "Date", "Vendor", "Amount", "Currency", "Status", "Category", "Submitted By"}
	rows := make([][]any, 0, len(invoices))
	var total float64
	for _, inv := range invoices {
		rows = append(rows, []any{
			inv.ID,
			formatDate(inv.InvoiceDate),
			inv.VendorName,
			inv.TotalAmount.Float64(),
			inv.Currency,
			models.NormalizeStatus(inv.Status),
			models.NormalizeCategory(inv.Category),
			inv.UserName,
		})
		total += inv.TotalAmount.Float64()
	}
	rows = append(rows, []any{"", "", "Total", total, "", "", "", ""})

	return b.build("Invoices", headers, rows)
}

// Merchants builds a vendor aggregate workbook.
func (b *Builder) Merchants(merchants []models.Merchant) (*excelize.File, error) {
	headers := []string{"Merchant", "Total Spend", "Invoices", "Last Interaction"}
	rows := make([][]any, 0, len(merchants))
	for _, m := range merchants {
		rows = append(rows, []any{
			m.Name,
			m.TotalSpend.Float64(),
			m.InvoiceCount,
			formatDate(m.LastInteraction),
		})
	}
	return b.build("Merchants", headers, rows)
}

// Employees builds a system user workbook.
func (b *Builder) Employees(users []models.User) (*excelize.File, error) {
	headers := []string{"Phone", "Name", "Role", "Approved", "Created"}
	rows := make([][]any, 0, len(users))
	for _, u := range users {
		rows = append(rows, []any{
			u.Phone,
			u.Name,
			u.Role,
			u.IsApproved,
			formatDate(u.CreatedAt),
		})
	}
	return b.build("Employees", headers, rows)
}

// AuditLogs builds an audit trail workbook.
func (b *Builder) AuditLogs(logs []models.AuditLog) (*excelize.File, error) {
	headers := []string{"Time", "Actor", "Action", "Entity", "Entity ID", "Detail"}
	rows := make([][]any, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []any{
			formatDate(l.CreatedAt),
			l.ActorName,
			l.Action,
			l.EntityType,
			l.EntityID,
			l.Detail,
		})
	}
	return b.build("Audit Logs", headers, rows)
}

// Notifications builds a notifications workbook.
func (b *Builder) Notifications(notifications []models.Notification) (*excelize.File, error) {
	headers := []string{"Time", "Type", "Message"}
	rows := make([][]any, 0, len(notifications))
	for _, n := range notifications {
		rows = append(rows, []any{
			formatDate(n.CreatedAt),
			n.Type,
			n.Message,
		})
	}
	return b.build("Notifications", headers, rows)
}

func (b *Builder) build(sheet string, headers []string, rows [][]any) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to style header: %w", err)
		}
	}

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
			}
		}
	}

	b.logger.Info("Export workbook built",
		zap.String("sheet", sheet),
		zap.Int("rows", len(rows)))
	return f, nil
}

func formatDate(ts models.Timestamp) string {
	if !ts.Valid {
		return ""
	}
	return ts.Format("2006-01-02")
}
