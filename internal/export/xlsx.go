// Package export writes the leads table a user has on screen as a workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"crmdesk/internal/leads"
	"crmdesk/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Leads"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var header = []interface{}{
	"ID", "Name", "Phone", "Email", "Status", "Message",
	"Follow-up Date", "Follow-up Time", "Assigned To", "Created",
}

var colWidths = map[string]float64{
	"A": 8, "B": 24, "C": 16, "D": 28, "E": 16,
	"F": 40, "G": 14, "H": 14, "I": 20, "J": 20,
}

// Filename names the download after the report tag and the time of export.
func Filename(tag string, now time.Time) string {
	if tag == "" {
		tag = "leads"
	}
	return fmt.Sprintf("%s_%s.xlsx", tag, now.Format("20060102_1504"))
}

// WriteLeads writes rows as a single-sheet workbook. Follow-up columns show
// N/A where the lead has no schedule.
func WriteLeads(w io.Writer, rows []models.Lead) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}
	for col, width := range colWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return err
		}
	}
	for i, l := range rows {
		date, clock := leads.FollowUpDisplay(l)
		assignee := ""
		if l.AssignedTo != nil {
			assignee = l.AssignedTo.Name
		}
		if assignee == "" {
			assignee = l.AssignedToName
		}
		values := []interface{}{
			l.ID, l.Name, l.Call, l.Email, leads.DisplayFor(l.Status).Label, l.Message,
			date, clock, assignee, l.CreatedDate,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}
