package export

import (
	"fmt"
	"io"
	"time"

	"roomsync/internal/models"

	"github.com/xuri/excelize/v2"
)

var columns = []string{
	"ID", "Room", "Title", "Requester", "Start", "End",
	"Status", "Attendees", "External event",
}

// WriteReservationsXLSX renders the reservation list as a spreadsheet for
// the admin export endpoint.
func WriteReservationsXLSX(w io.Writer, reservations []*models.Reservation, from, to time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Reservations"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		from.Format("2006-01-02"), to.Format("2006-01-02")))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, name)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, r := range reservations {
		row := i + 3
		values := []interface{}{
			r.ID,
			r.RoomName,
			r.Title,
			fmt.Sprintf("%s <%s>", r.RequesterName, r.RequesterEmail),
			r.StartTime.Format(time.RFC3339),
			r.EndTime.Format(time.RFC3339),
			r.Status,
			joinEmails(r),
			r.ExternalEventID,
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "I", 24)

	lastCol, _ := excelize.CoordinatesToCellName(len(columns), 1)
	_ = f.MergeCell(sheetName, "A1", lastCol)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}
	return nil
}

func joinEmails(r *models.Reservation) string {
	out := ""
	for i, email := range r.AttendeeEmails {
		if i > 0 {
			out += ", "
		}
		out += email
	}
	return out
}
