package sales

import (
	"fmt"
	"io"
	"time"

	"github.com/tealeg/xlsx"
)

// WriteXLSX writes a workbook with one row per sale and one row per sold unit.
func WriteXLSX(w io.Writer, all []Sale, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	file := xlsx.NewFile()
	salesSheet, err := file.AddSheet("Sales")
	if err != nil {
		return fmt.Errorf("add sales sheet: %w", err)
	}
	itemsSheet, err := file.AddSheet("Items")
	if err != nil {
		return fmt.Errorf("add items sheet: %w", err)
	}

	addRow(salesSheet, "Ticket", "Date", "Time", "Items", "Discount", "Total")
	addRow(itemsSheet, "Ticket", "Product", "Category", "Price")

	for _, s := range all {
		ticket, ok := s.TicketNumber()
		if !ok {
			ticket = s.ID
		}
		at := s.CreatedAt.In(loc)

		row := salesSheet.AddRow()
		row.AddCell().SetString(ticket)
		row.AddCell().SetString(at.Format("02/01/2006"))
		row.AddCell().SetString(at.Format("15:04:05"))
		row.AddCell().SetInt(len(s.Items))
		row.AddCell().SetFloatWithFormat(s.Discount.InexactFloat64(), "0.00")
		row.AddCell().SetFloatWithFormat(s.Total.InexactFloat64(), "0.00")

		for _, it := range s.Items {
			r := itemsSheet.AddRow()
			r.AddCell().SetString(ticket)
			r.AddCell().SetString(it.Name)
			r.AddCell().SetString(it.Category)
			r.AddCell().SetFloatWithFormat(it.Price.InexactFloat64(), "0.00")
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
