package orders

import (
	"encoding/csv"
	"io"
	"time"

	"mesa-system/internal/money"
)

var csvHeader = []string{"id", "created_at", "location", "employee", "total", "payment_method", "status"}

// WriteOrdersCSV renders a listing as CSV with a header row. Totals are in
// major units and timestamps are RFC 3339 UTC.
func WriteOrdersCSV(w io.Writer, items []OrderListItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, i := range items {
		method := ""
		if i.PaymentMethod != nil {
			method = string(*i.PaymentMethod)
		}
		record := []string{
			i.ID,
			i.CreatedAt.UTC().Format(time.RFC3339),
			i.LocationName,
			i.EmployeeName,
			money.Format(i.TotalCents),
			method,
			string(i.Status),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
