package notify

import (
	"fmt"
	"strings"

	"mesa-system/internal/money"
)

type SummaryItem struct {
	Name           string
	Quantity       int32
	LineTotalCents int64
}

// OrderSummary is what the business is told about a new online order.
type OrderSummary struct {
	OrderID        string
	OrderNumber    int64
	RestaurantName string
	LocationName   string
	CustomerName   string
	CustomerPhone  string
	Notes          string
	Items          []SummaryItem
	TotalCents     int64
}

func (s OrderSummary) EmailSubject() string {
	return fmt.Sprintf("[%s] Nuevo pedido en línea", s.RestaurantName)
}

func (s OrderSummary) EmailText() string {
	lines := []string{
		fmt.Sprintf("Nuevo pedido en línea #%d", s.OrderNumber),
		"",
		"Restaurante: " + s.RestaurantName,
		"Ubicación: " + s.LocationName,
		"Cliente: " + s.CustomerName,
		"Teléfono: " + s.CustomerPhone,
	}
	if s.Notes != "" {
		lines = append(lines, "Notas: "+s.Notes)
	}
	lines = append(lines, "", "Ítems:")
	for _, i := range s.Items {
		lines = append(lines, fmt.Sprintf("  %dx %s - %s", i.Quantity, i.Name, money.FormatWithCurrency(i.LineTotalCents)))
	}
	lines = append(lines, "", "Total: "+money.FormatWithCurrency(s.TotalCents))
	return strings.Join(lines, "\n")
}

func (s OrderSummary) WhatsAppText() string {
	lines := []string{
		fmt.Sprintf("🛒 *Nuevo pedido #%d*", s.OrderNumber),
		"",
		fmt.Sprintf("📍 %s · %s", s.RestaurantName, s.LocationName),
		"👤 " + s.CustomerName,
		"📞 " + s.CustomerPhone,
	}
	if s.Notes != "" {
		lines = append(lines, "📝 "+s.Notes)
	}
	lines = append(lines, "", "Pedido:")
	for _, i := range s.Items {
		lines = append(lines, fmt.Sprintf("  • %dx %s: %s", i.Quantity, i.Name, money.FormatWithCurrency(i.LineTotalCents)))
	}
	lines = append(lines, "", fmt.Sprintf("*Total: %s*", money.FormatWithCurrency(s.TotalCents)))
	return strings.Join(lines, "\n")
}
