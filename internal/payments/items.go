package payments

import (
	"strings"

	"PhoneStore/internal/models"
	"PhoneStore/internal/money"
)

const placeholderItemName = "Product"

// MapItems converts processor line items into order items. Absent input maps
// to an empty, non-nil slice.
func MapItems(lines []models.LineItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(lines))
	for _, li := range lines {
		qty := li.Quantity
		if qty < 1 {
			qty = 1
		}
		name := strings.TrimSpace(li.Description)
		if name == "" {
			name = placeholderItemName
		}
		item := models.OrderItem{
			Name:     name,
			Price:    money.UnitPrice(li.AmountTotal, qty),
			Quantity: qty,
		}
		if li.Product != nil {
			item.ID = li.Product.ID
			item.Description = li.Product.Description
			item.Image = li.Product.Image
		}
		out = append(out, item)
	}
	return out
}
