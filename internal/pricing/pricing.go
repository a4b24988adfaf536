package pricing

import (
	"errors"

	"PhoneStore/internal/models"
	"PhoneStore/internal/money"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Service struct {
	Currency   string
	CheckStock bool
}

type Line struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type QuoteLine struct {
	Product    *models.Product
	Quantity   int64
	UnitMinor  int64
	TotalMinor int64
}

type Quote struct {
	Lines      []QuoteLine
	TotalMinor int64
	Currency   string
}

func (q Quote) Total() decimal.Decimal {
	return money.FromMinor(q.TotalMinor)
}

// Quote prices a cart from catalog prices. Lines for the same product are
// merged, keeping the order in which products first appear.
func (s Service) Quote(lines []Line, catalog map[string]*models.Product) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, ErrEmptyCart
	}

	var ids []string
	qty := make(map[string]int64, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return Quote{}, ErrInvalidQuantity
		}
		if _, ok := qty[l.ProductID]; !ok {
			ids = append(ids, l.ProductID)
		}
		qty[l.ProductID] += l.Quantity
	}

	q := Quote{Currency: s.Currency}
	for _, id := range ids {
		p, ok := catalog[id]
		if !ok {
			return Quote{}, ErrUnknownProduct
		}
		n := qty[id]
		if s.CheckStock && p.Stock < n {
			return Quote{}, ErrInsufficientStock
		}
		line := QuoteLine{
			Product:    p,
			Quantity:   n,
			UnitMinor:  p.PriceMinor,
			TotalMinor: p.PriceMinor * n,
		}
		q.Lines = append(q.Lines, line)
		q.TotalMinor += line.TotalMinor
	}
	return q, nil
}

// ProductIDs lists the distinct products referenced by lines.
func ProductIDs(lines []Line) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		out = append(out, l.ProductID)
	}
	return out
}
