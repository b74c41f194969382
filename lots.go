package journal

import (
	"slices"
	"time"
)

// Lot is a buy fill of an instrument, possibly merged with other fills of
// the same order on the same day.
type Lot struct {
	OrderID   string    `json:"orderId"`
	UnitPrice Money     `json:"unitPrice"`
	Quantity  Quantity  `json:"quantity"`
	TotalCost Money     `json:"totalCost"` // Quantity × UnitPrice, summed over merged fills
	When      time.Time `json:"when"`
}

// Fill is the part of a sell matched against the holdings of one day.
type Fill struct {
	OrderID   string    `json:"orderId"`
	UnitPrice Money     `json:"unitPrice"` // sell price
	Quantity  Quantity  `json:"quantity"`  // quantity consumed on that day
	Proceeds  Money     `json:"proceeds"`  // Quantity × UnitPrice
	When      time.Time `json:"when"`
}

func newLot(tx Transaction) Lot {
	return Lot{
		OrderID:   tx.OrderID,
		UnitPrice: tx.FillPrice,
		Quantity:  tx.FillQuantity,
		TotalCost: tx.Cost(),
		When:      tx.OccurredAt,
	}
}

// merge adds a partial fill of the same order to the lot.
func (l Lot) merge(tx Transaction) Lot {
	l.Quantity = l.Quantity.Add(tx.FillQuantity)
	l.TotalCost = l.TotalCost.Add(tx.Cost())
	if !l.Quantity.IsZero() {
		l.UnitPrice = l.TotalCost.Div(l.Quantity)
	}
	return l
}

func newFill(tx Transaction, q Quantity) Fill {
	return Fill{
		OrderID:   tx.OrderID,
		UnitPrice: tx.FillPrice,
		Quantity:  q,
		Proceeds:  tx.FillPrice.Mul(q),
		When:      tx.OccurredAt,
	}
}

type lots []Lot

// sorted returns a copy of l in ascending When order.
func (l lots) sorted() lots {
	s := slices.Clone(l)
	slices.SortStableFunc(s, func(a, b Lot) int { return a.When.Compare(b.When) })
	return s
}

// quantity returns the total quantity of the lots.
func (l lots) quantity() Quantity {
	var q Quantity
	for _, lot := range l {
		q = q.Add(lot.Quantity)
	}
	return q
}

// fifoAllocate splits the cost of l between the quantity sold, taken from the
// oldest lots first, and the remainder.
func (l lots) fifoAllocate(quantityToSell Quantity) (sold, remaining Money) {
	for _, currentLot := range l.sorted() {
		switch {
		case !quantityToSell.IsPositive():
			remaining = remaining.Add(currentLot.TotalCost)
		case currentLot.Quantity.GreaterThan(quantityToSell):
			// Partial sale from this lot
			costOfSoldPortion := currentLot.TotalCost.Mul(quantityToSell).Div(currentLot.Quantity)
			sold = sold.Add(costOfSoldPortion)
			remaining = remaining.Add(currentLot.TotalCost.Sub(costOfSoldPortion))
			quantityToSell = Quantity{}
		default:
			// Full sale of this lot
			sold = sold.Add(currentLot.TotalCost)
			quantityToSell = quantityToSell.Sub(currentLot.Quantity)
		}
	}
	return sold, remaining
}

type fills []Fill

func (f fills) sorted() fills {
	s := slices.Clone(f)
	slices.SortStableFunc(s, func(a, b Fill) int { return a.When.Compare(b.When) })
	return s
}

func (f fills) quantity() Quantity {
	var q Quantity
	for _, fill := range f {
		q = q.Add(fill.Quantity)
	}
	return q
}

// proceeds returns Σ Quantity × UnitPrice.
func (f fills) proceeds() Money {
	var m Money
	for _, fill := range f.sorted() {
		m = m.Add(fill.UnitPrice.Mul(fill.Quantity))
	}
	return m
}
