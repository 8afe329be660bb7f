package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLine is the quantity of one food item held by a ledger.
// Quantity is always positive; a line that reaches zero is removed.
type StockLine struct {
	FoodName string          `json:"food_name"`
	Quantity decimal.Decimal `json:"quantity"`

	// Joined from the catalog (not always populated).
	Unit           string     `json:"unit,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// Ledger is the set of stock lines held by one scope.
type Ledger struct {
	Scope       Scope       `json:"scope"`
	Lines       []StockLine `json:"stock"`
	LastUpdated time.Time   `json:"last_updated"`
}

// Line returns the line for a food name, if present.
func (l *Ledger) Line(foodName string) (StockLine, bool) {
	for _, line := range l.Lines {
		if line.FoodName == foodName {
			return line, true
		}
	}
	return StockLine{}, false
}

// LineItem is a requested quantity of a food item.
type LineItem struct {
	FoodName string          `json:"food_name"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Stored quantities carry at most QuantityPlaces decimals and fewer than
// QuantityDigits integer digits.
const (
	QuantityPlaces = 6
	QuantityDigits = 12
)

// CheckQuantity rejects quantities the stock tables cannot hold exactly.
func CheckQuantity(foodName string, q decimal.Decimal) error {
	// Very small exponents are rejected before rescaling them.
	if q.Exponent() < -4*QuantityPlaces || !q.Equal(q.Truncate(QuantityPlaces)) {
		return InvalidInputf("quantity of %q has more than %d decimal places", foodName, QuantityPlaces)
	}
	if int64(q.NumDigits())+int64(q.Exponent()) > QuantityDigits {
		return InvalidInputf("quantity of %q has more than %d digits", foodName, QuantityDigits)
	}
	return nil
}

// ValidateItems checks that a request names at least one item and that every
// quantity is positive and within CheckQuantity's bounds.
func ValidateItems(items []LineItem) error {
	if len(items) == 0 {
		return InvalidInputf("at least one item required")
	}
	for _, it := range items {
		if it.FoodName == "" {
			return InvalidInputf("food_name required")
		}
		if !it.Quantity.IsPositive() {
			return InvalidInputf("quantity of %q must be positive", it.FoodName)
		}
		if err := CheckQuantity(it.FoodName, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// MergeItems sums quantities of repeated food names, keeping first-seen order.
func MergeItems(items []LineItem) []LineItem {
	index := make(map[string]int, len(items))
	merged := make([]LineItem, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.FoodName]; ok {
			merged[i].Quantity = merged[i].Quantity.Add(it.Quantity)
			continue
		}
		index[it.FoodName] = len(merged)
		merged = append(merged, it)
	}
	return merged
}

// StockMovement records a quantity leaving and/or entering a ledger.
type StockMovement struct {
	ID        int64           `json:"id"`
	FoodName  string          `json:"food_name"`
	Quantity  decimal.Decimal `json:"quantity"`
	From      *Scope          `json:"from,omitempty"`
	To        *Scope          `json:"to,omitempty"`
	Reason    string          `json:"reason"`
	Reference string          `json:"reference,omitempty"`
	MovedBy   string          `json:"moved_by,omitempty"`
	MovedAt   time.Time       `json:"moved_at"`
}

// Movement reasons.
const (
	MoveReceive = "receive"
	MoveRemove  = "remove"
	MoveReserve = "reserve"
	MoveToEvent = "to_event"
	MoveToMain  = "to_main"
	MoveConsume = "consume"
)
