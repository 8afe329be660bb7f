package model

import "time"

// FoodItem is a catalog entry. Ledger lines refer to it by name.
type FoodItem struct {
	Name           string    `json:"food_name"`
	Category       string    `json:"category"`
	Unit           string    `json:"unit"`
	Description    string    `json:"description,omitempty"`
	ExpirationDate time.Time `json:"expiration_date"`
	AddedOn        time.Time `json:"added_on"`
}

// Units a food item can be counted in.
const (
	UnitKilograms = "kg"
	UnitGrams     = "grams"
	UnitLiters    = "liters"
	UnitMillis    = "ml"
	UnitPieces    = "pcs"
	UnitPacks     = "packs"
)

// Units lists the accepted unit vocabulary.
var Units = []string{UnitKilograms, UnitGrams, UnitLiters, UnitMillis, UnitPieces, UnitPacks}

// FoodCategories lists the accepted food categories.
var FoodCategories = []string{
	"Vegetables", "Fruits", "Dairy", "Meat", "Canned Goods",
	"Grains", "Beverages", "Snacks", "Packed Food", "Others",
}

// Validate checks the catalog vocabulary.
func (f FoodItem) Validate() error {
	if f.Name == "" {
		return InvalidInputf("food_name required")
	}
	if !contains(Units, f.Unit) {
		return InvalidInputf("unit must be one of %v", Units)
	}
	if !contains(FoodCategories, f.Category) {
		return InvalidInputf("category must be one of %v", FoodCategories)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
