package models

import (
	"fmt"
	"strings"
)

// MenuItem represents a dish on the menu
type MenuItem struct {
	ID          int      `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Category    string   `json:"category" yaml:"category"`
	Price       float64  `json:"price" yaml:"price"`
	Image       string   `json:"image" yaml:"image"`
	Allergens   []string `json:"allergens" yaml:"allergens"`
	Dietary     []string `json:"dietary" yaml:"dietary"`
	IsSpecialty bool     `json:"isSpecialty" yaml:"specialty"`
}

// MenuCategory represents the category of a menu item
type MenuCategory string

const (
	// Menu categories
	MenuCategoryAppetizer MenuCategory = "appetizer"
	MenuCategorySalad     MenuCategory = "salad"
	MenuCategoryEntree    MenuCategory = "entree"
	MenuCategoryDessert   MenuCategory = "dessert"
	MenuCategoryBeverage  MenuCategory = "beverage"
)

// Allergen represents a food allergen
type Allergen string

const (
	// Common allergens
	AllergenMilk      Allergen = "milk"
	AllergenEggs      Allergen = "eggs"
	AllergenFish      Allergen = "fish"
	AllergenShellfish Allergen = "shellfish"
	AllergenTreeNuts  Allergen = "tree_nuts"
	AllergenPeanuts   Allergen = "peanuts"
	AllergenWheat     Allergen = "wheat"
	AllergenSoy       Allergen = "soy"
	AllergenSesame    Allergen = "sesame"
)

// ValidateMenuItem validates a menu item
func ValidateMenuItem(item *MenuItem) error {
	if item.ID <= 0 {
		return fmt.Errorf("menu item id must be positive")
	}
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("menu item %d: name is required", item.ID)
	}
	if item.Price <= 0 {
		return fmt.Errorf("menu item %q: price must be greater than 0", item.Name)
	}
	if item.Category == "" {
		return fmt.Errorf("menu item %q: category is required", item.Name)
	}
	return nil
}

// HasAllergen checks if the item contains a specific allergen
func (mi *MenuItem) HasAllergen(allergen string) bool {
	for _, alg := range mi.Allergens {
		if strings.EqualFold(alg, allergen) {
			return true
		}
	}
	return false
}

// IsDietary reports whether the item carries the given dietary tag
func (mi *MenuItem) IsDietary(tag string) bool {
	for _, d := range mi.Dietary {
		if strings.EqualFold(d, tag) {
			return true
		}
	}
	return false
}

// IsInCategory checks if the item belongs to a specific category
func (mi *MenuItem) IsInCategory(category MenuCategory) bool {
	return strings.EqualFold(mi.Category, string(category))
}
