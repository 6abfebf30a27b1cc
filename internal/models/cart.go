package models

// CartItem is one line of the cart ledger
type CartItem struct {
	MenuItemID  int     `json:"menuItemId"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Quantity    int     `json:"quantity"`
}

// NewCartItem creates a cart line for one unit of item
func NewCartItem(item MenuItem) CartItem {
	return CartItem{
		MenuItemID:  item.ID,
		Name:        item.Name,
		Price:       item.Price,
		Description: item.Description,
		Image:       item.Image,
		Quantity:    1,
	}
}
