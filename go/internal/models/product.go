package models

// Product is the item shown to players during a round.
type Product struct {
	ID       int     `json:"id,omitempty"`
	Title    string  `json:"title"`
	Image    string  `json:"image"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
}

// Valid reports whether the product can be used for a round.
func (p Product) Valid() bool {
	return p.Title != "" && p.Price > 0
}
