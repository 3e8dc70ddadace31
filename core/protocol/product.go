package protocol

// Product is a recommendation returned by the remote API. Products are never
// mutated locally.
type Product struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Price           float64  `json:"price"`
	DiscountedPrice float64  `json:"discounted_price"`
	URL             string   `json:"url"`
	Image           string   `json:"image"`
	Description     string   `json:"description"`
	Brand           string   `json:"brand,omitempty"`
	Category        string   `json:"category,omitempty"`
	Score           *float64 `json:"score,omitempty"`
	Rank            *int     `json:"rank,omitempty"`
}

// HasDiscount reports whether the discounted price is active: set and
// strictly below the list price.
func (p Product) HasDiscount() bool {
	return p.DiscountedPrice > 0 && p.DiscountedPrice < p.Price
}

// EffectivePrice returns the price a buyer pays.
func (p Product) EffectivePrice() float64 {
	if p.HasDiscount() {
		return p.DiscountedPrice
	}
	return p.Price
}
