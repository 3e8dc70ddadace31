// Package card turns products into display cards: formatted prices, the
// discount comparison, and a plain-text rendering for terminals.
package card

import (
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/shopassist/core/protocol"
)

// FallbackImage replaces a missing product image.
const FallbackImage = "/shopping-assistant-fo5Sg.png"

// strike is U+0336 COMBINING LONG STROKE OVERLAY.
const strike = '\u0336'

// Card is a product prepared for display. OriginalPrice is set only when
// HasDiscount is true; Price is then the discounted price.
type Card struct {
	ID            string
	Title         string
	Price         string
	OriginalPrice string
	HasDiscount   bool
	Description   string
	Brand         string
	URL           string
	Image         string
}

// FormatPrice renders an amount in rupees with two decimals.
func FormatPrice(amount float64) string {
	return fmt.Sprintf("₹%.2f", amount)
}

// Render builds the card for p.
func Render(p protocol.Product) Card {
	c := Card{
		ID:          p.ID,
		Title:       p.Title,
		Price:       FormatPrice(p.Price),
		Description: p.Description,
		Brand:       p.Brand,
		URL:         p.URL,
		Image:       p.Image,
	}
	if strings.TrimSpace(c.Image) == "" {
		c.Image = FallbackImage
	}
	if p.HasDiscount() {
		c.HasDiscount = true
		c.Price = FormatPrice(p.DiscountedPrice)
		c.OriginalPrice = FormatPrice(p.Price)
	}
	return c
}

// String renders the card as a few lines of text.
func (c Card) String() string {
	var b strings.Builder

	b.WriteString(c.Title)
	b.WriteByte('\n')

	b.WriteString("  ")
	b.WriteString(c.Price)
	if c.HasDiscount {
		b.WriteString("  ")
		b.WriteString(Strike(c.OriginalPrice))
	}
	b.WriteByte('\n')

	if c.Description != "" {
		b.WriteString("  ")
		b.WriteString(c.Description)
		b.WriteByte('\n')
	}
	if c.Brand != "" {
		b.WriteString("  Brand: ")
		b.WriteString(c.Brand)
		b.WriteByte('\n')
	}
	if c.URL != "" {
		b.WriteString("  View Product: ")
		b.WriteString(c.URL)
		b.WriteByte('\n')
	}
	return b.String()
}

// Strike overlays a long stroke on every rune of s.
func Strike(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for _, r := range s {
		b.WriteRune(r)
		b.WriteRune(strike)
	}
	return b.String()
}

// Heading titles a product list.
func Heading(n int) string {
	return fmt.Sprintf("Recommended Products (%d)", n)
}

// RenderAll renders the heading followed by one card per product. An empty
// list renders as "".
func RenderAll(products []protocol.Product) string {
	if len(products) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(Heading(len(products)))
	b.WriteByte('\n')
	for _, p := range products {
		b.WriteByte('\n')
		b.WriteString(Render(p).String())
	}
	return b.String()
}
