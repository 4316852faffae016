// Package commerce describes the storefront state handed to the assistant.
package commerce

import (
	"context"
	"time"
)

// CartItem is one product the visitor added to the cart.
type CartItem struct {
	ProductID string  `json:"productId,omitempty"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price,omitempty"`
}

// Order is a submitted print request the visitor can ask about.
type Order struct {
	Reference   string    `json:"reference"`
	ProductType string    `json:"productType"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Snapshot is the visitor's commerce state at decision time.
type Snapshot struct {
	Cart           []CartItem `json:"cart,omitempty"`
	CartTotal      float64    `json:"cartTotal"`
	ViewedProducts []string   `json:"viewedProducts,omitempty"`
	Orders         []Order    `json:"orders,omitempty"`
}

// Empty reports whether the snapshot carries anything worth sharing.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Cart) == 0 && len(s.ViewedProducts) == 0 && len(s.Orders) == 0)
}

// Provider produces commerce snapshots.
type Provider interface {
	Snapshot(ctx context.Context, userID string) (*Snapshot, error)
}
