package fakestore_client

import (
	"context"
	"encoding/json"
	"fmt"
)

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`
}

// ListProducts returns the full catalog.
func (c *FakeStoreClient) ListProducts(ctx context.Context) ([]Product, error) {
	body, err := c.Get(ctx, ProductsEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return products, nil
}
