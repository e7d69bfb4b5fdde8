package catalog

import "github.com/shopspring/decimal"

// DefaultSeed is the starter catalog loaded when no external source is
// configured.
func DefaultSeed() []Product {
	return []Product{
		{
			Name:        "Wireless Bluetooth Headphones",
			Description: "High-quality wireless headphones with noise cancellation",
			Price:       decimal.RequireFromString("99.99"),
			Category:    "Electronics",
			Stock:       50,
		},
		{
			Name:        "Organic Cotton T-Shirt",
			Description: "Comfortable and sustainable cotton t-shirt",
			Price:       decimal.RequireFromString("29.99"),
			Category:    "Clothing",
			Stock:       100,
		},
		{
			Name:        "Smartphone Case",
			Description: "Protective case for smartphones with wireless charging support",
			Price:       decimal.RequireFromString("19.99"),
			Category:    "Electronics",
			Stock:       75,
		},
		{
			Name:        "Coffee Mug",
			Description: "Ceramic coffee mug with heat retention",
			Price:       decimal.RequireFromString("12.99"),
			Category:    "Home & Kitchen",
			Stock:       200,
		},
		{
			Name:        "Running Shoes",
			Description: "Lightweight running shoes with excellent cushioning",
			Price:       decimal.RequireFromString("89.99"),
			Category:    "Footwear",
			Stock:       30,
		},
	}
}
