package entity

import "time"

type Category struct {
	ID    string
	Name  string
	Icon  string
	Color string
}

// Product belongs to the catalog; users only hold its ID.
type Product struct {
	ID               string
	Name             string
	ShortDescription string
	Description      string
	Image            string
	Brand            string
	Price            float64
	CategoryID       string
	CountInStock     int
	Rating           float64
	Reviews          int
	IsFeatured       bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
