package handlers

import (
	"time"

	"github.com/oksasatya/go-ddd-shop/internal/domain/entity"
)

// userResponse is the public view of a user; the password hash never leaves the service.
type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsAdmin   bool      `json:"isAdmin"`
	Addresses []string  `json:"addresses"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserResponse(u *entity.User) userResponse {
	addresses := u.AddressIDs
	if addresses == nil {
		addresses = []string{}
	}
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		IsAdmin:   u.IsAdmin,
		Addresses: addresses,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type categoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func toCategoryResponse(c *entity.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color}
}

type productResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ShortDescription string    `json:"shortDescription"`
	Description      string    `json:"description"`
	Image            string    `json:"image"`
	Brand            string    `json:"brand"`
	Price            float64   `json:"price"`
	Category         string    `json:"category"`
	CountInStock     int       `json:"countInStock"`
	Rating           float64   `json:"rating"`
	Reviews          int       `json:"reviews"`
	IsFeatured       bool      `json:"isFeatured"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func toProductResponse(p *entity.Product) productResponse {
	return productResponse{
		ID:               p.ID,
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		Image:            p.Image,
		Brand:            p.Brand,
		Price:            p.Price,
		Category:         p.CategoryID,
		CountInStock:     p.CountInStock,
		Rating:           p.Rating,
		Reviews:          p.Reviews,
		IsFeatured:       p.IsFeatured,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toProductList(ps []entity.Product) productListResponse {
	out := make([]productResponse, 0, len(ps))
	for i := range ps {
		out = append(out, toProductResponse(&ps[i]))
	}
	return productListResponse{Products: out, Count: len(out)}
}

type productListResponse struct {
	Products []productResponse `json:"products"`
	Count    int               `json:"count"`
}

type cartLineResponse struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	AddedAt   time.Time        `json:"addedAt"`
	Product   *productResponse `json:"product"`
}

type cartResponse struct {
	UserID     string             `json:"userId"`
	Items      []cartLineResponse `json:"items"`
	TotalItems int                `json:"totalItems"`
}

func toCartResponse(userID string, lines []entity.ResolvedCartLine) cartResponse {
	res := cartResponse{UserID: userID, Items: make([]cartLineResponse, 0, len(lines))}
	for _, l := range lines {
		item := cartLineResponse{ProductID: l.ProductID, Quantity: l.Quantity, AddedAt: l.AddedAt}
		if l.Product != nil {
			p := toProductResponse(l.Product)
			item.Product = &p
		}
		res.Items = append(res.Items, item)
		res.TotalItems += l.Quantity
	}
	return res
}

type wishlistLineResponse struct {
	ProductID string           `json:"productId"`
	AddedAt   time.Time        `json:"addedAt"`
	Product   *productResponse `json:"product"`
}

type wishlistResponse struct {
	UserID string                 `json:"userId"`
	Items  []wishlistLineResponse `json:"items"`
}

func toWishlistResponse(userID string, lines []entity.ResolvedWishlistLine) wishlistResponse {
	res := wishlistResponse{UserID: userID, Items: make([]wishlistLineResponse, 0, len(lines))}
	for _, l := range lines {
		item := wishlistLineResponse{ProductID: l.ProductID, AddedAt: l.AddedAt}
		if l.Product != nil {
			p := toProductResponse(l.Product)
			item.Product = &p
		}
		res.Items = append(res.Items, item)
	}
	return res
}
