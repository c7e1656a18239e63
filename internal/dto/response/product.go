package response

import (
	"time"

	"marketplace-api/internal/data/entity"
)

type SellerResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

type ProductResponse struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Price       float64                 `json:"price"`
	Category    entity.ProductCategory  `json:"category"`
	Condition   entity.ProductCondition `json:"condition"`
	Images      []string                `json:"images"`
	SellerID    string                  `json:"seller_id"`
	Seller      *SellerResponse         `json:"seller,omitempty"`
	Location    entity.Location         `json:"location"`
	IsAvailable bool                    `json:"is_available"`
	Views       int                     `json:"views"`
	Tags        []string                `json:"tags"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

type UploadURLResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProductToResponse includes the seller phone only when withPhone is set;
// listings show name and email, the detail page adds the phone.
func ProductToResponse(p *entity.Product, withPhone bool) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Condition:   p.Condition,
		Images:      nonNil(p.Images),
		SellerID:    p.SellerID.String(),
		Location:    p.Location,
		IsAvailable: p.IsAvailable,
		Views:       p.Views,
		Tags:        nonNil(p.Tags),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Seller != nil {
		resp.Seller = &SellerResponse{
			ID:    p.Seller.ID.String(),
			Name:  p.Seller.Name,
			Email: p.Seller.Email,
		}
		if withPhone {
			resp.Seller.Phone = p.Seller.Phone
		}
	}
	return resp
}

func ProductsToResponse(products []*entity.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, ProductToResponse(p, false))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
