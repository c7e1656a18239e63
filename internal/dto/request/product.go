package request

import "marketplace-api/internal/data/entity"

// ProductRequest is used for both create and update. Category and
// condition are checked against the entity enums by the service.
type ProductRequest struct {
	Title       string          `json:"title" validate:"required,max=100"`
	Description string          `json:"description" validate:"required,max=1000"`
	Price       float64         `json:"price" validate:"gte=0"`
	Category    string          `json:"category" validate:"required"`
	Condition   string          `json:"condition" validate:"required"`
	Images      []string        `json:"images" validate:"required,min=1,max=10,dive,required,max=500"`
	Location    entity.Location `json:"location"`
	Tags        []string        `json:"tags" validate:"max=20,dive,required,max=30"`
	IsAvailable *bool           `json:"is_available,omitempty"`
}

type ProductListRequest struct {
	PaginatedRequest
	Category  string   `json:"category"`
	Condition string   `json:"condition"`
	MinPrice  *float64 `json:"min_price" validate:"omitempty,gte=0"`
	MaxPrice  *float64 `json:"max_price" validate:"omitempty,gte=0"`
	Search    string   `json:"search" validate:"max=100"`
	SortBy    string   `json:"sort_by" validate:"omitempty,oneof=createdAt price title views"`
	SortOrder string   `json:"sort_order" validate:"omitempty,oneof=asc desc"`
}

type UploadURLRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}
