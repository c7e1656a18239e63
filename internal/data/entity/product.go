package entity

import "github.com/google/uuid"

type ProductCategory string

const (
	CategoryElectronics ProductCategory = "Electronics"
	CategoryFashion     ProductCategory = "Fashion"
	CategoryHomeGarden  ProductCategory = "Home & Garden"
	CategorySports      ProductCategory = "Sports & Recreation"
	CategoryBooksMedia  ProductCategory = "Books & Media"
	CategoryAutomotive  ProductCategory = "Automotive"
	CategoryHealth      ProductCategory = "Health & Beauty"
	CategoryToysGames   ProductCategory = "Toys & Games"
	CategoryOther       ProductCategory = "Other"
)

type ProductCondition string

const (
	ConditionNew     ProductCondition = "New"
	ConditionLikeNew ProductCondition = "Like New"
	ConditionGood    ProductCondition = "Good"
	ConditionFair    ProductCondition = "Fair"
	ConditionPoor    ProductCondition = "Poor"
)

type Location struct {
	City      string   `json:"city,omitempty"`
	Country   string   `json:"country,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Seller is the public slice of the owning account joined onto a product.
type Seller struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone *string
}

type Product struct {
	Base
	Title       string           `db:"title"`
	Description string           `db:"description"`
	Price       float64          `db:"price"`
	Category    ProductCategory  `db:"category"`
	Condition   ProductCondition `db:"condition"`
	Images      []string         `db:"images"`
	SellerID    uuid.UUID        `db:"seller_id"`
	Location    Location         `db:"location"`
	IsAvailable bool             `db:"is_available"`
	Views       int              `db:"views"`
	Tags        []string         `db:"tags"`

	Seller *Seller `db:"-"`
}

var (
	categories = map[ProductCategory]struct{}{
		CategoryElectronics: {}, CategoryFashion: {}, CategoryHomeGarden: {},
		CategorySports: {}, CategoryBooksMedia: {}, CategoryAutomotive: {},
		CategoryHealth: {}, CategoryToysGames: {}, CategoryOther: {},
	}
	conditions = map[ProductCondition]struct{}{
		ConditionNew: {}, ConditionLikeNew: {}, ConditionGood: {}, ConditionFair: {}, ConditionPoor: {},
	}
)

func (c ProductCategory) Valid() bool {
	_, ok := categories[c]
	return ok
}

func (c ProductCondition) Valid() bool {
	_, ok := conditions[c]
	return ok
}
