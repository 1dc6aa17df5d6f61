package calls

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is one of the fixed listing categories
type Category string

const (
	CategoryProperty            Category = "property"
	CategoryTransport           Category = "transport"
	CategoryWork                Category = "work"
	CategoryElectronics         Category = "electronics"
	CategoryBusinessAndServices Category = "business and services"
	CategoryRecreationAndSport  Category = "recreation and sport"
	CategoryFree                Category = "free"
	CategoryTrade               Category = "trade"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryProperty,
	CategoryTransport,
	CategoryWork,
	CategoryElectronics,
	CategoryBusinessAndServices,
	CategoryRecreationAndSport,
	CategoryFree,
	CategoryTrade,
}

// URL-friendly spellings accepted by GET /calls/specific/:category
var categoryAliases = map[string]Category{
	"businessAndServices": CategoryBusinessAndServices,
	"recreationAndSport":  CategoryRecreationAndSport,
}

// ParseCategory resolves a path segment to a category
func ParseCategory(s string) (Category, bool) {
	if c, ok := categoryAliases[s]; ok {
		return c, true
	}
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Priceless categories must always carry a price of exactly 0
func (c Category) Priceless() bool {
	return c == CategoryWork || c == CategoryFree || c == CategoryTrade
}

const MaxImages = 5

// Call is a listing. The same shape is stored canonically in the calls
// collection and embedded as snapshots in users.calls / users.favourites.
type Call struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	Title            string             `bson:"title" json:"title"`
	Description      string             `bson:"description" json:"description"`
	Category         Category           `bson:"category" json:"category"`
	Price            float64            `bson:"price" json:"price"`
	OldPrice         *float64           `bson:"oldPrice,omitempty" json:"oldPrice,omitempty"`
	IsOnSale         bool               `bson:"isOnSale" json:"isOnSale"`
	DiscountPercents *float64           `bson:"discountPercents,omitempty" json:"discountPercents,omitempty"`
	ImageURLs        []string           `bson:"imageUrls" json:"imageUrls"`
	Phone            string             `bson:"phone" json:"phone"`
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
}

// SaleState is the part of a Call the pricing engine reads and writes
type SaleState struct {
	Price            float64
	OldPrice         *float64
	IsOnSale         bool
	DiscountPercents *float64
}

func (c *Call) SaleState() SaleState {
	return SaleState{
		Price:            c.Price,
		OldPrice:         c.OldPrice,
		IsOnSale:         c.IsOnSale,
		DiscountPercents: c.DiscountPercents,
	}
}

func (c *Call) applySale(s SaleState) {
	c.Price = s.Price
	c.OldPrice = s.OldPrice
	c.IsOnSale = s.IsOnSale
	c.DiscountPercents = s.DiscountPercents
}

// CreateCallRequest is the multipart form of POST /calls; images arrive as "file" parts
type CreateCallRequest struct {
	Title       string   `form:"title" json:"title" binding:"required"`
	Description string   `form:"description" json:"description" binding:"required"`
	Category    Category `form:"category" json:"category" binding:"required,category"`
	Price       *float64 `form:"price" json:"price" binding:"required,min=0"`
	Phone       string   `form:"phone" json:"phone" binding:"required,uaphone"`
}

// EditCallRequest carries only the fields being changed
type EditCallRequest struct {
	Title       *string   `form:"title" json:"title" binding:"omitempty"`
	Description *string   `form:"description" json:"description" binding:"omitempty"`
	Category    *Category `form:"category" json:"category" binding:"omitempty,category"`
	Price       *float64  `form:"price" json:"price" binding:"omitempty,min=0"`
	Phone       *string   `form:"phone" json:"phone" binding:"omitempty,uaphone"`
}

// CallURIRequest binds the :callId path parameter
type CallURIRequest struct {
	CallID string `uri:"callId" binding:"required,objectid"`
}

type SearchQuery struct {
	Search string `form:"search" binding:"required"`
}

// CallsResponse wraps a list of snapshots for GET /calls/own and /calls/favourites
type CallsResponse struct {
	Calls []Call `json:"calls"`
}

type FavouritesResponse struct {
	Favourites []Call `json:"favourites"`
}

// NewFavouritesResponse is returned after adding or removing a favourite
type NewFavouritesResponse struct {
	NewFavourites []Call `json:"newFavourites"`
}
