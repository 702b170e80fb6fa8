package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Product represents a product in the catalog
type Product struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Category     string    `json:"category" db:"category"`
	Subcategory  string    `json:"subcategory" db:"subcategory"`
	MRP          int       `json:"mrp" db:"mrp"`
	SellingPrice int       `json:"selling_price" db:"selling_price"`
	Description  string    `json:"description" db:"description"`
	Image1       string    `json:"image1,omitempty" db:"image1"`
	Image2       string    `json:"image2,omitempty" db:"image2"`
	Image3       string    `json:"image3,omitempty" db:"image3"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// OfferPercentage returns the discount of the selling price against the MRP,
// rounded half to even. Products without an MRP have no offer.
func (p *Product) OfferPercentage() int {
	if p.MRP <= 0 {
		return 0
	}
	discount := float64(p.MRP-p.SellingPrice) / float64(p.MRP) * 100
	return int(math.RoundToEven(discount))
}

// Images returns the non-empty image paths in display order
func (p *Product) Images() []string {
	images := make([]string, 0, 3)
	for _, img := range []string{p.Image1, p.Image2, p.Image3} {
		if img != "" {
			images = append(images, img)
		}
	}
	return images
}

// MarshalJSON adds the derived offer percentage and image list
func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		OfferPercentage int      `json:"offer_percentage"`
		Images          []string `json:"images"`
	}{product(p), p.OfferPercentage(), p.Images()})
}

// CarouselAd represents a promotional banner shown on the homepage
type CarouselAd struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Image     string    `json:"image" db:"image"`
	Link      string    `json:"link" db:"link"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DisplayTitle falls back to a numbered label for untitled ads
func (a *CarouselAd) DisplayTitle() string {
	if a.Title != "" {
		return a.Title
	}
	return "Carousel Ad #" + strconv.FormatInt(a.ID, 10)
}
