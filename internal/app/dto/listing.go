package dto

import (
	"time"

	domainlisting "kloset/internal/domain/listing"
)

type ListingImage struct {
	URL          string `json:"url"`
	DisplayOrder int    `json:"display_order"`
}

type ListingDetail struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	Size        string `json:"size,omitempty"`
	Color       string `json:"color,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Condition   string `json:"condition"`

	DailyRate MoneyDTO  `json:"daily_rate"`
	Deposit   MoneyDTO  `json:"deposit"`
	SellPrice *MoneyDTO `json:"sell_price,omitempty"`
	MinDays   int       `json:"min_rental_days"`
	MaxDays   int       `json:"max_rental_days"`

	Cleaned         bool     `json:"cleaned"`
	SmokeFree       bool     `json:"smoke_free"`
	PetFree         bool     `json:"pet_free"`
	Modest          bool     `json:"modest"`
	Tags            []string `json:"tags,omitempty"`
	Location        string   `json:"location"`
	PickupNotes     string   `json:"pickup_notes,omitempty"`
	WomenOnlyPickup bool     `json:"women_only_pickup"`

	Status    string         `json:"status"`
	Approved  bool           `json:"approved"`
	Rentable  bool           `json:"rentable"`
	ViewCount int64          `json:"view_count"`
	Images    []ListingImage `json:"images"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListingSummary struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"owner_id"`
	Title     string       `json:"title"`
	Category  string       `json:"category"`
	Size      string       `json:"size,omitempty"`
	Condition string       `json:"condition"`
	DailyRate MoneyDTO     `json:"daily_rate"`
	Location  string       `json:"location"`
	Status    string       `json:"status"`
	Thumbnail string       `json:"thumbnail_url,omitempty"`
	ViewCount int64        `json:"view_count"`
	Tags      []string     `json:"tags,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type CatalogPage struct {
	Items  []ListingSummary `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func MapListingDetail(l *domainlisting.Listing) ListingDetail {
	if l == nil {
		return ListingDetail{}
	}
	images := make([]ListingImage, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, ListingImage{URL: img.URL, DisplayOrder: img.DisplayOrder})
	}
	var sellPrice *MoneyDTO
	if l.SellPrice != nil {
		mapped := MapMoney(*l.SellPrice)
		sellPrice = &mapped
	}
	return ListingDetail{
		ID:              string(l.ID),
		OwnerID:         string(l.Owner),
		Title:           l.Title,
		Description:     l.Description,
		Category:        string(l.Category),
		Subcategory:     l.Subcategory,
		Size:            l.Size,
		Color:           l.Color,
		Brand:           l.Brand,
		Condition:       string(l.Condition),
		DailyRate:       MapMoney(l.DailyRate),
		Deposit:         MapMoney(l.Deposit),
		SellPrice:       sellPrice,
		MinDays:         l.MinDays,
		MaxDays:         l.MaxDays,
		Cleaned:         l.Cleaned,
		SmokeFree:       l.SmokeFree,
		PetFree:         l.PetFree,
		Modest:          l.Modest,
		Tags:            l.Tags,
		Location:        l.Location,
		PickupNotes:     l.PickupNotes,
		WomenOnlyPickup: l.WomenOnlyPickup,
		Status:          string(l.Status),
		Approved:        l.Approved,
		Rentable:        l.Rentable(),
		ViewCount:       l.ViewCount,
		Images:          images,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func MapListingSummary(l *domainlisting.Listing) ListingSummary {
	if l == nil {
		return ListingSummary{}
	}
	thumb := ""
	if len(l.Images) > 0 {
		thumb = l.Images[0].URL
	}
	return ListingSummary{
		ID:        string(l.ID),
		OwnerID:   string(l.Owner),
		Title:     l.Title,
		Category:  string(l.Category),
		Size:      l.Size,
		Condition: string(l.Condition),
		DailyRate: MapMoney(l.DailyRate),
		Location:  l.Location,
		Status:    string(l.Status),
		Thumbnail: thumb,
		ViewCount: l.ViewCount,
		Tags:      l.Tags,
		CreatedAt: l.CreatedAt,
	}
}
