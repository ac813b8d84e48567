package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gangu/backend/internal/domain"
)

// ListingPayload is a search result as marketplaces send it. Field names vary
// between platforms, so every known alias is decoded and the mapper picks the
// first one present.
type ListingPayload struct {
	ID           domain.Value `json:"id"`
	ProductID    domain.Value `json:"product_id"`
	SKU          domain.Value `json:"sku"`
	Name         string       `json:"name"`
	Title        string       `json:"title"`
	ItemName     string       `json:"item_name"`
	Brand        string       `json:"brand"`
	Category     string       `json:"category"`
	Price        domain.Value `json:"price"`
	SellingPrice domain.Value `json:"selling_price"`
	OfferPrice   domain.Value `json:"offer_price"`
	MRP          domain.Value `json:"mrp"`
	Currency     string       `json:"currency"`
	Quantity     domain.Value `json:"quantity"`
	PackSize     domain.Value `json:"pack_size"`
	Weight       domain.Value `json:"weight"`
	InStock      *bool        `json:"in_stock"`
	Available    *bool        `json:"available"`
	Availability *bool        `json:"availability"`
	StockStatus  string       `json:"stock_status"`
	DeliveryTime domain.Value `json:"delivery_time"`
	ETA          domain.Value `json:"eta"`
	Rating       domain.Value `json:"rating"`
	RatingScale  float64      `json:"rating_scale"`
	ReviewsCount domain.Value `json:"reviews_count"`
	RatingCount  domain.Value `json:"rating_count"`
	Seller       string       `json:"seller"`
	URL          string       `json:"url"`
}

type searchEnvelope struct {
	Results  []ListingPayload `json:"results"`
	Products []ListingPayload `json:"products"`
	Items    []ListingPayload `json:"items"`
	Data     []ListingPayload `json:"data"`
}

// decodeSearchResponse accepts a bare array or an object wrapping the
// listings in results, products, items or data.
func decodeSearchResponse(body []byte) ([]ListingPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	if trimmed[0] == '[' {
		var items []ListingPayload
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope searchEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	switch {
	case envelope.Results != nil:
		return envelope.Results, nil
	case envelope.Products != nil:
		return envelope.Products, nil
	case envelope.Items != nil:
		return envelope.Items, nil
	default:
		return envelope.Data, nil
	}
}

// MapListings converts platform payloads to raw listings, dropping entries without a name
func MapListings(platform string, items []ListingPayload) []domain.RawListing {
	listings := make([]domain.RawListing, 0, len(items))
	for _, item := range items {
		listing := MapListing(platform, item)
		if listing.ItemName == "" {
			continue
		}
		listings = append(listings, listing)
	}
	return listings
}

// MapListing converts one platform payload to our domain RawListing
func MapListing(platform string, p ListingPayload) domain.RawListing {
	return domain.RawListing{
		Platform:     platform,
		ProductID:    FirstValue(p.ProductID, p.ID, p.SKU).String(),
		ItemName:     firstString(p.ItemName, p.Name, p.Title),
		Brand:        strings.TrimSpace(p.Brand),
		Category:     strings.TrimSpace(p.Category),
		Price:        FirstValue(p.SellingPrice, p.OfferPrice, p.Price, p.MRP),
		Currency:     strings.TrimSpace(p.Currency),
		Quantity:     FirstValue(p.Quantity, p.PackSize, p.Weight),
		Availability: firstBool(p.Availability, p.Available, p.InStock),
		StockStatus:  strings.TrimSpace(p.StockStatus),
		DeliveryTime: FirstValue(p.DeliveryTime, p.ETA),
		Rating:       p.Rating,
		RatingScale:  p.RatingScale,
		ReviewsCount: FirstValue(p.ReviewsCount, p.RatingCount),
		Seller:       strings.TrimSpace(p.Seller),
		URL:          strings.TrimSpace(p.URL),
	}
}

// FirstValue returns the first non-empty value
func FirstValue(values ...domain.Value) domain.Value {
	for _, v := range values {
		if !v.IsZero() {
			return domain.Value(strings.TrimSpace(string(v)))
		}
	}
	return ""
}

func firstString(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstBool(values ...*bool) *bool {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
