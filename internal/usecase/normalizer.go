package usecase

import (
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gangu/backend/internal/domain"
)

// Normalization defaults
const (
	defaultDeliveryHours = 24.0
	defaultReviewsCount  = 50
	defaultRating        = 3.5
	sameDayHours         = 6.0
	nextDayHours         = 24.0
)

var (
	// first number in a price string such as "₹1,249.00" or "Rs. 95"
	priceNumberPattern = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

	// amount plus unit, e.g. "500g", "1 kg", "1 strip (15 tablets)"
	quantityPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(kgs?|kilograms?|grams?|gms?|g|ml|millilit(?:er|re)s?|lit(?:er|re)s?|ltrs?|l|strips?|units?|pieces?|pcs?)\b`)

	// single value or range plus time unit, e.g. "10 mins", "2-3 business days", "1 to 2 weeks"
	deliveryPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)(?:\s*(?:-|to)\s*(\d+(?:\.\d+)?))?\s*(?:(?:business|working)\s+)?(minutes?|mins?|m|hours?|hrs?|h|days?|d|weeks?|wks?)\b`)

	// rating with an explicit scale, e.g. "4.5/5", "9 out of 10"
	ratingRatioPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:/|out of)\s*(\d+(?:\.\d+)?)`)

	// review counts such as "5,100", "1.2k", "2 lakh"
	countPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(k|m|lakh)?\b`)

	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// currencyRates converts listing currencies to INR
var currencyRates = map[string]decimal.Decimal{
	"INR": decimal.NewFromInt(1),
	"USD": decimal.NewFromInt(83),
	"EUR": decimal.NewFromInt(90),
	"GBP": decimal.NewFromInt(105),
}

// currencyAliases maps display spellings to ISO codes
var currencyAliases = map[string]string{
	"₹":      "INR",
	"RS":     "INR",
	"RS.":    "INR",
	"RUPEE":  "INR",
	"RUPEES": "INR",
	"$":      "USD",
	"€":      "EUR",
	"£":      "GBP",
}

// NormalizerConfig holds configuration for the normalizer
type NormalizerConfig struct {
	DefaultCategory    string
	EnableDebugLogging bool
}

// Normalizer converts raw marketplace listings into canonical attributes
type Normalizer struct {
	preprocessor       *QueryPreprocessor
	defaultCategory    string
	enableDebugLogging bool
}

// NewNormalizer creates a normalizer with the given configuration
func NewNormalizer(config NormalizerConfig) *Normalizer {
	category := config.DefaultCategory
	if category == "" {
		category = domain.CategoryGrocery
	}

	return &Normalizer{
		preprocessor:       NewQueryPreprocessor(config.EnableDebugLogging),
		defaultCategory:    category,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Normalize converts one raw listing. Listings that cannot be priced are
// rejected with an error wrapping domain.ErrListingRejected.
func (n *Normalizer) Normalize(raw domain.RawListing) (*domain.NormalizedListing, error) {
	price, currency, err := normalizePrice(raw)
	if err != nil {
		return nil, err
	}

	quantity, ok := ParseQuantity(raw.Quantity.String())
	if !ok {
		// titles often carry the pack size ("Amul Butter 500g")
		quantity, ok = ParseQuantity(raw.ItemName)
	}
	if !ok {
		quantity = domain.Quantity{Value: 1, Unit: "unit"}
	}

	unitPrice := price / quantity.Value
	hours, known := parseDeliveryHours(raw.DeliveryTime)
	status, available := classifyStock(raw)

	category := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw.Category)), " ", "_")
	if category == "" {
		category = n.defaultCategory
	}

	listing := &domain.NormalizedListing{
		Platform:       strings.TrimSpace(raw.Platform),
		ProductID:      raw.ProductID,
		OriginalName:   raw.ItemName,
		CanonicalName:  n.preprocessor.CanonicalName(raw.ItemName),
		Brand:          strings.TrimSpace(raw.Brand),
		Category:       category,
		Price:          price,
		Currency:       currency,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		UnitPriceLabel: fmt.Sprintf("₹%.2f/%s", unitPrice, quantity.Unit),
		DeliveryHours:  hours,
		DeliveryLabel:  deliveryLabel(raw.DeliveryTime, hours),
		DeliveryKnown:  known,
		Rating:         parseRating(raw.Rating, raw.RatingScale),
		ReviewsCount:   parseReviewsCount(raw.ReviewsCount),
		Available:      available,
		StockStatus:    status,
		Seller:         raw.Seller,
		URL:            raw.URL,
	}

	if n.enableDebugLogging {
		log.Printf("[COMPARE] Normalized %s/%q: price=%.2f unit=%s delivery=%.1fh rating=%.2f reviews=%d stock=%s",
			listing.Platform, listing.OriginalName, listing.Price, listing.UnitPriceLabel,
			listing.DeliveryHours, listing.Rating, listing.ReviewsCount, listing.StockStatus)
	}

	return listing, nil
}

// ParseQuantity extracts an amount in base units (kg, l, strip, unit, piece).
// A bare positive number is read as a count of units.
func ParseQuantity(text string) (domain.Quantity, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Quantity{}, false
	}

	if f, err := strconv.ParseFloat(text, 64); err == nil {
		if f <= 0 {
			return domain.Quantity{}, false
		}
		return domain.Quantity{Value: f, Unit: "unit"}, true
	}

	m := quantityPattern.FindStringSubmatch(text)
	if m == nil {
		return domain.Quantity{}, false
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value <= 0 {
		return domain.Quantity{}, false
	}

	factor, unit := baseUnit(strings.ToLower(m[2]))
	return domain.Quantity{Value: value * factor, Unit: unit}, true
}

// baseUnit maps a unit spelling to its conversion factor and base unit
func baseUnit(u string) (float64, string) {
	switch {
	case u == "g" || strings.HasPrefix(u, "gm") || strings.HasPrefix(u, "gram"):
		return 0.001, "kg"
	case strings.HasPrefix(u, "kg") || strings.HasPrefix(u, "kilogram"):
		return 1, "kg"
	case u == "ml" || strings.HasPrefix(u, "millilit"):
		return 0.001, "l"
	case u == "l" || strings.HasPrefix(u, "lit") || strings.HasPrefix(u, "ltr"):
		return 1, "l"
	case strings.HasPrefix(u, "strip"):
		return 1, "strip"
	case strings.HasPrefix(u, "piece") || strings.HasPrefix(u, "pc"):
		return 1, "piece"
	default:
		return 1, "unit"
	}
}

func normalizePrice(raw domain.RawListing) (float64, string, error) {
	text := strings.TrimSpace(raw.Price.String())

	currency := detectCurrency(raw.Currency, text)
	rate, ok := currencyRates[currency]
	if !ok {
		return 0, "", fmt.Errorf("%w: unknown currency %q", domain.ErrListingRejected, raw.Currency)
	}

	amount, err := parseAmount(text)
	if err != nil || !amount.IsPositive() {
		if raw.PriceOverride == nil || *raw.PriceOverride <= 0 {
			return 0, "", fmt.Errorf("%w: price %q is not a positive number", domain.ErrListingRejected, text)
		}
		amount = decimal.NewFromFloat(*raw.PriceOverride)
	}

	return amount.Mul(rate).Round(2).InexactFloat64(), "INR", nil
}

func parseAmount(text string) (decimal.Decimal, error) {
	m := priceNumberPattern.FindString(text)
	if m == "" {
		return decimal.Zero, fmt.Errorf("no number in %q", text)
	}
	return decimal.NewFromString(strings.ReplaceAll(m, ",", ""))
}

func detectCurrency(code, priceText string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code != "" {
		if iso, ok := currencyAliases[code]; ok {
			return iso
		}
		return code
	}

	switch {
	case strings.Contains(priceText, "$"):
		return "USD"
	case strings.Contains(priceText, "€"):
		return "EUR"
	case strings.Contains(priceText, "£"):
		return "GBP"
	}
	return "INR"
}

// parseDeliveryHours converts delivery phrasing to hours. The second result is
// false when the listing carried no delivery information at all.
func parseDeliveryHours(v domain.Value) (float64, bool) {
	text := strings.ToLower(strings.TrimSpace(v.String()))
	if text == "" {
		return defaultDeliveryHours, false
	}

	if f, err := strconv.ParseFloat(text, 64); err == nil {
		if f < 0 {
			return defaultDeliveryHours, true
		}
		return f, true
	}

	switch {
	case strings.Contains(text, "same day") || strings.Contains(text, "today"):
		return sameDayHours, true
	case strings.Contains(text, "next day") || strings.Contains(text, "tomorrow"):
		return nextDayHours, true
	}

	m := deliveryPattern.FindStringSubmatch(text)
	if m == nil {
		return defaultDeliveryHours, true
	}

	amount, _ := strconv.ParseFloat(m[1], 64)
	if m[2] != "" {
		upper, _ := strconv.ParseFloat(m[2], 64)
		amount = (amount + upper) / 2
	}

	switch unit := m[3]; {
	case strings.HasPrefix(unit, "m"):
		return math.Max(1, math.Ceil(amount/60)), true
	case strings.HasPrefix(unit, "d"):
		return amount * 24, true
	case strings.HasPrefix(unit, "w"):
		return amount * 168, true
	default:
		return amount, true
	}
}

func deliveryLabel(v domain.Value, hours float64) string {
	text := strings.TrimSpace(v.String())
	if text != "" {
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return text
		}
	}

	switch {
	case hours == 1:
		return "1 hour"
	case hours < 24:
		return strconv.FormatFloat(hours, 'f', -1, 64) + " hours"
	case hours == 24:
		return "1 day"
	default:
		days := math.Round(hours/24*10) / 10
		return strconv.FormatFloat(days, 'f', -1, 64) + " days"
	}
}

// parseRating maps a rating onto the 0-5 scale. An explicit scale in the text
// ("9/10", "90%") wins over the scale hint, which wins over inference.
func parseRating(v domain.Value, scale float64) float64 {
	text := strings.ToLower(strings.TrimSpace(v.String()))
	if text == "" {
		return defaultRating
	}

	var rating float64
	if m := ratingRatioPattern.FindStringSubmatch(text); m != nil {
		value, _ := strconv.ParseFloat(m[1], 64)
		outOf, _ := strconv.ParseFloat(m[2], 64)
		if outOf <= 0 {
			return defaultRating
		}
		rating = value / outOf * 5
	} else {
		num := numberPattern.FindString(text)
		if num == "" {
			return defaultRating
		}
		value, _ := strconv.ParseFloat(num, 64)

		switch {
		case strings.Contains(text, "%"):
			rating = value / 20
		case scale > 0:
			rating = value / scale * 5
		case value > 10:
			rating = value / 20
		case value > 5:
			rating = value / 2
		default:
			rating = value
		}
	}

	return clamp(rating, 0, 5)
}

func parseReviewsCount(v domain.Value) int {
	text := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(v.String()), ",", ""))
	if text == "" {
		return defaultReviewsCount
	}

	m := countPattern.FindStringSubmatch(text)
	if m == nil {
		return defaultReviewsCount
	}

	value, _ := strconv.ParseFloat(m[1], 64)
	switch m[2] {
	case "k":
		value *= 1_000
	case "lakh":
		value *= 100_000
	case "m":
		value *= 1_000_000
	}

	if value < 0 {
		return 0
	}
	return int(math.Round(value))
}

// classifyStock resolves the canonical stock status. An explicit stock status
// string wins; otherwise availability=false means out of stock.
func classifyStock(raw domain.RawListing) (domain.StockStatus, bool) {
	if strings.TrimSpace(raw.ItemName) == "" {
		return domain.StockNotListed, false
	}

	status, explicit := parseStockStatus(raw.StockStatus)
	if !explicit {
		status = domain.StockInStock
		if raw.Availability != nil && !*raw.Availability {
			status = domain.StockOutOfStock
		}
	}

	available := status.Purchasable()
	if raw.Availability != nil {
		available = available && *raw.Availability
	}
	return status, available
}

func parseStockStatus(s string) (domain.StockStatus, bool) {
	text := strings.ToLower(strings.TrimSpace(s))
	text = strings.NewReplacer("_", " ", "-", " ").Replace(text)
	if text == "" {
		return "", false
	}

	switch {
	case strings.Contains(text, "out of stock") || strings.Contains(text, "sold out") || strings.Contains(text, "unavailable"):
		return domain.StockOutOfStock, true
	case strings.Contains(text, "not listed") || strings.Contains(text, "not found") || strings.Contains(text, "discontinued"):
		return domain.StockNotListed, true
	case strings.Contains(text, "low") || strings.Contains(text, "limited") || strings.Contains(text, "left"):
		return domain.StockLowStock, true
	case strings.Contains(text, "in stock") || strings.Contains(text, "available"):
		return domain.StockInStock, true
	}
	return "", false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
