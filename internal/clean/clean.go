// Package clean implements the row-level clean/transform rule engine:
// a pure, stateless function from one raw record to either a rejected
// result (hard-fail) or a cleaned, canonical record carrying soft-fail
// annotations. Ported field-by-field from the original
// clean_transform_service.py, translated into idiomatic Go value
// types without changing semantics.
package clean

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/salesetl/pipeline/internal/model"
)

var regionMap = map[string]string{
	"north": "north",
	"nort":  "north",
	"south": "south",
	"east":  "east",
	"west":  "west",
}

var categoryMap = map[string]string{
	"electronics":     "electronics",
	"electronic":      "electronics",
	"home appliance":  "home_appliance",
	"homeappliance":   "home_appliance",
	"home-appl":       "home_appliance",
	"fashion":         "fashion",
	"cloths":          "fashion",
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01-02-2006",
	"2006/01/02",
}

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// Transform applies the full rule table of spec.md §4.3 to one raw
// record.
func Transform(raw model.RawRecord) model.CleanResult {
	var errs []model.RejectReason

	orderID := strings.TrimSpace(raw["order_id"])
	if orderID == "" {
		errs = append(errs, model.ReasonMissingOrderID)
	}

	quantity, quantityOK := parsePositiveInt(raw["quantity"])
	if !quantityOK {
		errs = append(errs, model.ReasonInvalidQuantity)
	}

	unitPrice, priceOK := parsePositiveFloat(raw["unit_price"])
	if !priceOK {
		errs = append(errs, model.ReasonInvalidUnitPrice)
	}

	if len(errs) > 0 {
		return model.CleanResult{IsValid: false, Errors: errs}
	}

	row := model.CleanRecord{
		OrderID:   orderID,
		Quantity:  quantity,
		UnitPrice: round2(unitPrice),
	}

	productName, defaultedName := cleanProductName(raw["product_name"])
	row.ProductName = productName
	if defaultedName {
		row.SoftAnnotations = append(row.SoftAnnotations, model.AnnotationDefaultProductName)
	}
	row.ProductKey = productKey(productName)

	category, defaultedCategory := canonicalizeCategory(raw["category"])
	row.Category = category
	if defaultedCategory {
		row.SoftAnnotations = append(row.SoftAnnotations, model.AnnotationDefaultCategory)
	}

	discount, defaultedDiscount := parseDiscount(raw["discount_percent"])
	row.DiscountPercent = discount
	if defaultedDiscount {
		row.SoftAnnotations = append(row.SoftAnnotations, model.AnnotationDefaultDiscount)
	}

	region, defaultedRegion := canonicalizeRegion(raw["region"])
	row.Region = region
	if defaultedRegion {
		row.SoftAnnotations = append(row.SoftAnnotations, model.AnnotationDefaultRegion)
	}

	saleDate, saleMonth, defaultedDate := parseSaleDate(raw["sale_date"])
	row.SaleDate = saleDate
	row.SaleMonth = saleMonth
	if defaultedDate {
		row.SoftAnnotations = append(row.SoftAnnotations, model.AnnotationDefaultSaleDate)
	}

	email, invalidEmail := cleanEmail(raw["customer_email"])
	row.CustomerEmail = email
	if invalidEmail {
		row.SoftAnnotations = append(row.SoftAnnotations, model.AnnotationInvalidEmail)
	}

	// Revenue is computed last, only after the hard-fail fields validate.
	row.Revenue = round2(float64(row.Quantity) * row.UnitPrice * (1 - row.DiscountPercent))

	return model.CleanResult{Row: row, IsValid: true}
}

func parsePositiveInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parsePositiveFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

func cleanProductName(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown_product", true
	}
	return s, false
}

func productKey(name string) string {
	lower := strings.ToLower(name)
	key := nonAlnumRun.ReplaceAllString(lower, "_")
	return strings.Trim(key, "_")
}

func canonicalizeCategory(s string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if v, ok := categoryMap[key]; ok {
		return v, false
	}
	return "unknown", true
}

func canonicalizeRegion(s string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if v, ok := regionMap[key]; ok {
		return v, false
	}
	return "north", true
}

func parseDiscount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0.0, true
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0, true
	}
	return clamp01(d), false
}

func clamp01(d float64) float64 {
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

func parseSaleDate(s string) (date, month string, defaulted bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			iso := t.Format("2006-01-02")
			return iso, iso[:7], false
		}
	}
	return "1970-01-01", "1970-01", true
}

func cleanEmail(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if strings.Contains(s, "@") {
		return s, false
	}
	return "", true
}

// round2 rounds to 2 decimal places, half-away-from-zero.
func round2(v float64) float64 {
	return roundN(v, 2)
}

func roundN(v float64, n int) float64 {
	mult := math.Pow(10, float64(n))
	if v >= 0 {
		return math.Floor(v*mult+0.5) / mult
	}
	return math.Ceil(v*mult-0.5) / mult
}
