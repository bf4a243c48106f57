// Package model holds the data types shared across pipeline stages:
// raw Bronze records, cleaned Silver records, and the checkpoint and
// chunk envelope types that tie ingestion to the orchestrator.
package model

import (
	"strconv"
	"strings"
)

// RawRecord is one Bronze row: a field-name to raw-string mapping.
// Fields beyond the recognized set are tolerated and simply ignored by
// Clean/Transform.
type RawRecord map[string]string

// RejectReason is a closed enum of hard-fail rejection reasons.
type RejectReason string

const (
	ReasonMissingOrderID   RejectReason = "missing_order_id"
	ReasonInvalidQuantity  RejectReason = "invalid_quantity"
	ReasonInvalidUnitPrice RejectReason = "invalid_unit_price"
)

// SoftAnnotation is a closed enum of soft-fail annotations recorded
// alongside an otherwise-valid clean record.
type SoftAnnotation string

const (
	AnnotationDefaultProductName SoftAnnotation = "default_product_name"
	AnnotationDefaultCategory    SoftAnnotation = "default_category"
	AnnotationDefaultDiscount    SoftAnnotation = "default_discount"
	AnnotationDefaultRegion      SoftAnnotation = "default_region"
	AnnotationDefaultSaleDate    SoftAnnotation = "default_sale_date"
	AnnotationInvalidEmail       SoftAnnotation = "invalid_email"
)

// CleanRecord is a Silver row: typed, canonical fields plus any soft
// annotations accumulated while cleaning.
type CleanRecord struct {
	OrderID          string
	ProductName      string
	ProductKey       string
	Category         string
	Quantity         int
	UnitPrice        float64
	DiscountPercent  float64
	Region           string
	SaleDate         string
	SaleMonth        string
	CustomerEmail    string // empty means null
	Revenue          float64
	SoftAnnotations  []SoftAnnotation
}

// CleanResult is the outcome of running Clean/Transform on one raw
// record.
type CleanResult struct {
	Row     CleanRecord
	IsValid bool
	Errors  []RejectReason
}

// Checkpoint is the durable scalar state of one phase: all chunks
// strictly before (File, ChunkIndex) are durably persisted downstream.
type Checkpoint struct {
	File       string `json:"file"`
	ChunkIndex int    `json:"chunk_index"`
}

// Zero reports whether cp is the initial checkpoint value.
func (cp Checkpoint) Zero() bool {
	return cp.File == "" && cp.ChunkIndex == 0
}

// Chunk is one bounded window of raw rows read from a single source
// file during Phase 1 ingestion.
type Chunk struct {
	File       string
	ChunkIndex int
	Rows       []RawRecord
}

// SilverFile is one fully-loaded Silver file consumed during Phase 2.
type SilverFile struct {
	File string
	Rows []CleanRecord
}

// SilverColumns is the fixed Silver CSV header, shared by the writer
// (encoding) and ingestion (decoding) so a file written by one version
// of this pipeline is always readable by itself.
var SilverColumns = []string{
	"order_id", "product_name", "product_key", "category", "quantity",
	"unit_price", "discount_percent", "region", "sale_date", "sale_month",
	"customer_email", "revenue", "soft_annotations",
}

const softAnnotationSep = ";"

// ToRow renders c as a Silver CSV row in SilverColumns order.
func (c CleanRecord) ToRow() []string {
	anns := make([]string, len(c.SoftAnnotations))
	for i, a := range c.SoftAnnotations {
		anns[i] = string(a)
	}
	return []string{
		c.OrderID,
		c.ProductName,
		c.ProductKey,
		c.Category,
		formatInt(c.Quantity),
		formatFloat(c.UnitPrice),
		formatFloat(c.DiscountPercent),
		c.Region,
		c.SaleDate,
		c.SaleMonth,
		c.CustomerEmail,
		formatFloat(c.Revenue),
		strings.Join(anns, softAnnotationSep),
	}
}

// FromRow parses a Silver CSV row back into a CleanRecord, given a
// column-name-to-index map built from the file's own header (so older
// files missing a later-added column still decode).
func FromRow(col map[string]int, fields []string) CleanRecord {
	get := func(name string) string {
		if i, ok := col[name]; ok && i < len(fields) {
			return fields[i]
		}
		return ""
	}

	qty, _ := strconv.Atoi(get("quantity"))
	price, _ := strconv.ParseFloat(get("unit_price"), 64)
	discount, _ := strconv.ParseFloat(get("discount_percent"), 64)
	revenue, _ := strconv.ParseFloat(get("revenue"), 64)

	var anns []SoftAnnotation
	if raw := get("soft_annotations"); raw != "" {
		for _, a := range strings.Split(raw, softAnnotationSep) {
			anns = append(anns, SoftAnnotation(a))
		}
	}

	return CleanRecord{
		OrderID:         get("order_id"),
		ProductName:     get("product_name"),
		ProductKey:      get("product_key"),
		Category:        get("category"),
		Quantity:        qty,
		UnitPrice:       price,
		DiscountPercent: discount,
		Region:          get("region"),
		SaleDate:        get("sale_date"),
		SaleMonth:       get("sale_month"),
		CustomerEmail:   get("customer_email"),
		Revenue:         revenue,
		SoftAnnotations: anns,
	}
}

func formatInt(v int) string { return strconv.Itoa(v) }

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
