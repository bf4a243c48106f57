// Package aggregate implements the streaming, associative accumulators
// of spec.md §4.5: monthly summary, per-product totals, per-region
// revenue, per-category discount, and a bounded min-heap of top-N
// revenue anomalies. Ported from original_source/src/aggregation_service.py,
// but translated away from its defaultdict-of-struct pattern into
// explicit per-key struct types that are only ever initialized on
// first insert — the "default-bag-of-counters" anti-pattern spec.md §9
// calls out is deliberately not reproduced here.
package aggregate

import (
	"container/heap"
	"sort"

	"github.com/salesetl/pipeline/internal/model"
)

type monthlyBucket struct {
	RevenueSum  float64
	QuantitySum int
	DiscountSum float64
	Count       int
}

type productBucket struct {
	RevenueSum  float64
	QuantitySum int
}

type categoryBucket struct {
	DiscountSum float64
	Count       int
}

// Aggregator accumulates the five tables over a stream of clean
// records admitted by dedup. Bounded memory except for the
// domain-bounded cardinality of months/products/regions/categories.
type Aggregator struct {
	monthly  map[string]*monthlyBucket
	product  map[string]*productBucket
	region   map[string]float64
	category map[string]*categoryBucket
	anomaly  *anomalyHeap
	topN     int
}

// New constructs an empty Aggregator with an anomaly heap bounded to
// topN entries.
func New(topN int) *Aggregator {
	return &Aggregator{
		monthly:  make(map[string]*monthlyBucket),
		product:  make(map[string]*productBucket),
		region:   make(map[string]float64),
		category: make(map[string]*categoryBucket),
		anomaly:  newAnomalyHeap(topN),
		topN:     topN,
	}
}

// Add applies one clean record's contribution to all five
// accumulators. Must only be called for records that have already
// been admitted by dedup (spec.md invariant I2).
func (a *Aggregator) Add(row model.CleanRecord) {
	a.addMonthly(row)
	a.addProduct(row)
	a.addRegion(row)
	a.addCategory(row)
	a.anomaly.Offer(row)
}

func (a *Aggregator) addMonthly(row model.CleanRecord) {
	b, ok := a.monthly[row.SaleMonth]
	if !ok {
		b = &monthlyBucket{}
		a.monthly[row.SaleMonth] = b
	}
	b.RevenueSum += row.Revenue
	b.QuantitySum += row.Quantity
	b.DiscountSum += row.DiscountPercent
	b.Count++
}

func (a *Aggregator) addProduct(row model.CleanRecord) {
	b, ok := a.product[row.ProductKey]
	if !ok {
		b = &productBucket{}
		a.product[row.ProductKey] = b
	}
	b.RevenueSum += row.Revenue
	b.QuantitySum += row.Quantity
}

func (a *Aggregator) addRegion(row model.CleanRecord) {
	a.region[row.Region] += row.Revenue
}

func (a *Aggregator) addCategory(row model.CleanRecord) {
	b, ok := a.category[row.Category]
	if !ok {
		b = &categoryBucket{}
		a.category[row.Category] = b
	}
	b.DiscountSum += row.DiscountPercent
	b.Count++
}

// MonthlyRow is one row of the monthly_sales_summary Gold table. The
// underlying DiscountSum/Count are carried alongside the published
// AvgDiscount so a later upsert run can merge sums correctly — see
// DESIGN.md's writer entry: AvgDiscount is not itself additive.
type MonthlyRow struct {
	SaleMonth     string
	TotalRevenue  float64
	TotalQuantity int
	AvgDiscount   float64
	DiscountSum   float64
	Count         int
}

// ProductRow is one row of the top_products Gold table.
type ProductRow struct {
	ProductKey string
	Revenue    float64
	Quantity   int
}

// RegionRow is one row of the region_wise_performance Gold table.
type RegionRow struct {
	Region       string
	TotalRevenue float64
}

// CategoryRow is one row of the category_discount_map Gold table.
type CategoryRow struct {
	Category    string
	AvgDiscount float64
}

// Result bundles the five Gold tables produced by Finalize.
type Result struct {
	Monthly   []MonthlyRow
	Products  []ProductRow
	Regions   []RegionRow
	Category  []CategoryRow
	Anomalies []model.CleanRecord
}

// Finalize produces the five Gold tables from the accumulated state.
// Safe to call once after the complete set of Phase-2 admissions has
// been observed (spec.md §5).
func (a *Aggregator) Finalize() Result {
	return Result{
		Monthly:   a.finalizeMonthly(),
		Products:  a.finalizeTopProducts(),
		Regions:   a.finalizeRegions(),
		Category:  a.finalizeCategory(),
		Anomalies: a.anomaly.SortedDescending(),
	}
}

func (a *Aggregator) finalizeMonthly() []MonthlyRow {
	rows := make([]MonthlyRow, 0, len(a.monthly))
	for month, b := range a.monthly {
		avg := 0.0
		if b.Count > 0 {
			avg = round(b.DiscountSum/float64(b.Count), 4)
		}
		rows = append(rows, MonthlyRow{
			SaleMonth:     month,
			TotalRevenue:  round(b.RevenueSum, 2),
			TotalQuantity: b.QuantitySum,
			AvgDiscount:   avg,
			DiscountSum:   b.DiscountSum,
			Count:         b.Count,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SaleMonth < rows[j].SaleMonth })
	return rows
}

func (a *Aggregator) finalizeTopProducts() []ProductRow {
	rows := make([]ProductRow, 0, len(a.product))
	for key, b := range a.product {
		rows = append(rows, ProductRow{ProductKey: key, Revenue: round(b.RevenueSum, 2), Quantity: b.QuantitySum})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Revenue != rows[j].Revenue {
			return rows[i].Revenue > rows[j].Revenue
		}
		return rows[i].ProductKey < rows[j].ProductKey
	})
	if len(rows) > 10 {
		rows = rows[:10]
	}
	return rows
}

func (a *Aggregator) finalizeRegions() []RegionRow {
	rows := make([]RegionRow, 0, len(a.region))
	for region, sum := range a.region {
		rows = append(rows, RegionRow{Region: region, TotalRevenue: sum})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Region < rows[j].Region })
	return rows
}

func (a *Aggregator) finalizeCategory() []CategoryRow {
	rows := make([]CategoryRow, 0, len(a.category))
	for cat, b := range a.category {
		avg := 0.0
		if b.Count > 0 {
			avg = round(b.DiscountSum/float64(b.Count), 4)
		}
		rows = append(rows, CategoryRow{Category: cat, AvgDiscount: avg})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Category < rows[j].Category })
	return rows
}

// anomalyHeap is a bounded min-heap over revenue, sized to topN. Once
// full, a new record replaces the current minimum only if its revenue
// is strictly greater — "push-then-pop" per spec.md §4.5. Ordering
// among equal-revenue rows at the boundary is unspecified.
type anomalyHeap struct {
	items []model.CleanRecord
	cap   int
}

func newAnomalyHeap(topN int) *anomalyHeap {
	return &anomalyHeap{cap: topN}
}

func (h *anomalyHeap) Len() int            { return len(h.items) }
func (h *anomalyHeap) Less(i, j int) bool  { return h.items[i].Revenue < h.items[j].Revenue }
func (h *anomalyHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *anomalyHeap) Push(x interface{})  { h.items = append(h.items, x.(model.CleanRecord)) }
func (h *anomalyHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// Offer applies the min-heap push-then-pop policy for one candidate
// record.
func (h *anomalyHeap) Offer(row model.CleanRecord) {
	if h.cap <= 0 {
		return
	}
	if h.Len() < h.cap {
		heap.Push(h, row)
		return
	}
	if h.Len() > 0 && row.Revenue > h.items[0].Revenue {
		heap.Pop(h)
		heap.Push(h, row)
	}
}

// SortedDescending returns the heap contents sorted descending by
// revenue, per spec.md §4.5's anomaly_records table.
func (h *anomalyHeap) SortedDescending() []model.CleanRecord {
	out := make([]model.CleanRecord, len(h.items))
	copy(out, h.items)
	sort.Slice(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	return out
}

func round(v float64, n int) float64 {
	mult := 1.0
	for i := 0; i < n; i++ {
		mult *= 10
	}
	if v >= 0 {
		return float64(int64(v*mult+0.5)) / mult
	}
	return float64(int64(v*mult-0.5)) / mult
}
