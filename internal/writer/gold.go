package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/salesetl/pipeline/internal/aggregate"
	"github.com/salesetl/pipeline/internal/model"
)

// GoldWriter writes the five Gold tables produced by
// aggregate.Aggregator.Finalize, one file per table under
// <outputDir>/gold/<table>.<format>. Every write is a full overwrite
// via temp-and-rename, except monthly_sales_summary which upserts by
// sale_month (spec.md §4.6), mirroring
// pkg/metricstore/walCheckpoint.go's atomic publication idiom.
type GoldWriter struct {
	dir    string
	format string // csv | parquet
}

// NewGoldWriter ensures <outputDir>/gold exists.
func NewGoldWriter(outputDir, format string) (*GoldWriter, error) {
	dir := filepath.Join(outputDir, "gold")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("writer: mkdir %q: %w", dir, err)
	}
	return &GoldWriter{dir: dir, format: format}, nil
}

func (g *GoldWriter) tablePath(table string) string {
	return filepath.Join(g.dir, fmt.Sprintf("%s.%s", table, g.format))
}

// WriteAll writes every Gold table from result, merging the monthly
// table with whatever is already on disk.
func (g *GoldWriter) WriteAll(result aggregate.Result) error {
	merged, err := g.mergeMonthly(result.Monthly)
	if err != nil {
		return fmt.Errorf("writer: merge monthly: %w", err)
	}
	if err := g.writeMonthly(merged); err != nil {
		return fmt.Errorf("writer: write monthly: %w", err)
	}
	if err := g.writeProducts(result.Products); err != nil {
		return fmt.Errorf("writer: write products: %w", err)
	}
	if err := g.writeRegions(result.Regions); err != nil {
		return fmt.Errorf("writer: write regions: %w", err)
	}
	if err := g.writeCategory(result.Category); err != nil {
		return fmt.Errorf("writer: write category: %w", err)
	}
	if err := g.writeAnomalies(result.Anomalies); err != nil {
		return fmt.Errorf("writer: write anomalies: %w", err)
	}
	return nil
}

// mergeMonthly reads the existing monthly table, if any, and sums
// DiscountSum/Count/TotalRevenue/TotalQuantity per sale_month with the
// new rows, re-deriving AvgDiscount from the merged sums (AvgDiscount
// itself is not additive — see DESIGN.md).
func (g *GoldWriter) mergeMonthly(rows []aggregate.MonthlyRow) ([]aggregate.MonthlyRow, error) {
	existing, err := g.readMonthly()
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]*aggregate.MonthlyRow, len(existing)+len(rows))
	order := make([]string, 0, len(existing)+len(rows))

	for _, r := range existing {
		row := r
		byMonth[row.SaleMonth] = &row
		order = append(order, row.SaleMonth)
	}
	for _, r := range rows {
		if cur, ok := byMonth[r.SaleMonth]; ok {
			cur.TotalRevenue = roundTo(cur.TotalRevenue+r.TotalRevenue, 2)
			cur.TotalQuantity += r.TotalQuantity
			cur.DiscountSum += r.DiscountSum
			cur.Count += r.Count
		} else {
			row := r
			byMonth[row.SaleMonth] = &row
			order = append(order, row.SaleMonth)
		}
	}

	out := make([]aggregate.MonthlyRow, 0, len(byMonth))
	seen := make(map[string]bool, len(byMonth))
	for _, month := range order {
		if seen[month] {
			continue
		}
		seen[month] = true
		row := *byMonth[month]
		if row.Count > 0 {
			row.AvgDiscount = roundTo(row.DiscountSum/float64(row.Count), 4)
		}
		out = append(out, row)
	}
	return out, nil
}

func (g *GoldWriter) readMonthly() ([]aggregate.MonthlyRow, error) {
	path := g.tablePath("monthly_sales_summary")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %q: %w", path, err)
	}

	if g.format == "parquet" {
		return readMonthlyParquet(path)
	}
	return readMonthlyCSV(path)
}

func readMonthlyCSV(path string) ([]aggregate.MonthlyRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]aggregate.MonthlyRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 6 {
			continue
		}
		revenue, _ := strconv.ParseFloat(rec[1], 64)
		qty, _ := strconv.Atoi(rec[2])
		avg, _ := strconv.ParseFloat(rec[3], 64)
		discountSum, _ := strconv.ParseFloat(rec[4], 64)
		count, _ := strconv.Atoi(rec[5])
		rows = append(rows, aggregate.MonthlyRow{
			SaleMonth: rec[0], TotalRevenue: revenue, TotalQuantity: qty,
			AvgDiscount: avg, DiscountSum: discountSum, Count: count,
		})
	}
	return rows, nil
}

var monthlyHeader = []string{"sale_month", "total_revenue", "total_quantity", "avg_discount", "discount_sum", "count"}

func (g *GoldWriter) writeMonthly(rows []aggregate.MonthlyRow) error {
	if g.format == "parquet" {
		return writeMonthlyParquet(g.tablePath("monthly_sales_summary"), rows)
	}
	return writeCSVAtomic(g.tablePath("monthly_sales_summary"), monthlyHeader, len(rows), func(w *csv.Writer) error {
		for _, r := range rows {
			if err := w.Write([]string{
				r.SaleMonth,
				formatFloat(r.TotalRevenue),
				strconv.Itoa(r.TotalQuantity),
				formatFloat(r.AvgDiscount),
				formatFloat(r.DiscountSum),
				strconv.Itoa(r.Count),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

var productsHeader = []string{"product_key", "revenue", "quantity"}

func (g *GoldWriter) writeProducts(rows []aggregate.ProductRow) error {
	if g.format == "parquet" {
		return writeProductsParquet(g.tablePath("top_products"), rows)
	}
	return writeCSVAtomic(g.tablePath("top_products"), productsHeader, len(rows), func(w *csv.Writer) error {
		for _, r := range rows {
			if err := w.Write([]string{r.ProductKey, formatFloat(r.Revenue), strconv.Itoa(r.Quantity)}); err != nil {
				return err
			}
		}
		return nil
	})
}

var regionsHeader = []string{"region", "total_revenue"}

func (g *GoldWriter) writeRegions(rows []aggregate.RegionRow) error {
	if g.format == "parquet" {
		return writeRegionsParquet(g.tablePath("region_wise_performance"), rows)
	}
	return writeCSVAtomic(g.tablePath("region_wise_performance"), regionsHeader, len(rows), func(w *csv.Writer) error {
		for _, r := range rows {
			if err := w.Write([]string{r.Region, formatFloat(r.TotalRevenue)}); err != nil {
				return err
			}
		}
		return nil
	})
}

var categoryHeader = []string{"category", "avg_discount"}

func (g *GoldWriter) writeCategory(rows []aggregate.CategoryRow) error {
	if g.format == "parquet" {
		return writeCategoryParquet(g.tablePath("category_discount_map"), rows)
	}
	return writeCSVAtomic(g.tablePath("category_discount_map"), categoryHeader, len(rows), func(w *csv.Writer) error {
		for _, r := range rows {
			if err := w.Write([]string{r.Category, formatFloat(r.AvgDiscount)}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *GoldWriter) writeAnomalies(rows []model.CleanRecord) error {
	if g.format == "parquet" {
		return writeAnomaliesParquet(g.tablePath("anomaly_records"), rows)
	}
	return writeCSVAtomic(g.tablePath("anomaly_records"), model.SilverColumns, len(rows), func(w *csv.Writer) error {
		for _, r := range rows {
			if err := w.Write(r.ToRow()); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCSVAtomic(path string, header []string, n int, body func(*csv.Writer) error) error {
	_ = n
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("open %q: %w", tmpPath, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write header %q: %w", tmpPath, err)
	}
	if err := body(w); err != nil {
		f.Close()
		return fmt.Errorf("write rows %q: %w", tmpPath, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %q: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync %q: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %q -> %q: %w", tmpPath, path, err)
	}
	return nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func roundTo(v float64, n int) float64 {
	mult := 1.0
	for i := 0; i < n; i++ {
		mult *= 10
	}
	if v >= 0 {
		return float64(int64(v*mult+0.5)) / mult
	}
	return float64(int64(v*mult-0.5)) / mult
}
