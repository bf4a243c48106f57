package writer

import (
	"bytes"
	"fmt"
	"io"
	"os"

	pq "github.com/parquet-go/parquet-go"

	"github.com/salesetl/pipeline/internal/aggregate"
	"github.com/salesetl/pipeline/internal/model"
)

// Parquet row schemas, one per Gold table, grounded on
// pkg/archive/parquet/schema.go's ParquetJobRow struct-tag style.

type monthlyParquetRow struct {
	SaleMonth     string  `parquet:"sale_month"`
	TotalRevenue  float64 `parquet:"total_revenue"`
	TotalQuantity int64   `parquet:"total_quantity"`
	AvgDiscount   float64 `parquet:"avg_discount"`
	DiscountSum   float64 `parquet:"discount_sum"`
	Count         int64   `parquet:"count"`
}

type productParquetRow struct {
	ProductKey string  `parquet:"product_key"`
	Revenue    float64 `parquet:"revenue"`
	Quantity   int64   `parquet:"quantity"`
}

type regionParquetRow struct {
	Region       string  `parquet:"region"`
	TotalRevenue float64 `parquet:"total_revenue"`
}

type categoryParquetRow struct {
	Category    string  `parquet:"category"`
	AvgDiscount float64 `parquet:"avg_discount"`
}

type anomalyParquetRow struct {
	OrderID         string  `parquet:"order_id"`
	ProductName     string  `parquet:"product_name"`
	ProductKey      string  `parquet:"product_key"`
	Category        string  `parquet:"category"`
	Quantity        int64   `parquet:"quantity"`
	UnitPrice       float64 `parquet:"unit_price"`
	DiscountPercent float64 `parquet:"discount_percent"`
	Region          string  `parquet:"region"`
	SaleDate        string  `parquet:"sale_date"`
	SaleMonth       string  `parquet:"sale_month"`
	CustomerEmail   string  `parquet:"customer_email,optional"`
	Revenue         float64 `parquet:"revenue"`
}

// writeParquetFile marshals rows to a parquet byte buffer via
// pq.NewGenericWriter[T], then publishes it through the same
// temp-then-rename idiom every Gold write uses.
func writeParquetFile[T any](path string, rows []T) error {
	var buf bytes.Buffer
	w := pq.NewGenericWriter[T](&buf)
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("parquet: encode %q: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("parquet: close encoder %q: %w", path, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o640); err != nil {
		return fmt.Errorf("parquet: write %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("parquet: rename %q -> %q: %w", tmpPath, path, err)
	}
	return nil
}

func readParquetFile[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parquet: read %q: %w", path, err)
	}

	file, err := pq.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parquet: open %q: %w", path, err)
	}

	r := pq.NewGenericReader[T](file)
	defer r.Close()

	rows := make([]T, file.NumRows())
	n, err := r.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("parquet: decode %q: %w", path, err)
	}
	return rows[:n], nil
}

func writeMonthlyParquet(path string, rows []aggregate.MonthlyRow) error {
	out := make([]monthlyParquetRow, len(rows))
	for i, r := range rows {
		out[i] = monthlyParquetRow{
			SaleMonth: r.SaleMonth, TotalRevenue: r.TotalRevenue,
			TotalQuantity: int64(r.TotalQuantity), AvgDiscount: r.AvgDiscount,
			DiscountSum: r.DiscountSum, Count: int64(r.Count),
		}
	}
	return writeParquetFile(path, out)
}

func readMonthlyParquet(path string) ([]aggregate.MonthlyRow, error) {
	rows, err := readParquetFile[monthlyParquetRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]aggregate.MonthlyRow, len(rows))
	for i, r := range rows {
		out[i] = aggregate.MonthlyRow{
			SaleMonth: r.SaleMonth, TotalRevenue: r.TotalRevenue,
			TotalQuantity: int(r.TotalQuantity), AvgDiscount: r.AvgDiscount,
			DiscountSum: r.DiscountSum, Count: int(r.Count),
		}
	}
	return out, nil
}

func writeProductsParquet(path string, rows []aggregate.ProductRow) error {
	out := make([]productParquetRow, len(rows))
	for i, r := range rows {
		out[i] = productParquetRow{ProductKey: r.ProductKey, Revenue: r.Revenue, Quantity: int64(r.Quantity)}
	}
	return writeParquetFile(path, out)
}

func writeRegionsParquet(path string, rows []aggregate.RegionRow) error {
	out := make([]regionParquetRow, len(rows))
	for i, r := range rows {
		out[i] = regionParquetRow{Region: r.Region, TotalRevenue: r.TotalRevenue}
	}
	return writeParquetFile(path, out)
}

func writeCategoryParquet(path string, rows []aggregate.CategoryRow) error {
	out := make([]categoryParquetRow, len(rows))
	for i, r := range rows {
		out[i] = categoryParquetRow{Category: r.Category, AvgDiscount: r.AvgDiscount}
	}
	return writeParquetFile(path, out)
}

func writeAnomaliesParquet(path string, rows []model.CleanRecord) error {
	out := make([]anomalyParquetRow, len(rows))
	for i, r := range rows {
		out[i] = anomalyParquetRow{
			OrderID: r.OrderID, ProductName: r.ProductName, ProductKey: r.ProductKey,
			Category: r.Category, Quantity: int64(r.Quantity), UnitPrice: r.UnitPrice,
			DiscountPercent: r.DiscountPercent, Region: r.Region, SaleDate: r.SaleDate,
			SaleMonth: r.SaleMonth, CustomerEmail: r.CustomerEmail, Revenue: r.Revenue,
		}
	}
	return writeParquetFile(path, out)
}
