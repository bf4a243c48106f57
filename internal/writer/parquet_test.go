package writer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salesetl/pipeline/internal/aggregate"
)

func TestWriteAndReadMonthlyParquetRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monthly_sales_summary.parquet")
	rows := []aggregate.MonthlyRow{
		{SaleMonth: "2024-01", TotalRevenue: 150.5, TotalQuantity: 3, AvgDiscount: 0.2, DiscountSum: 0.4, Count: 2},
		{SaleMonth: "2024-02", TotalRevenue: 75, TotalQuantity: 1, AvgDiscount: 0, DiscountSum: 0, Count: 1},
	}

	require.NoError(t, writeMonthlyParquet(path, rows))

	got, err := readMonthlyParquet(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, rows[0].SaleMonth, got[0].SaleMonth)
	require.InDelta(t, rows[0].TotalRevenue, got[0].TotalRevenue, 1e-9)
	require.Equal(t, rows[0].Count, got[0].Count)
}

func TestGoldWriterParquetFormatWritesAllTables(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGoldWriter(dir, "parquet")
	require.NoError(t, err)

	result := aggregate.Result{
		Monthly:  []aggregate.MonthlyRow{{SaleMonth: "2024-01", TotalRevenue: 10, TotalQuantity: 1, AvgDiscount: 0, DiscountSum: 0, Count: 1}},
		Products: []aggregate.ProductRow{{ProductKey: "p", Revenue: 10, Quantity: 1}},
	}
	require.NoError(t, g.WriteAll(result))

	rows, err := readMonthlyParquet(g.tablePath("monthly_sales_summary"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
