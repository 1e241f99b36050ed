package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/segment-cli/internal/model"
	"github.com/sells-group/segment-cli/internal/resilience"
	"github.com/sells-group/segment-cli/internal/store"
)

func newTestBucket(t *testing.T) *blob.Bucket {
	t.Helper()
	bucket, err := fileblob.OpenBucket(t.TempDir(), nil)
	require.NoError(t, err)
	return bucket
}

func newTestExporter(t *testing.T, formats ...string) (*Exporter, *blob.Bucket) {
	t.Helper()
	bucket := newTestBucket(t)
	e, err := New(bucket, "exports/", formats, resilience.RetryConfig{MaxAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() }) //nolint:errcheck
	return e, bucket
}

func testTables() store.Tables {
	d := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	return store.Tables{
		Ledger: []model.Transaction{
			{DateKey: 20250115, Date: d, Year: 2025, Month: 1, Day: 15, CustomerKey: "CLT-001", Name: "Customer 1",
				StoreKey: "STR-01", StoreDescription: "Store 1 - Zone Central", UnitCost: 12.345, UnitPrice: 10.1,
				SalesQuantity: 3, Income: 30.3, Expense: 37.035, Profit: -6.735, BudgetProfit: 3.3675,
				PercentCompliance: 12.5, ProfitAccumulated: -6.735, BudgetProfitAccumulated: 3.3675},
		},
		Customers: []model.CustomerSegment{
			{CustomerKey: "CLT-001", Name: "Customer 1", Profit: -6.735, BudgetProfit: 3.3675, Income: 30.3, PercentCompliance: 0, Segment: 1},
			{CustomerKey: "CLT-002", Name: "Customer 2", Profit: 900, BudgetProfit: 1000, Income: 5000, PercentCompliance: 90, Segment: 4},
		},
		Monthly: []model.MonthlySegment{
			{Year: 2025, Month: 1, CustomerKey: "CLT-001", Name: "Customer 1", Profit: -6.735, BudgetProfit: 3.3675, Income: 30.3, PercentCompliance: 12.5, Segment: 1},
		},
	}
}

func TestNew_RejectsFormats(t *testing.T) {
	bucket := newTestBucket(t)
	defer bucket.Close() //nolint:errcheck

	_, err := New(bucket, "", nil, resilience.RetryConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one format")

	_, err = New(bucket, "", []string{"csv"}, resilience.RetryConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "csv"`)
}

func TestKey(t *testing.T) {
	e, _ := newTestExporter(t, FormatParquet)
	assert.Equal(t, "exports/run-1/customer_segments.parquet", e.Key("run-1", store.CustomersTable, FormatParquet))
}

func TestExport_Parquet(t *testing.T) {
	e, bucket := newTestExporter(t, FormatParquet)
	ctx := context.Background()

	m, err := e.Export(ctx, "run-1", testTables())
	require.NoError(t, err)
	require.Len(t, m.Files, 3)

	info := m.Files["customer_segments.parquet"]
	assert.Equal(t, int64(2), info.RowCount)
	assert.Equal(t, "exports/run-1/customer_segments.parquet", info.Key)

	data, err := bucket.ReadAll(ctx, info.Key)
	require.NoError(t, err)
	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), info.Checksum)
	assert.Equal(t, int64(len(data)), info.ByteSize)

	rows, err := parquet.Read[customerRecord](bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "run-1", rows[0].RunID)
	assert.Equal(t, "Segment 1", rows[0].Segment)
	assert.InDelta(t, -6.74, rows[0].Profit, 1e-9)

	ledgerData, err := bucket.ReadAll(ctx, "exports/run-1/ledger_transactions.parquet")
	require.NoError(t, err)
	ledger, err := parquet.Read[ledgerRecord](bytes.NewReader(ledgerData), int64(len(ledgerData)))
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, "2025-01-15", ledger[0].Date)
	assert.InDelta(t, 12.35, ledger[0].UnitCost, 1e-9)
}

func TestExport_XLSX(t *testing.T) {
	e, bucket := newTestExporter(t, FormatXLSX)
	ctx := context.Background()

	m, err := e.Export(ctx, "run-2", testTables())
	require.NoError(t, err)

	data, err := bucket.ReadAll(ctx, m.Files["monthly_segments.xlsx"].Key)
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, store.MonthlyTable, sheet.Name)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "run_id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "segment", sheet.Rows[0].Cells[9].String())
	assert.Equal(t, "CLT-001", sheet.Rows[1].Cells[3].String())
	assert.Equal(t, "Segment 1", sheet.Rows[1].Cells[9].String())
}

func TestExport_ManifestMirrors(t *testing.T) {
	e, bucket := newTestExporter(t, FormatParquet, FormatXLSX)
	ctx := context.Background()

	m, err := e.Export(ctx, "run-3", testTables())
	require.NoError(t, err)
	assert.Len(t, m.Files, 6)

	raw, err := bucket.ReadAll(ctx, "exports/run-3/_manifest.json")
	require.NoError(t, err)
	var fromJSON Manifest
	require.NoError(t, json.Unmarshal(raw, &fromJSON))
	assert.Equal(t, "run-3", fromJSON.RunID)
	assert.Equal(t, m.Files, fromJSON.Files)

	raw, err = bucket.ReadAll(ctx, "exports/run-3/_manifest.yaml")
	require.NoError(t, err)
	var fromYAML Manifest
	require.NoError(t, yaml.Unmarshal(raw, &fromYAML))
	assert.Equal(t, m.Files, fromYAML.Files)
}

func TestExport_EmptyTables(t *testing.T) {
	e, _ := newTestExporter(t, FormatParquet)

	m, err := e.Export(context.Background(), "empty", store.Tables{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Files["ledger_transactions.parquet"].RowCount)
}

func TestExport_CanceledContext(t *testing.T) {
	e, bucket := newTestExporter(t, FormatParquet)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Export(ctx, "run-4", testTables())
	require.Error(t, err)

	exists, err := bucket.Exists(context.Background(), "exports/run-4/_manifest.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOpen_FileURL(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(context.Background(), "file://"+dir, "", []string{FormatParquet}, resilience.RetryConfig{MaxAttempts: 1})
	require.NoError(t, err)
	require.NoError(t, e.Close())
}
