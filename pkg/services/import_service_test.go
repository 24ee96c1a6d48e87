package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salesworks/sales-engine/pkg/apperrors"
	"github.com/salesworks/sales-engine/pkg/models"
)

const importCSV = `customer,product,quantity,price,discount,date,agent
ООО "Ромашка",Widget,2,100,0,2024-03-01,Петров П.П.
РОМАШКА,Gadget,1,50,0,2024-03-01,Петров П.П.
Acme LLC,Widget,3,10,0,02.03.2024,
`

func newTestImportService(sales *mockSaleRepository, runs *mockImportRunRepository) (ImportService, *mockEntityStore) {
	store := newMockEntityStore()
	return NewImportService(store, sales, runs, 4, zap.NewNop()), store
}

func TestImport_HappyPath(t *testing.T) {
	sales := &mockSaleRepository{}
	runs := &mockImportRunRepository{}
	svc, store := newTestImportService(sales, runs)

	result, err := svc.Import(context.Background(), strings.NewReader(importCSV), "sales.csv", "upload-1")
	require.NoError(t, err)

	assert.Equal(t, models.ImportStateCompleted, result.State)
	assert.Empty(t, result.Errors)
	// Rows 1-2 share customer+agent+date and collapse into one sale.
	assert.Equal(t, 2, result.Sales.Created)
	assert.Equal(t, 0, result.Sales.Skipped)
	// ромашка, widget, gadget, петров п.п., acme
	assert.Equal(t, 5, result.Entities.Created)
	assert.Equal(t, 5, store.creates)

	require.Len(t, sales.sales, 2)
	var grouped *persistedSale
	for i := range sales.sales {
		if len(sales.sales[i].sale.Items) == 2 {
			grouped = &sales.sales[i]
		}
	}
	require.NotNil(t, grouped, "expected one sale with two items")
	assert.True(t, grouped.sale.TotalAmount.Equal(dec("250")), "got %s", grouped.sale.TotalAmount)

	// The audit record is persisted in the terminal state.
	require.Len(t, runs.runs, 1)
	assert.Equal(t, models.ImportStateCompleted, runs.runs[0].State)
	assert.NotNil(t, runs.runs[0].FinishedAt)
}

func TestImport_RerunSkipsEverything(t *testing.T) {
	sales := &mockSaleRepository{}
	runs := &mockImportRunRepository{}
	svc, _ := newTestImportService(sales, runs)
	ctx := context.Background()

	first, err := svc.Import(ctx, strings.NewReader(importCSV), "sales.csv", "upload-1")
	require.NoError(t, err)
	require.Equal(t, 2, first.Sales.Created)

	second, err := svc.Import(ctx, strings.NewReader(importCSV), "sales.csv", "upload-1")
	require.NoError(t, err)

	assert.Equal(t, 0, second.Sales.Created)
	assert.Equal(t, 3, second.Sales.Skipped)
	assert.Equal(t, 0, second.Entities.Created)
	require.Len(t, sales.sales, 2, "no new sales on re-run")
}

func TestImport_DifferentSourceIsNotDeduplicated(t *testing.T) {
	sales := &mockSaleRepository{}
	runs := &mockImportRunRepository{}
	svc, _ := newTestImportService(sales, runs)
	ctx := context.Background()

	_, err := svc.Import(ctx, strings.NewReader(importCSV), "sales.csv", "upload-1")
	require.NoError(t, err)
	second, err := svc.Import(ctx, strings.NewReader(importCSV), "sales.csv", "upload-2")
	require.NoError(t, err)

	assert.Equal(t, 2, second.Sales.Created)
	assert.Equal(t, 0, second.Sales.Skipped)
}

func TestImport_BadRowsAreReportedAndSkipped(t *testing.T) {
	csv := `customer,quantity,price,date
Acme,2,100,2024-03-01
,1,50,2024-03-01
Beta,abc,50,2024-03-01
Gamma,1,10,not-a-date
Delta,1,20,2024-03-05
`
	sales := &mockSaleRepository{}
	runs := &mockImportRunRepository{}
	svc, _ := newTestImportService(sales, runs)

	result, err := svc.Import(context.Background(), strings.NewReader(csv), "sales.csv", "upload-1")
	require.NoError(t, err)

	assert.Equal(t, models.ImportStateCompleted, result.State)
	assert.Equal(t, 2, result.Sales.Created)
	require.Len(t, result.Errors, 3)
	// Errors come back ordered by source row.
	assert.Equal(t, 2, result.Errors[0].RowIndex)
	assert.Equal(t, 3, result.Errors[1].RowIndex)
	assert.Equal(t, 4, result.Errors[2].RowIndex)
}

func TestImport_NegativeLineAmountFlooredWithWarning(t *testing.T) {
	csv := `customer,quantity,price,discount,date
Acme,1,100,150,2024-03-01
`
	sales := &mockSaleRepository{}
	runs := &mockImportRunRepository{}
	svc, _ := newTestImportService(sales, runs)

	result, err := svc.Import(context.Background(), strings.NewReader(csv), "sales.csv", "upload-1")
	require.NoError(t, err)

	require.Len(t, sales.sales, 1)
	assert.True(t, sales.sales[0].sale.TotalAmount.IsZero())
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, models.WarningComputationAnomaly, result.Warnings[0].Kind)
}

func TestImport_UnsupportedFormatFailsRun(t *testing.T) {
	sales := &mockSaleRepository{}
	runs := &mockImportRunRepository{}
	svc, _ := newTestImportService(sales, runs)

	_, err := svc.Import(context.Background(), strings.NewReader("{}"), "sales.json", "upload-1")
	require.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)

	// The failed run is still audited.
	require.Len(t, runs.runs, 1)
	assert.Equal(t, models.ImportStateFailed, runs.runs[0].State)
	assert.Empty(t, sales.sales)
}

func TestImport_EmptySheetFailsRun(t *testing.T) {
	sales := &mockSaleRepository{}
	runs := &mockImportRunRepository{}
	svc, _ := newTestImportService(sales, runs)

	_, err := svc.Import(context.Background(), strings.NewReader("customer,quantity\n"), "sales.csv", "upload-1")
	require.ErrorIs(t, err, apperrors.ErrEmptySheet)
}

func TestImport_CancelledContextAbortsAndReturns(t *testing.T) {
	var b strings.Builder
	b.WriteString("customer,quantity,price,date\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "Customer %d,1,10,2024-03-01\n", i)
	}

	sales := &mockSaleRepository{}
	runs := &mockImportRunRepository{}
	svc := NewImportService(newMockEntityStore(), sales, runs, 2, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Import must return promptly even with more rows than workers;
	// a stuck producer would leave this goroutine blocked forever.
	done := make(chan error, 1)
	go func() {
		_, err := svc.Import(ctx, strings.NewReader(b.String()), "sales.csv", "upload-1")
		done <- err
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Import did not return after context cancellation")
	}

	assert.Empty(t, sales.sales, "no sales persist after abort")
	// The cancelled run still leaves a Failed audit record.
	require.Len(t, runs.runs, 1)
	assert.Equal(t, models.ImportStateFailed, runs.runs[0].State)
}

func TestImport_GetRunReturnsAuditRecord(t *testing.T) {
	sales := &mockSaleRepository{}
	runs := &mockImportRunRepository{}
	svc, _ := newTestImportService(sales, runs)
	ctx := context.Background()

	result, err := svc.Import(ctx, strings.NewReader(importCSV), "sales.csv", "upload-1")
	require.NoError(t, err)

	run, err := svc.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "upload-1", run.SourceID)
	assert.Equal(t, models.ImportStateCompleted, run.State)
}

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"100", "100"},
		{"100.50", "100.5"},
		{"100,50", "100.5"},
		{"1 250,75", "1250.75"},
		{"1,250.75", "1250.75"},
		{"1,250,000", "1250000"},
	}
	for _, tc := range cases {
		got, err := parseDecimal(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.True(t, got.Equal(dec(tc.want)), "input %q: got %s", tc.in, got)
	}

	_, err := parseDecimal("")
	require.Error(t, err)
	_, err = parseDecimal("abc")
	require.Error(t, err)
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-03-05", "05.03.2024", "05-03-2024", "2024/03/05", "05/03/2024", "5 Mar 2024"} {
		got, err := parseDate(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, day("2024-03-05"), got, "input %q", in)
	}

	_, err := parseDate("03/2024")
	require.Error(t, err)
}
