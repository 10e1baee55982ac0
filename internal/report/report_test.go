package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"salesledger/internal/domain"
	"salesledger/internal/export"
	"salesledger/internal/store/memory"
)

var reportDay = time.Date(2024, time.March, 5, 12, 0, 0, 0, time.Local)

func seedSale(t *testing.T, repo *memory.Store, at time.Time, channel, item string, price int64, qty int) int64 {
	t.Helper()
	orderID, err := repo.CreateOrder(context.Background(), []domain.Sale{{
		ItemID:      1,
		ItemName:    item,
		Quantity:    qty,
		SalePrice:   price,
		RawPrice:    price / 3,
		Channel:     channel,
		TimestampMS: at.UnixMilli(),
	}})
	if err != nil {
		t.Fatalf("seed sale: %v", err)
	}
	return orderID
}

func TestGenerateFiltersWindowAndCancelledSales(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, export.NewLocalSink(t.TempDir()), 1)
	ctx := context.Background()

	seedSale(t, repo, reportDay, "Walk-in", "Burger", 150, 2)
	seedSale(t, repo, reportDay.AddDate(0, 0, 2), "Walk-in", "Fries", 60, 1)
	cancelled := seedSale(t, repo, reportDay.Add(time.Hour), "Walk-in", "Iced Tea", 40, 1)
	if err := repo.CancelOrder(ctx, cancelled); err != nil {
		t.Fatalf("cancel order: %v", err)
	}

	rep, err := engine.Generate(ctx, reportDay, reportDay)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(rep.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %+v", len(rep.Lines), rep.Lines)
	}
	line := rep.Lines[0]
	if line.ItemName != "Burger" || line.Total != 300 {
		t.Fatalf("unexpected line %+v", line)
	}
	if rep.Summary.TotalSales != 300 || rep.Summary.Profit != 300 {
		t.Fatalf("unexpected summary %+v", rep.Summary)
	}

	// The widened window keeps a sale recorded late the same day.
	seedSale(t, repo, reportDay.Add(11*time.Hour+59*time.Minute), "Walk-in", "Fries", 60, 1)
	rep, err = engine.Generate(ctx, reportDay, reportDay)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(rep.Lines) != 2 {
		t.Fatalf("expected late-evening sale included, got %d lines", len(rep.Lines))
	}
}

func TestGenerateResolvesDiscountsAndRoundsHalfToEven(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, export.NewLocalSink(t.TempDir()), 1)
	ctx := context.Background()

	promoID, err := repo.InsertChannel(ctx, domain.SalesChannel{Name: "Promo", Discount: 30})
	if err != nil {
		t.Fatalf("insert channel: %v", err)
	}

	// 15 * 0.7 = 10.5 rounds to 10, 25 * 0.7 = 17.5 rounds to 18.
	seedSale(t, repo, reportDay, "Promo", "Sticker", 15, 1)
	seedSale(t, repo, reportDay, "Promo", "Postcard", 25, 1)

	// Deleting the channel must not change how its past sales report.
	if err := repo.SoftDeleteChannel(ctx, promoID); err != nil {
		t.Fatalf("delete channel: %v", err)
	}

	if _, err := repo.InsertExpense(ctx, domain.Expense{Amount: 10, TimestampMS: reportDay.UnixMilli()}); err != nil {
		t.Fatalf("insert expense: %v", err)
	}

	rep, err := engine.Generate(ctx, reportDay, reportDay)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	totals := map[string]int64{}
	for _, line := range rep.Lines {
		if line.Discount != 30 {
			t.Fatalf("line %s resolved discount %d, want 30", line.ItemName, line.Discount)
		}
		totals[line.ItemName] = line.Total
	}
	if totals["Sticker"] != 10 || totals["Postcard"] != 18 {
		t.Fatalf("half-even line totals wrong: %v", totals)
	}
	// Summary sums exact amounts before rounding: 10.5 + 17.5 = 28.
	if rep.Summary.TotalSales != 28 {
		t.Fatalf("total sales = %d, want 28", rep.Summary.TotalSales)
	}
	if rep.Summary.TotalExpenses != 10 || rep.Summary.Profit != 18 {
		t.Fatalf("unexpected summary %+v", rep.Summary)
	}
}

func cellAt(rows [][]string, row, col int) string {
	if row >= len(rows) || col >= len(rows[row]) {
		return ""
	}
	return rows[row][col]
}

func TestWorkbookLayoutRoundTrip(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, export.NewLocalSink(t.TempDir()), 1)
	ctx := context.Background()

	seedSale(t, repo, reportDay, "Walk-in", "Burger", 150, 2)
	if _, err := repo.InsertExpense(ctx, domain.Expense{Amount: 45.5, TimestampMS: reportDay.UnixMilli()}); err != nil {
		t.Fatalf("insert expense: %v", err)
	}

	rep, err := engine.Generate(ctx, reportDay, reportDay)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, err := BuildWorkbook(rep)
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}

	if cellAt(rows, 0, 0) != "Item" || cellAt(rows, 0, 6) != "Time" {
		t.Fatalf("header row = %v", rows[0])
	}
	if cellAt(rows, 1, 0) != "Burger" || cellAt(rows, 1, 5) != "300" {
		t.Fatalf("sale row = %v", rows[1])
	}
	// Two blank separator rows before the expense block.
	if cellAt(rows, 2, 0) != "" || cellAt(rows, 3, 0) != "" {
		t.Fatalf("expected blank separator rows, got %v / %v", rows[2], rows[3])
	}
	if cellAt(rows, 4, 0) != "Expenses" {
		t.Fatalf("expense header row = %v", rows[4])
	}
	if cellAt(rows, 5, 0) != "45.5" {
		t.Fatalf("expense row = %v", rows[5])
	}
	if cellAt(rows, 8, 0) != "Total Sales" || cellAt(rows, 8, 1) != "300" {
		t.Fatalf("summary row = %v", rows[8])
	}
	if cellAt(rows, 9, 0) != "Total Expenses" {
		t.Fatalf("summary row = %v", rows[9])
	}
	if cellAt(rows, 10, 0) != "Profit" || cellAt(rows, 10, 1) != "254" {
		t.Fatalf("profit row = %v", rows[10])
	}
}

type fakeSink struct {
	name    string
	err     error
	folders [][]string
	uploads map[string][]byte
}

func newFakeSink(name string, err error) *fakeSink {
	return &fakeSink{name: name, err: err, uploads: map[string][]byte{}}
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) EnsureFolder(_ context.Context, path []string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.folders = append(s.folders, path)
	return "parent", nil
}

func (s *fakeSink) Upload(_ context.Context, parent, name string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploads[name] = data
	return parent + "/" + name, nil
}

func TestExportPrefersExternalSink(t *testing.T) {
	repo := memory.NewSeeded()
	external := newFakeSink("external", nil)
	local := newFakeSink("local", nil)
	engine := NewEngine(repo, external, local, 2)

	seedSale(t, repo, reportDay, "Walk-in", "Burger", 150, 1)

	result, err := engine.Export(context.Background(), reportDay, reportDay)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Sink != "external" || result.FellBack {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.FileName != "2024-03-05-2024-03-05.xlsx" {
		t.Fatalf("file name = %s", result.FileName)
	}
	if len(external.uploads) != 1 || len(local.uploads) != 0 {
		t.Fatalf("workbook went to the wrong sink")
	}
	if len(external.folders) != 1 || len(external.folders[0]) != 2 {
		t.Fatalf("expected nested export folder, got %v", external.folders)
	}
}

func TestExportFallsBackToLocalOnSinkFailure(t *testing.T) {
	repo := memory.NewSeeded()
	dir := t.TempDir()
	external := newFakeSink("external", export.ErrAuthRequired)
	engine := NewEngine(repo, external, export.NewLocalSink(dir), 1)

	seedSale(t, repo, reportDay, "Walk-in", "Burger", 150, 1)

	result, err := engine.Export(context.Background(), reportDay, reportDay)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Sink != "local" || !result.FellBack {
		t.Fatalf("expected local fallback, got %+v", result)
	}

	data, err := os.ReadFile(result.Location)
	if err != nil {
		t.Fatalf("exported file missing: %v", err)
	}
	if _, err := excelize.OpenReader(bytes.NewReader(data)); err != nil {
		t.Fatalf("fallback file is not a valid workbook: %v", err)
	}
}

func TestExportFailsWhenEverySinkFails(t *testing.T) {
	repo := memory.NewSeeded()
	boom := errors.New("disk full")
	engine := NewEngine(repo, newFakeSink("external", export.ErrAuthRequired), newFakeSink("local", boom), 1)

	seedSale(t, repo, reportDay, "Walk-in", "Burger", 150, 1)

	_, err := engine.Export(context.Background(), reportDay, reportDay)
	if !errors.Is(err, boom) {
		t.Fatalf("expected local sink error surfaced, got %v", err)
	}
}
