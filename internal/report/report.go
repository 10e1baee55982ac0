// Package report builds sales reports over a date range and exports
// them as xlsx workbooks.
package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"salesledger/internal/domain"
	"salesledger/internal/export"
	"salesledger/internal/store"
)

const timestampLayout = "2006-01-02 15:04:05"

// Exported workbooks live under this folder hierarchy on every sink.
var exportFolder = []string{"Sales Ledger", "Reports"}

type Engine struct {
	repo     store.Repository
	external export.Sink // nil when no external sink is configured
	local    export.Sink
	exports  *semaphore.Weighted
}

// NewEngine wires the reporting engine. maxConcurrentExports bounds
// how many workbook builds and uploads may run at once; report
// generation itself is unbounded.
func NewEngine(repo store.Repository, external, local export.Sink, maxConcurrentExports int64) *Engine {
	if maxConcurrentExports < 1 {
		maxConcurrentExports = 1
	}
	return &Engine{
		repo:     repo,
		external: external,
		local:    local,
		exports:  semaphore.NewWeighted(maxConcurrentExports),
	}
}

// Generate builds the report for an inclusive date range. The range
// widens to full local calendar days. Cancelled sales are excluded;
// every line total and the summary round half-to-even to whole
// currency units.
func (e *Engine) Generate(ctx context.Context, start, end time.Time) (domain.Report, error) {
	startMS, endMS := domain.DayWindow(start, end)
	if startMS > endMS {
		return domain.Report{}, fmt.Errorf("%w: start after end", store.ErrInvalidInput)
	}

	var (
		sales    []domain.Sale
		channels []domain.SalesChannel
		expenses []domain.Expense
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		sales, err = e.repo.SalesBetween(gctx, startMS, endMS, false)
		return err
	})
	group.Go(func() error {
		var err error
		channels, err = e.repo.ListChannels(gctx, true)
		return err
	})
	group.Go(func() error {
		var err error
		expenses, err = e.repo.ExpensesBetween(gctx, startMS, endMS)
		return err
	})
	if err := group.Wait(); err != nil {
		return domain.Report{}, err
	}

	lines := make([]domain.ReportLine, 0, len(sales))
	salesTotal := decimal.Zero
	for _, sale := range sales {
		discount := domain.ResolveDiscount(channels, sale.Channel)
		lineTotal := domain.DiscountedTotal(sale.SalePrice, sale.Quantity, discount)
		salesTotal = salesTotal.Add(lineTotal)
		lines = append(lines, domain.ReportLine{
			ItemName:  sale.ItemName,
			Quantity:  sale.Quantity,
			SalePrice: sale.SalePrice,
			Channel:   sale.Channel,
			Discount:  discount,
			Total:     domain.RoundToUnit(lineTotal),
			Timestamp: sale.Time().Format(timestampLayout),
		})
	}

	expenseTotal := decimal.Zero
	for _, expense := range expenses {
		expenseTotal = expenseTotal.Add(decimal.NewFromFloat(expense.Amount))
	}

	totalSales := domain.RoundToUnit(salesTotal)
	totalExpenses := domain.RoundToUnit(expenseTotal)
	return domain.Report{
		Start:    time.UnixMilli(startMS),
		End:      time.UnixMilli(endMS),
		Lines:    lines,
		Expenses: expenses,
		Summary: domain.ReportSummary{
			TotalSales:    totalSales,
			TotalExpenses: totalExpenses,
			Profit:        totalSales - totalExpenses,
		},
	}, nil
}

// Export generates the report, renders the workbook and stores it.
// The external sink is tried first when configured; any failure there,
// including expired authorization, degrades to the local sink so the
// report is never lost.
func (e *Engine) Export(ctx context.Context, start, end time.Time) (domain.ExportResult, error) {
	if err := e.exports.Acquire(ctx, 1); err != nil {
		return domain.ExportResult{}, err
	}
	defer e.exports.Release(1)

	rep, err := e.Generate(ctx, start, end)
	if err != nil {
		return domain.ExportResult{}, err
	}
	data, err := BuildWorkbook(rep)
	if err != nil {
		return domain.ExportResult{}, err
	}
	name := fileName(rep)

	fellBack := false
	if e.external != nil {
		location, err := e.store(ctx, e.external, name, data)
		if err == nil {
			return domain.ExportResult{FileName: name, Sink: e.external.Name(), Location: location}, nil
		}
		fellBack = true
		log.Printf("[report] WARN: external sink failed, falling back to local: %v", err)
	}

	location, err := e.store(ctx, e.local, name, data)
	if err != nil {
		return domain.ExportResult{}, fmt.Errorf("store report %s: %w", name, err)
	}
	return domain.ExportResult{
		FileName: name,
		Sink:     e.local.Name(),
		Location: location,
		FellBack: fellBack,
	}, nil
}

func (e *Engine) store(ctx context.Context, sink export.Sink, name string, data []byte) (string, error) {
	parent, err := sink.EnsureFolder(ctx, exportFolder)
	if err != nil {
		return "", err
	}
	return sink.Upload(ctx, parent, name, data)
}

func fileName(rep domain.Report) string {
	return rep.Start.Format("2006-01-02") + "-" + rep.End.Format("2006-01-02") + ".xlsx"
}
