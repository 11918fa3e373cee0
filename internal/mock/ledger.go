package mock

import (
	"context"

	"github.com/ziadkadry99/llmlibrarian/internal/ledger"
)

// Ledger is a mock tax ledger.
type Ledger struct {
	RowsFn func(ctx context.Context, year int, silo string) ([]ledger.Row, error)
}

func (l *Ledger) Rows(ctx context.Context, year int, silo string) ([]ledger.Row, error) {
	if l.RowsFn == nil {
		return nil, nil
	}
	return l.RowsFn(ctx, year, silo)
}

// StaticLedger serves rows filtered by year and silo like the real ledger.
func StaticLedger(rows ...ledger.Row) *Ledger {
	return &Ledger{RowsFn: func(_ context.Context, year int, silo string) ([]ledger.Row, error) {
		var out []ledger.Row
		for _, r := range rows {
			if r.TaxYear == year && (silo == "" || r.Silo == silo) {
				out = append(out, r)
			}
		}
		return out, nil
	}}
}
