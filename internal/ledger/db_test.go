package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insert(t *testing.T, d *DB, rows ...Row) {
	t.Helper()
	for _, r := range rows {
		tokens, err := json.Marshal(r.EntityTokens)
		require.NoError(t, err)
		_, err = d.db.Exec(`INSERT INTO tax_ledger (silo, source, page, tax_year, form_type, field_code, field_label,
			entity_name, entity_tokens, normalized_decimal, confidence, tier, trace_ref)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Silo, r.Source, r.Page, r.TaxYear, r.FormType, r.FieldCode, r.FieldLabel,
			r.EntityName, string(tokens), r.NormalizedDecimal, r.Confidence, r.Tier, r.TraceRef)
		require.NoError(t, err)
	}
}

func TestRowsFiltersByYearAndSilo(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	insert(t, d,
		Row{Silo: "tax", Source: "/t/2023/w2-acme.pdf", Page: 1, TaxYear: 2023, FormType: "W-2", FieldCode: "W2_BOX_2",
			EntityName: "Acme Corp", EntityTokens: []string{"acme", "corp"}, NormalizedDecimal: "1200.00", Confidence: 0.9},
		Row{Silo: "tax", Source: "/t/2022/w2-acme.pdf", Page: 1, TaxYear: 2022, FormType: "W-2", FieldCode: "W2_BOX_2",
			EntityTokens: []string{"acme"}, NormalizedDecimal: "1100.00", Confidence: 0.9},
		Row{Silo: "other", Source: "/o/2023/w2.pdf", Page: 2, TaxYear: 2023, FormType: "W-2", FieldCode: "W2_BOX_1",
			EntityTokens: []string{}, NormalizedDecimal: "50000.00", Confidence: 0.8},
	)

	ctx := context.Background()
	rows, err := d.Rows(ctx, 2023, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "/o/2023/w2.pdf", rows[0].Source)
	assert.Equal(t, []string{"acme", "corp"}, rows[1].EntityTokens)

	rows, err = d.Rows(ctx, 2023, "tax")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1200.00", rows[0].NormalizedDecimal)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), FileName))
	assert.True(t, errors.Is(err, ErrUnavailable))
}
