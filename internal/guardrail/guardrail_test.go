package guardrail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/llmlibrarian/internal/ledger"
	"github.com/ziadkadry99/llmlibrarian/internal/mock"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

func chunk(id, source, doc string) vectordb.Hit {
	return vectordb.Hit{ID: id, Document: doc, Metadata: vectordb.Metadata{Source: source, Silo: "tax"}}
}

func corpus(chunks ...vectordb.Hit) *mock.Corpus {
	return &mock.Corpus{Chunks: chunks}
}

const fieldQuery = "on 2024 form 1040 what is line 9 total income"

func TestFieldLookupFound(t *testing.T) {
	store := corpus(
		chunk("a", "/Tax/2024/2024 Federal Income Tax Return.pdf", "Form 1040 (2024)\nline 9: 7,522."),
		chunk("b", "/Tax/2021/2021 Federal Income Tax Return.pdf", "Form 1040 (2021)\nline 9: 99,999."),
	)

	out, err := FieldLookup(context.Background(), store, "tax", fieldQuery)
	require.NoError(t, err)
	require.True(t, out.Final())
	assert.True(t, out.Matched)
	assert.Equal(t, "Form 1040 line 9 (2024): 7,522.", out.Answer)
	require.Len(t, out.Evidence, 1)
	assert.Equal(t, "a", out.Evidence[0].ID)
}

func TestFieldLookupNeverCrossesYears(t *testing.T) {
	t.Run("no year docs", func(t *testing.T) {
		store := corpus(chunk("b", "/Tax/2021/return.pdf", "Form 1040 (2021)\nline 9: 99,999."))
		out, err := FieldLookup(context.Background(), store, "tax", fieldQuery)
		require.NoError(t, err)
		assert.Equal(t, ReasonYearDocsNotIndexed, out.Reason)
		assert.True(t, out.NoMatch)
		assert.Contains(t, out.Answer, "I could not find indexed tax documents for 2024")
		assert.NotContains(t, out.Answer, "99,999")
	})

	t.Run("year docs without line", func(t *testing.T) {
		store := corpus(
			chunk("a", "/Tax/2024/return.pdf", "Form 1040 (2024)\nline 1a: 5,000"),
			chunk("b", "/Tax/2021/return.pdf", "Form 1040 (2021)\nline 9: 99,999."),
		)
		out, err := FieldLookup(context.Background(), store, "tax", fieldQuery)
		require.NoError(t, err)
		assert.Equal(t, ReasonMissingLine, out.Reason)
		assert.Contains(t, out.Answer, "I found 2024 tax documents, but I could not find Form 1040 line 9")
		for _, e := range out.Evidence {
			assert.Contains(t, e.Metadata.Source, "2024")
		}
	})
}

func TestFieldLookupShapes(t *testing.T) {
	form, ok := FormIn("form 1040")
	require.True(t, ok)

	tests := []struct {
		name string
		text string
		line string
		want string
	}{
		{"label first", "line 9: 7,522.", "9", "7,522"},
		{"label with words", "Line 11 Adjusted gross income ..... 65,010.25", "11", "65,010.25"},
		{"row table", "9 | Total income | 7,522", "9", "7,522"},
		{"no partial line", "line 91: 12", "9", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := form.ExtractLine(tt.text, tt.line)
			assert.Equal(t, tt.want != "", ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldLookupNotApplicable(t *testing.T) {
	out, err := FieldLookup(context.Background(), corpus(), "", "what is on line 9")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestIncomeYear(t *testing.T) {
	ctx := context.Background()

	t.Run("line 9", func(t *testing.T) {
		store := corpus(chunk("a", "/Tax/2023/return.pdf", "Form 1040\nline 9: 81,200\nline 11: 76,000"))
		out, err := IncomeYear(ctx, store, "", "how much did I make in 2023")
		require.NoError(t, err)
		assert.Equal(t, "Total income (Form 1040 line 9, 2023): 81,200.", out.Answer)
	})

	t.Run("agi fallback", func(t *testing.T) {
		store := corpus(chunk("a", "/Tax/2023/return.pdf", "Form 1040\nline 11: 76,000"))
		out, err := IncomeYear(ctx, store, "", "how much did I make in 2023")
		require.NoError(t, err)
		assert.Contains(t, out.Answer, "Adjusted gross income (Form 1040 line 11, 2023): 76,000.")
		assert.Contains(t, out.Answer, "fallback")
	})

	t.Run("disambiguation", func(t *testing.T) {
		store := corpus(chunk("a", "/Tax/2023/2023 tax return.pdf", "Summary page without lines"))
		out, err := IncomeYear(ctx, store, "", "how much did I make in 2023")
		require.NoError(t, err)
		assert.Equal(t, ReasonIncomeDisambiguation, out.Reason)
		assert.True(t, out.Final())
	})

	t.Run("fallthrough", func(t *testing.T) {
		store := corpus(chunk("a", "/Work/2023/invoices.md", "Invoice 7: 1,200 consulting"))
		out, err := IncomeYear(ctx, store, "", "how much consulting income did I earn in 2023")
		require.NoError(t, err)
		assert.False(t, out.Final())
		assert.Equal(t, ReasonIncomeNoMatch, out.Reason)
		assert.Len(t, out.OverrideEvidence, 1)
		assert.Contains(t, out.PromptSuffix, "List every income row")
	})

	t.Run("fallthrough caps each source", func(t *testing.T) {
		store := corpus(
			chunk("a1", "/Work/2023/invoices.md", "Invoice 1: 900 consulting"),
			chunk("a2", "/Work/2023/invoices.md", "Invoice 2: 1,100 consulting"),
			chunk("a3", "/Work/2023/invoices.md", "Invoice 3: 1,000 consulting"),
			chunk("a4", "/Work/2023/invoices.md", "Invoice 4: 1,300 consulting"),
			chunk("a5", "/Work/2023/invoices.md", "Invoice 5: 700 consulting"),
			chunk("b1", "/Work/2023/royalties.md", "Royalty statement: 450"),
		)
		out, err := IncomeYear(ctx, store, "", "how much consulting income did I earn in 2023")
		require.NoError(t, err)
		require.Len(t, out.OverrideEvidence, 4)
		ids := make([]string, len(out.OverrideEvidence))
		for i, h := range out.OverrideEvidence {
			ids[i] = h.ID
		}
		assert.Equal(t, []string{"a1", "a2", "a3", "b1"}, ids)
	})

	t.Run("no year docs", func(t *testing.T) {
		out, err := IncomeYear(ctx, corpus(chunk("a", "/Tax/2022/r.pdf", "line 9: 5")), "", "how much did I make in 2023")
		require.NoError(t, err)
		assert.Equal(t, ReasonYearDocsNotIndexed, out.Reason)
	})
}

func TestCSVRank(t *testing.T) {
	store := corpus(
		chunk("b", "/data/sales.csv", "CSV row 2: Rank=2 | Restaurant=Tao | Sales=39000000"),
		chunk("a", "/data/sales.csv", "CSV row 1: Rank=1 | Restaurant=Carmine's (Times Square) | Sales=39080335"),
	)

	out, err := CSVRank(context.Background(), store, "", "what restaurant was ranked number 1 in 2020")
	require.NoError(t, err)
	require.True(t, out.Final())
	assert.Equal(t, "Rank 1: Carmine's (Times Square)", out.Answer)

	gets := store.Gets()
	require.Len(t, gets, 1)
	assert.Equal(t, []string{"CSV row"}, gets[0].WhereDocument.Contains)

	out, err = CSVRank(context.Background(), store, "", "what restaurant was ranked number 9")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestParseRank(t *testing.T) {
	n, ok := ParseRank("who ranked #3 last year")
	require.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = ParseRank("what is my rent")
	assert.False(t, ok)
}

func TestDirectValueCanonicalWins(t *testing.T) {
	hits := []vectordb.Hit{
		chunk("x", "/notes/2025-04-06-margin-contradiction.md", "Aster Grill operating margin: 14.9%"),
		chunk("y", "/notes/2025-04-05-canonical-margin.md", "Aster Grill operating margin: 18.2%"),
	}
	out := DirectValue("What is Aster Grill operating margin?", hits)
	require.True(t, out.Final())
	assert.Contains(t, out.Answer, "operating margin: 18.2%")
	assert.Equal(t, "y", out.Evidence[0].ID)
}

func TestDirectValueEqualConflict(t *testing.T) {
	hits := []vectordb.Hit{
		chunk("x", "/notes/q1.md", "Aster Grill operating margin: 14.9%"),
		chunk("y", "/notes/q2.md", "Aster Grill operating margin: 18.2%"),
	}
	out := DirectValue("What is Aster Grill operating margin?", hits)
	require.NotNil(t, out)
	assert.Equal(t, ReasonDirectValueConflict, out.Reason)
	assert.Contains(t, out.Answer, "don't have enough evidence")
	assert.Contains(t, out.Answer, "14.9%")
	assert.Contains(t, out.Answer, "18.2%")
}

func TestDirectValueNotApplicable(t *testing.T) {
	assert.Nil(t, DirectValue("tell me about aster grill", nil))
	assert.Nil(t, DirectValue("What is Aster Grill operating margin?", []vectordb.Hit{chunk("x", "/a.md", "no numbers here")}))
}

func TestSourcePriority(t *testing.T) {
	assert.Equal(t, 2, SourcePriority("/x/2025-04-05-canonical-margin.md"))
	assert.Equal(t, -2, SourcePriority("/x/draft.md"))
	assert.Zero(t, SourcePriority("/x/notes.md"))
}

func w2(silo, source, entity, field, value string, conf float64) ledger.Row {
	return ledger.Row{
		Silo: silo, Source: source, Page: 1, TaxYear: 2023, FormType: "W-2",
		FieldCode: field, EntityName: entity, EntityTokens: []string{},
		NormalizedDecimal: value, Confidence: conf,
	}
}

func TestTaxResolver(t *testing.T) {
	ctx := context.Background()
	rows := []ledger.Row{
		w2("tax", "/t/acme-w2.pdf", "Acme Corp", "W2_BOX_1", "50000.00", 0.9),
		w2("tax", "/t/acme-w2.pdf", "Acme Corp", "W2_BOX_2", "4321.50", 0.9),
		w2("tax", "/t/acme-w2-copy.pdf", "Acme Corp", "W2_BOX_1", "50000.00", 0.9),
		w2("tax", "/t/beta-w2.pdf", "Beta LLC", "W2_BOX_1", "12000.00", 0.8),
		w2("tax", "/t/beta-w2.pdf", "Beta LLC", "W2_BOX_2", "2", 0.9),
		w2("tax", "/t/beta-w2.pdf", "Beta LLC", "W2_BOX_17", "800.00", 0.3),
	}
	r := NewTaxResolver(mock.StaticLedger(rows...), 0)

	t.Run("single value", func(t *testing.T) {
		out, err := r.Resolve(ctx, "tax", "how much federal tax was withheld in 2023")
		require.NoError(t, err)
		require.True(t, out.Matched)
		assert.Equal(t, "Federal income tax withheld for 2023: $4,321.50.", out.Answer)
	})

	t.Run("wages sum across employers", func(t *testing.T) {
		out, err := r.Resolve(ctx, "tax", "what were my total wages on my w-2s in 2023")
		require.NoError(t, err)
		require.True(t, out.Matched)
		assert.Contains(t, out.Answer, "$62,000.00")
		assert.Contains(t, out.Answer, "Acme Corp $50,000.00 + Beta LLC $12,000.00")
	})

	t.Run("employer filter", func(t *testing.T) {
		out, err := r.Resolve(ctx, "tax", "wages from beta in 2023")
		require.NoError(t, err)
		assert.Contains(t, out.Answer, "$12,000.00")
	})

	t.Run("low confidence dropped", func(t *testing.T) {
		out, err := r.Resolve(ctx, "tax", "how much state tax was withheld in 2023")
		require.NoError(t, err)
		assert.Equal(t, ReasonTaxNoMatch, out.Reason)
	})

	t.Run("box number", func(t *testing.T) {
		out, err := r.Resolve(ctx, "tax", "what is in w-2 box 1 for acme for 2023")
		require.NoError(t, err)
		assert.Equal(t, "W-2 box 1 for 2023 (acme): $50,000.00.", out.Answer)
	})

	t.Run("not a tax metric", func(t *testing.T) {
		out, err := r.Resolve(ctx, "tax", "what happened in 2023")
		require.NoError(t, err)
		assert.Nil(t, out)
	})
}

func TestTaxConflictAndScope(t *testing.T) {
	ctx := context.Background()

	conflict := NewTaxResolver(mock.StaticLedger(
		w2("tax", "/t/a.pdf", "Acme", "W2_BOX_2", "100.25", 0.9),
		w2("tax", "/t/b.pdf", "Acme", "W2_BOX_2", "200.75", 0.9),
	), 0)
	out, err := conflict.Resolve(ctx, "tax", "federal withholding 2023")
	require.NoError(t, err)
	assert.Equal(t, ReasonTaxConflict, out.Reason)
	assert.Contains(t, out.Answer, "$100.25")
	assert.Contains(t, out.Answer, "$200.75")

	spread := NewTaxResolver(mock.StaticLedger(
		w2("home", "/h/a.pdf", "Acme", "W2_BOX_2", "100.25", 0.9),
		w2("work", "/w/a.pdf", "Acme", "W2_BOX_2", "100.25", 0.9),
	), 0)
	out, err = spread.Resolve(ctx, "", "federal withholding 2023")
	require.NoError(t, err)
	assert.Equal(t, ReasonTaxAmbiguousScope, out.Reason)
	assert.Contains(t, out.Answer, "home, work")
}

func TestTaxResolverWithoutLedger(t *testing.T) {
	r := NewTaxResolver(&mock.Ledger{RowsFn: func(context.Context, int, string) ([]ledger.Row, error) {
		return nil, ledger.ErrUnavailable
	}}, 0)
	out, err := r.Resolve(context.Background(), "", "federal withholding 2023")
	require.NoError(t, err)
	assert.Nil(t, out)

	boom := errors.New("boom")
	r = NewTaxResolver(&mock.Ledger{RowsFn: func(context.Context, int, string) ([]ledger.Row, error) {
		return nil, boom
	}}, 0)
	_, err = r.Resolve(context.Background(), "", "federal withholding 2023")
	assert.ErrorIs(t, err, boom)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$1,234,567.05", formatCents(123456705))
	assert.Equal(t, "-$12.00", formatCents(-1200))
	assert.Equal(t, "$0.99", formatCents(99))
}
