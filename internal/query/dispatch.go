package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/ziadkadry99/llmlibrarian/internal/answer"
	"github.com/ziadkadry99/llmlibrarian/internal/catalog"
	"github.com/ziadkadry99/llmlibrarian/internal/guardrail"
	"github.com/ziadkadry99/llmlibrarian/internal/intent"
	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
)

// runCatalog answers a structural question from the manifest.
func (e *Engine) runCatalog(ctx context.Context, a *ask) error {
	if a.scope.slug == "" {
		return missingScope(a.tag)
	}
	creq := catalog.Request{Slug: a.scope.slug, Force: a.req.Force}
	q := a.scope.query

	var (
		res catalog.Result
		err error
	)
	switch a.tag {
	case intent.FileList:
		years := lexicon.Years(q)
		if len(years) == 0 {
			return policyf("could not find a year in %q", q)
		}
		res, err = e.catalog.FileListByYear(creq, years[len(years)-1])
	case intent.Structure:
		res, err = e.catalog.Structure(creq, intent.ModeOf(q), intent.ExtensionsOf(q))
	case intent.StructureExtCount:
		exts := intent.ExtensionsOf(q)
		if len(exts) == 0 {
			return policyf("could not find a file type in %q", q)
		}
		res, err = e.catalog.Structure(creq, intent.ModeExtCount, exts)
	case intent.MetadataAggregate:
		dim, ok := intent.DimensionOf(q)
		if !ok {
			dim = intent.ByYear
		}
		res, err = e.catalog.MetadataAggregate(creq, dim)
	case intent.Timeline:
		from, to, _ := intent.YearRange(q)
		res, err = e.catalog.Timeline(creq, catalog.TimelineRange{From: from, To: to, Keyword: intent.TimelineKeyword(q)})
	case intent.CodeLanguage:
		year := 0
		if years := lexicon.Years(q); len(years) == 1 {
			year = years[0]
		}
		res, err = e.catalog.CodeLanguage(creq, year)
	case intent.ProjectCount:
		res, err = e.catalog.ProjectCount(ctx, creq)
	default:
		return fmt.Errorf("no catalog handler for %s", a.tag)
	}
	if err != nil {
		var stale *catalog.StaleError
		a.rec.Stale = errors.As(err, &stale)
		return err
	}

	a.rec.Stale = res.Stale
	a.resp.Branch = BranchCatalog
	a.resp.Catalog = &res
	a.resp.Body = res.Render(a.req.Quiet)
	return nil
}

// finish ends the request with a guardrail answer.
func (e *Engine) finish(a *ask, o *guardrail.Outcome) {
	a.rec.Guardrail = o.Name
	a.rec.GuardrailNoMatch = o.NoMatch
	a.rec.GuardrailReason = o.Reason
	a.rec.Sources = sourcePaths(o.Evidence)

	a.resp.Branch = BranchGuardrail
	a.resp.Guardrail = o.Name
	a.resp.Reason = o.Reason
	sources := answer.SourcesOf(o.Evidence)
	a.resp.Body = answer.Postprocess(o.Answer, answer.Options{Strict: true, Sources: sources, Scheme: a.settings.Editor})
	a.resp.Sources = answer.AggregateSources(o.Evidence)
	a.resp.Footer = answer.Footer(o.Evidence, a.settings.Editor)
}

// preRetrieval runs the guardrails that query the store themselves. A nil
// outcome means none applied.
func (e *Engine) preRetrieval(ctx context.Context, a *ask) (*guardrail.Outcome, error) {
	q, slug := a.scope.query, a.scope.slug
	switch a.tag {
	case intent.FieldLookup:
		return guardrail.FieldLookup(ctx, e.store, slug, q)
	case intent.MoneyYearTotal:
		return guardrail.IncomeYear(ctx, e.store, slug, q)
	case intent.TaxQuery:
		if e.ledger == nil {
			return nil, nil
		}
		minConf := e.cfg.Query.TaxMinConfidence
		return guardrail.NewTaxResolver(e.ledger, minConf).Resolve(ctx, slug, q)
	case intent.Lookup:
		if _, ok := guardrail.ParseRank(q); ok {
			return guardrail.CSVRank(ctx, e.store, slug, q)
		}
	}
	return nil, nil
}
