package query

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/answer"
	"github.com/ziadkadry99/llmlibrarian/internal/assembler"
	"github.com/ziadkadry99/llmlibrarian/internal/catalog"
	"github.com/ziadkadry99/llmlibrarian/internal/confidence"
	"github.com/ziadkadry99/llmlibrarian/internal/guardrail"
	"github.com/ziadkadry99/llmlibrarian/internal/intent"
	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/retrieval"
	"github.com/ziadkadry99/llmlibrarian/internal/scope"
	"github.com/ziadkadry99/llmlibrarian/internal/trace"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// maxActivitySources bounds the source filter of code-activity questions.
const maxActivitySources = 200

var codeActivityRe = regexp.MustCompile(`(?i)\b(what|which)\b[^?]*\b(work(?:ed)? on|cod(?:e|ed|ing)|touch(?:ed)?|buil[dt]|wr(?:ite|ote)|program(?:med)?|hack(?:ed)? on)\b`)

// runQuestion handles every intent that is not a catalog handler.
func (e *Engine) runQuestion(ctx context.Context, a *ask) error {
	// Guardrails that read the store directly.
	pre, err := e.preRetrieval(ctx, a)
	if err != nil {
		return err
	}
	if pre.Final() {
		e.finish(a, pre)
		return nil
	}

	q := a.scope.query
	rreq := retrieval.Request{
		Query:          q,
		Intent:         a.tag,
		NResults:       a.req.NResults,
		Silo:           a.scope.slug,
		Subscope:       a.scope.subscope,
		Unified:        a.scope.unified,
		Hint:           scope.DetectFiletypeHint(q),
		UseReranker:    e.cfg.UseReranker,
		DedupChunkHash: a.settings.DedupChunkHash,
	}
	if a.req.UseReranker != nil {
		rreq.UseReranker = *a.req.UseReranker
	}

	activityYear := 0
	if a.tag == intent.Lookup {
		if y, sources := e.codeActivitySources(a.scope, q); len(sources) > 0 {
			activityYear = y
			rreq.Sources = sources
		}
	}

	// Retrieve, unless a fallthrough guardrail already chose the evidence.
	var hits []vectordb.Hit
	rt := &trace.Retrieval{}
	if pre != nil && len(pre.OverrideEvidence) > 0 {
		// Override evidence is year-scoped, so the year-mode source cap holds.
		hits = retrieval.CapPerSource(pre.OverrideEvidence, a.tag, true)
		rt.Rerank = "guardrail_override"
		a.rec.Guardrail = pre.Name
		a.rec.GuardrailNoMatch = pre.NoMatch
		a.rec.GuardrailReason = pre.Reason
	} else {
		res, err := e.pipeline.Retrieve(ctx, rreq)
		if err != nil {
			return err
		}
		retry, err := e.weakScopeRetry(ctx, a, rreq, res)
		if err != nil {
			return err
		}
		rt.WeakScope = retry.note
		if retry.res != nil {
			res = retry.res
			rreq.Silo, rreq.Unified = retry.slug, false
			a.scope.slug, a.scope.unified = retry.slug, false
			a.resp.Silo = retry.slug
		}
		hits = res.Hits
		fillRetrievalTrace(rt, res)
	}
	rt.FinalCount = len(hits)
	a.rec.Retrieval = rt
	if a.explain != nil {
		a.explain.Retrieval = rt
	}

	// Direct-value consistency over the retrieved chunks.
	_, hasMetric := guardrail.ParseMetricSignature(q)
	if a.tag == intent.Lookup && hasMetric {
		if o := guardrail.DirectValue(q, hits); o.Final() {
			e.finish(a, o)
			return nil
		}
	}

	// Relevance gate.
	anchors := retrieval.Anchors(rreq)
	gate := retrieval.RelevanceGate(hits, a.settings.RelevanceMaxDistance, q, anchors)
	a.rec.Gate = gate.Reason
	if gate.Closed && !gate.Relaxed {
		a.resp.Branch = BranchGate
		a.resp.Body = e.gateAnswer(a, hits)
		return nil
	}

	return e.generate(ctx, a, hits, pre, activityYear, hasMetric)
}

// generate assembles the prompt, calls the model and post-processes.
func (e *Engine) generate(ctx context.Context, a *ask, hits []vectordb.Hit, pre *guardrail.Outcome, activityYear int, direct bool) error {
	q := a.scope.query
	silos := distinctSilos(hits)
	unifiedSynthesis := a.scope.unified && a.tag.Analytical() && len(silos) > 1
	hint := scope.DetectFiletypeHint(q)

	inputs := confidence.Inputs{
		Intent:            a.tag,
		CodeActivityYear:  activityYear > 0,
		DirectCanonical:   direct && hasCanonical(hits),
		UnifiedSynthesis:  a.scope.unified && a.tag.Analytical(),
		MultiPresentation: !hint.IsZero() && preferredSources(hits, hint) >= 2,
		Thresholds:        confidence.ThresholdsFrom(e.cfg.Query),
	}
	assessment := confidence.Assess(q, hits, inputs)

	layers := assembler.DetectLayers(q, a.tag)
	layers.Base = a.scope.base
	layers.Today = e.now()
	layers.Strict = a.req.Strict
	layers.DirectDecisive = direct
	layers.CodeActivityYear = activityYear
	layers.LowConfidence = assessment.Warning != ""
	layers.UnifiedSynthesis = unifiedSynthesis

	system := assembler.SystemPrompt(layers)
	if pre != nil && pre.PromptSuffix != "" {
		system += "\n\n" + pre.PromptSuffix
	}
	names := make(map[string]string, len(silos))
	for _, s := range silos {
		names[s] = e.siloName(s)
	}
	evidence := assembler.BuildContext(hits, assembler.Options{
		SnippetChars: e.cfg.Query.SnippetChars,
		GroupBySilo:  unifiedSynthesis,
		SiloNames:    names,
	})
	recency := ""
	if layers.RecencyHints {
		recency = assembler.RecencyHints(hits)
	}
	user := assembler.UserPrompt(a.req.Query, evidence, recency)

	resp, err := e.provider.Complete(ctx, assembler.BuildRequest(a.req.Model, system, user))
	if err != nil {
		return fmt.Errorf("LLM completion: %w", err)
	}
	a.resp.LLMCalled = true

	assessment = confidence.ForceForUncertainAnswer(resp.Content, assessment, inputs.Thresholds)
	a.rec.Confidence = assessment
	if a.explain != nil {
		a.explain.Confidence = &assessment
	}

	opts := answer.Options{
		Strict:        a.req.Strict,
		LowConfidence: assessment.Warning != "",
		Sources:       answer.SourcesOf(hits),
		Scheme:        a.settings.Editor,
	}
	if a.scope.unified && a.tag.Analytical() && len(silos) == 1 {
		opts.ConcentratedSilo = e.siloName(silos[0])
	}

	a.resp.Branch = BranchRetrieval
	a.resp.Warning = assessment.Warning
	a.resp.Body = answer.Postprocess(strings.TrimSpace(resp.Content), opts)
	a.resp.Sources = answer.AggregateSources(hits)
	a.resp.Footer = answer.Footer(hits, a.settings.Editor)
	a.rec.Sources = sourcePaths(hits)
	return nil
}

type retryOutcome struct {
	res  *retrieval.Result
	slug string
	note string
}

// weakScopeRetry re-runs an unscoped retrieval inside the best-ranked silo
// when the first pass is weak, and keeps whichever pass is closer.
func (e *Engine) weakScopeRetry(ctx context.Context, a *ask, rreq retrieval.Request, first *retrieval.Result) (retryOutcome, error) {
	if !a.scope.unified || a.req.ExplicitUnified {
		return retryOutcome{}, nil
	}
	top, ok := retrieval.TopDistance(first.Hits)
	if ok && top <= e.cfg.Query.WeakScopeThreshold {
		return retryOutcome{}, nil
	}

	cands := scope.RankSilos(a.scope.query, e.stores.Registry.List(), e.stores.Manifest, rreq.Hint)
	if len(cands) == 0 {
		return retryOutcome{note: "no_candidate"}, nil
	}
	best := cands[0].Slug
	rreq.Silo, rreq.Unified = best, false
	res, err := e.pipeline.Retrieve(ctx, rreq)
	if err != nil {
		return retryOutcome{}, err
	}
	rtop, rok := retrieval.TopDistance(res.Hits)
	if !rok || (ok && rtop >= top) {
		return retryOutcome{note: "kept_first_pass:" + best}, nil
	}
	e.logger.Debug("weak scope retry", "silo", best, "first_top", top, "retry_top", rtop)
	return retryOutcome{res: res, slug: best, note: "retried:" + best}, nil
}

// gateFallbackLead opens the outline shown when a scoped lookup finds
// nothing close enough.
const gateFallbackLead = "I don't have content closely matching that query. Here's what I have indexed"

// gateAnswer explains that nothing indexed is close enough, without quoting
// any chunk. A scoped lookup gets the silo outline instead.
func (e *Engine) gateAnswer(a *ask, hits []vectordb.Hit) string {
	if a.tag == intent.Lookup && a.scope.slug != "" {
		if body, ok := e.outlineFallback(a.scope.slug); ok {
			return body
		}
	}
	where := "your indexed silos"
	if a.scope.slug != "" {
		where = e.siloName(a.scope.slug)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I could not find anything in %s that is relevant enough to answer this.", where)
	if top, ok := retrieval.TopDistance(hits); ok {
		fmt.Fprintf(&b, " The closest match had distance %.2f (threshold %.2f).", top, a.settings.RelevanceMaxDistance)
	}
	if a.scope.slug == "" {
		var names []string
		for _, s := range e.stores.Registry.List() {
			names = append(names, s.Name())
		}
		if len(names) > 0 {
			fmt.Fprintf(&b, "\nIndexed silos: %s. Try naming one, e.g. \"in my %s folder\".", strings.Join(names, ", "), names[0])
		}
	}
	return b.String()
}

// outlineFallback renders the silo outline under the fallback lead. Staleness
// is ignored since nothing is answered from it.
func (e *Engine) outlineFallback(slug string) (string, bool) {
	res, err := e.catalog.Structure(catalog.Request{Slug: slug, Force: true}, intent.ModeOutline, nil)
	if err != nil || len(res.Lines) == 0 {
		return "", false
	}
	res.Title = fmt.Sprintf("%s in %s:", gateFallbackLead, e.siloName(slug))
	res.Stale = false
	return res.Render(false), true
}

// codeActivitySources returns the code files modified in the named year
// when the question asks what was worked on then.
func (e *Engine) codeActivitySources(st scopeState, q string) (int, []string) {
	years := lexicon.Years(q)
	if len(years) != 1 || !codeActivityRe.MatchString(q) {
		return 0, nil
	}
	year := years[0]
	var out []string
	for _, s := range e.silosFor(st) {
		for _, entry := range e.stores.Manifest.Entries(s.Slug) {
			if catalog.IsCode(entry.Path) && entry.ModTime().Year() == year {
				out = append(out, entry.Path)
			}
		}
	}
	sort.Strings(out)
	if len(out) > maxActivitySources {
		out = out[:maxActivitySources]
	}
	return year, out
}

func fillRetrievalTrace(rt *trace.Retrieval, res *retrieval.Result) {
	rt.Stage1K = res.Stage1K
	rt.SubQueries = res.SubQueries
	rt.Where = res.Where
	rt.VectorCount = res.VectorCount
	rt.LexicalCount = res.LexicalCount
	rt.Rerank = res.Rerank
	rt.YearMode = res.YearMode
	rt.FanOutSilos = res.FanOutSilos
	rt.FanOutK = res.FanOutK
	rt.SoftPromoted = res.SoftPromoted
}

func distinctSilos(hits []vectordb.Hit) []string {
	seen := make(map[string]bool)
	var out []string
	for _, h := range hits {
		if s := h.Metadata.Silo; s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func sourcePaths(hits []vectordb.Hit) []string {
	rows := answer.AggregateSources(hits)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Path
	}
	return out
}

func hasCanonical(hits []vectordb.Hit) bool {
	for _, h := range hits {
		if guardrail.SourcePriority(h.Metadata.Source) > 0 {
			return true
		}
	}
	return false
}

func preferredSources(hits []vectordb.Hit, hint scope.Hint) int {
	seen := make(map[string]bool)
	for _, h := range hits {
		if hint.Prefers(h.Metadata.Source) {
			seen[h.Metadata.Source] = true
		}
	}
	return len(seen)
}
