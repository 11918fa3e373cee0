// Package retrieval turns a query into the ranked, diversified chunk list
// that becomes LLM context.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ziadkadry99/llmlibrarian/internal/config"
	"github.com/ziadkadry99/llmlibrarian/internal/intent"
	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/logging"
	"github.com/ziadkadry99/llmlibrarian/internal/scope"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// Rerank modes recorded in the result.
const (
	RerankYearBoost = "year_boost"
	RerankModel     = "reranker"
	RerankHeuristic = "heuristic"
)

// Request is one retrieval.
type Request struct {
	Query    string
	Intent   intent.Tag
	NResults int
	// Silo restricts retrieval to one silo; Subscope to several.
	Silo     string
	Subscope []string
	// Sources restricts retrieval to these absolute paths.
	Sources []string
	// Unified is set when the user named no silo.
	Unified        bool
	Hint           scope.Hint
	UseReranker    bool
	DedupChunkHash bool
}

// Result is the final chunk list plus what each step did.
type Result struct {
	Hits         []vectordb.Hit
	Stage1K      int
	Expanded     string
	SubQueries   []string
	Where        string
	VectorCount  int
	LexicalCount int
	Anchors      []string
	Rerank       string
	YearMode     bool
	FanOutSilos  []string
	FanOutK      int
	SoftPromoted int
	Recency      bool
}

// Pipeline runs retrieval against a vector store.
type Pipeline struct {
	store    vectordb.Store
	tuning   config.QueryTuning
	reranker Reranker
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReranker replaces the in-process overlap reranker.
func WithReranker(r Reranker) Option {
	return func(p *Pipeline) { p.reranker = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithClock sets the clock used for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(store vectordb.Store, tuning config.QueryTuning, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    store,
		tuning:   tuning,
		reranker: OverlapReranker{},
		logger:   logging.Discard(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Anchors returns the lexical anchors used for req, if it runs the hybrid
// pass.
func Anchors(req Request) []string {
	if req.Intent != intent.Lookup && req.Intent != intent.EvidenceProfile {
		return nil
	}
	return LexicalAnchors(req.Query, req.Intent)
}

// Retrieve runs every step for req.
func (p *Pipeline) Retrieve(ctx context.Context, req Request) (*Result, error) {
	n := max(req.NResults, 1)
	res := &Result{Stage1K: Stage1K(req.Intent, n, req.UseReranker, p.tuning.RerankerStage1K)}
	res.Expanded = ExpandQuery(req.Query, req.Intent)
	res.SubQueries = Decompose(res.Expanded)
	where := BuildWhere(req.Silo, req.Subscope, req.Sources)
	res.Where = where.String()

	hits, err := p.vectorPass(ctx, res.SubQueries, res.Stage1K, where)
	if err != nil {
		return nil, err
	}
	res.VectorCount = len(hits)

	if anchors := Anchors(req); len(anchors) > 0 {
		lexical, err := p.store.Get(ctx, vectordb.GetRequest{
			Where:         where,
			WhereDocument: vectordb.Contains(anchors...),
			Limit:         p.tuning.LexicalLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("lexical pass: %w", err)
		}
		res.Anchors = anchors
		res.LexicalCount = len(lexical)
		hits = FuseRRF(hits, rankLexical(lexical, anchors), p.tuning.RRFK)
	}

	if years := lexicon.Years(req.Query); len(years) > 0 {
		hits = YearBoost(hits, years, IsAGIQuery(req.Query))
		res.YearMode = true
		res.Rerank = RerankYearBoost
	} else if req.UseReranker && p.reranker != nil {
		hits, err = p.reranker.Rerank(ctx, req.Query, hits)
		if err != nil {
			return nil, fmt.Errorf("reranking: %w", err)
		}
		res.Rerank = RerankModel
	} else {
		hits = HeuristicRerank(hits, req.Query)
		res.Rerank = RerankHeuristic
	}

	// Year order outranks a filetype hint.
	if !res.YearMode {
		hits = FiletypeRerank(hits, req.Hint)
	}
	hits = CapPerSource(hits, req.Intent, res.YearMode)
	if req.DedupChunkHash {
		hits = DedupChunkHash(hits)
	}

	crossSilo := req.Unified && req.Silo == "" && len(req.Subscope) != 1
	if crossSilo && req.Intent.Analytical() {
		hits, err = p.fanOut(ctx, req, res, hits, where)
		if err != nil {
			return nil, err
		}
	}
	if crossSilo {
		hits = CapPerSilo(hits, p.tuning.PerSiloCap)
	}

	pool := hits
	if ImpliesRecency(req.Query) {
		hits = RecencyTieBreak(hits, p.now(), p.tuning.RecencyWeight)
		res.Recency = true
	}
	if len(hits) > n {
		hits = hits[:n]
	}
	if crossSilo && req.Intent.Analytical() {
		hits, res.SoftPromoted = SoftPromote(hits, pool, SoftPromotion{
			DominationRatio: p.tuning.DominationRatio,
			Delta:           p.tuning.SoftPromoteDelta,
			Max:             p.tuning.SoftPromoteMax,
		})
	}

	res.Hits = hits
	p.logger.Debug("retrieval",
		"intent", req.Intent,
		"stage1_k", res.Stage1K,
		"sub_queries", len(res.SubQueries),
		"vector", res.VectorCount,
		"lexical", res.LexicalCount,
		"rerank", res.Rerank,
		"fan_out", res.FanOutSilos,
		"soft_promoted", res.SoftPromoted,
		"hits", len(hits),
	)
	return res, nil
}

// vectorPass queries every sub-query with an equal share of k and
// concatenates the results.
func (p *Pipeline) vectorPass(ctx context.Context, queries []string, k int, where vectordb.Filter) ([]vectordb.Hit, error) {
	per := max(k/len(queries), 1)
	var hits []vectordb.Hit
	for _, q := range queries {
		got, err := p.store.Query(ctx, vectordb.QueryRequest{Text: q, NResults: per, Where: where})
		if err != nil {
			return nil, fmt.Errorf("vector query: %w", err)
		}
		hits = append(hits, got...)
	}
	return dedupByID(hits), nil
}

// fanOut re-queries each candidate silo with a small K and merges all
// results by distance, so one silo cannot crowd out the rest.
func (p *Pipeline) fanOut(ctx context.Context, req Request, res *Result, hits []vectordb.Hit, where vectordb.Filter) ([]vectordb.Hit, error) {
	silos := SilosByBestDistance(hits)
	if len(silos) > p.tuning.FanOutMaxSilos {
		silos = silos[:p.tuning.FanOutMaxSilos]
	}
	if len(silos) < 2 {
		return hits, nil
	}
	k := max(p.tuning.FanOutMinK, res.Stage1K/max(p.tuning.FanOutDivisor, 1))
	res.FanOutSilos = silos
	res.FanOutK = k

	merged := append([]vectordb.Hit(nil), hits...)
	for _, s := range silos {
		got, err := p.store.Query(ctx, vectordb.QueryRequest{
			Text:     res.Expanded,
			NResults: k,
			Where:    vectordb.And(where, vectordb.Eq(vectordb.KeySilo, s)),
		})
		if err != nil {
			return nil, fmt.Errorf("fan-out query for %s: %w", s, err)
		}
		merged = append(merged, got...)
	}
	merged = dedupByID(merged)
	sortByDistance(merged)
	return CapPerSource(merged, req.Intent, res.YearMode), nil
}
