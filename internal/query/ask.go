package query

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ziadkadry99/llmlibrarian/internal/config"
	"github.com/ziadkadry99/llmlibrarian/internal/intent"
	"github.com/ziadkadry99/llmlibrarian/internal/scope"
	"github.com/ziadkadry99/llmlibrarian/internal/silo"
	"github.com/ziadkadry99/llmlibrarian/internal/trace"
)

// scopeState is the resolved retrieval scope of a request.
type scopeState struct {
	slug     string
	subscope []string
	// query has a bound scope phrase stripped.
	query   string
	base    string
	binding scope.Binding
	// explicit is set when the caller or an archetype chose the scope.
	explicit bool
	unified  bool
}

// ask carries per-request state through the branches.
type ask struct {
	req      Request
	settings config.Settings
	tag      intent.Tag
	scope    scopeState
	rec      *trace.Record
	resp     *Response
	explain  *Explanation
}

// Ask answers one question. Policy refusals are returned as *PolicyError;
// index, vector store and model failures propagate.
func (e *Engine) Ask(ctx context.Context, req Request) (*Response, error) {
	e, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return e.run(ctx, req)
}

func (e *Engine) run(ctx context.Context, req Request) (resp *Response, err error) {
	start := e.now()
	a := &ask{
		req:      req,
		settings: e.cfg.Settings(),
		rec:      &trace.Record{RequestID: uuid.New().String(), Timestamp: start.UTC(), Query: req.Query, Archetype: req.Archetype, Tuning: e.cfg.Query},
	}
	defer func() {
		a.rec.LatencyMS = e.now().Sub(start).Milliseconds()
		if err != nil {
			a.rec.Error = err.Error()
		}
		e.writeTrace(ctx, a)
	}()

	q := strings.TrimSpace(req.Query)
	if q == "" {
		return nil, policyf("empty question")
	}
	if a.req.NResults <= 0 {
		a.req.NResults = e.cfg.NResults
		if a.req.NResults <= 0 {
			a.req.NResults = DefaultNResults
		}
	}
	if a.req.Model == "" {
		a.req.Model = e.cfg.Model
		if a.req.Model == "" {
			a.req.Model = DefaultModel
		}
	}

	// Route the question.
	a.tag = intent.Route(q)
	a.rec.Intent = string(a.tag)

	// Resolve the scope.
	a.scope, err = e.resolveScope(q, req)
	if err != nil {
		return nil, asPolicy(err)
	}
	a.rec.Silo = a.scope.slug
	a.rec.Subscope = a.scope.subscope
	a.resp = &Response{RequestID: a.rec.RequestID, Intent: a.tag, Silo: a.scope.slug}
	if req.Explain {
		a.explain = newExplanation(a)
		a.resp.Explain = a.explain
	}

	e.logger.Debug("ask", "intent", a.tag, "silo", a.scope.slug, "subscope", a.scope.subscope, "unified", a.scope.unified)

	switch {
	case a.tag == intent.Capabilities:
		a.resp.Branch = BranchCapabilities
		a.resp.Body = capabilitiesAnswer()
	case a.tag.RequiresScope():
		if err := e.runCatalog(ctx, a); err != nil {
			return nil, asPolicy(err)
		}
	default:
		if err := e.runQuestion(ctx, a); err != nil {
			return nil, asPolicy(err)
		}
	}

	a.rec.Branch = a.resp.Branch
	a.rec.LLMCalled = a.resp.LLMCalled
	a.resp.compose(req.Quiet)
	if a.explain != nil {
		a.explain.Branch = a.resp.Branch
	}
	return a.resp, nil
}

// resolveScope applies, in order: the explicit silo, the archetype's silos,
// then a scope phrase bound from the question.
func (e *Engine) resolveScope(q string, req Request) (scopeState, error) {
	st := scopeState{query: q}

	if req.Archetype != "" {
		arch, ok := e.cfg.Archetype(req.Archetype)
		if !ok {
			return st, policyf("unknown archetype %q", req.Archetype)
		}
		st.base = arch.Prompt
		for _, name := range arch.Silos {
			s, err := e.stores.Registry.Resolve(name)
			if err != nil {
				return st, err
			}
			st.subscope = append(st.subscope, s.Slug)
		}
		if len(st.subscope) == 1 {
			st.slug = st.subscope[0]
		}
		st.explicit = len(st.subscope) > 0
	}

	if req.Silo != "" {
		s, err := e.stores.Registry.Resolve(req.Silo)
		if err != nil {
			return st, err
		}
		st.slug, st.subscope, st.explicit = s.Slug, nil, true
	}

	if !st.explicit && !req.ExplicitUnified {
		st.binding = scope.Bind(q, e.stores.Registry.List())
		if st.binding.Bound() {
			st.slug = st.binding.Slug
			st.query = st.binding.CleanedQuery
		}
	}

	if st.slug != "" {
		if s, ok := e.stores.Registry.Get(st.slug); ok && st.base == "" {
			st.base = s.PromptOverride
		}
	}
	st.unified = st.slug == "" && len(st.subscope) == 0
	return st, nil
}

func (e *Engine) siloName(slug string) string {
	if s, ok := e.stores.Registry.Get(slug); ok {
		return s.Name()
	}
	return slug
}

func (e *Engine) writeTrace(ctx context.Context, a *ask) {
	sink := e.sink
	if sink == nil {
		fs := trace.NewFileSink(a.settings.TracePath)
		if !fs.Enabled() {
			return
		}
		sink = fs
	}
	if err := sink.Log(ctx, *a.rec); err != nil {
		e.logger.Debug("trace write failed", "error", err)
	}
}

// silosFor returns the silos a question may touch.
func (e *Engine) silosFor(st scopeState) []silo.Silo {
	switch {
	case st.slug != "":
		if s, ok := e.stores.Registry.Get(st.slug); ok {
			return []silo.Silo{s}
		}
		return []silo.Silo{{Slug: st.slug}}
	case len(st.subscope) > 0:
		var out []silo.Silo
		for _, slug := range st.subscope {
			if s, ok := e.stores.Registry.Get(slug); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return e.stores.Registry.List()
}

func missingScope(tag intent.Tag) *PolicyError {
	return policyf("%s questions need a silo: pass --silo or name it, e.g. \"in my docs folder\"", strings.ToLower(strings.ReplaceAll(string(tag), "_", " ")))
}
