// Package catalog answers structural questions about a silo straight from
// the file manifest. Handlers never retrieve chunks for ranking and never
// call the LLM.
package catalog

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/silo"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// Caps on returned rows.
const (
	FileListCap = 50
	RecentCap   = 100
	TimelineCap = 100
	OutlineCap  = 200
)

// StaleError is returned when the manifest no longer matches the disk and
// the caller did not force the query.
type StaleError struct {
	Slug   string
	Reason string
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("catalog for %s is stale (%s); re-index or pass --force", e.Slug, e.Reason)
}

// Result is the uniform catalog response.
type Result struct {
	Title        string
	Lines        []string
	Files        []string
	ScannedCount int
	MatchedCount int
	CapApplied   bool
	Scope        string
	Stale        bool
	StaleReason  string
}

// Render formats the result. Quiet output is the bare lines.
func (r Result) Render(quiet bool) string {
	if quiet {
		if len(r.Lines) == 0 {
			return r.Title
		}
		return strings.Join(r.Lines, "\n")
	}
	var sb strings.Builder
	sb.WriteString(r.Title)
	for _, l := range r.Lines {
		sb.WriteString("\n")
		sb.WriteString(l)
	}
	if r.CapApplied {
		sb.WriteString(fmt.Sprintf("\n(showing %d of %d)", len(r.Lines), r.MatchedCount))
	}
	if r.Stale {
		sb.WriteString("\nWarning: catalog is stale (" + r.StaleReason + ").")
	}
	return sb.String()
}

// Catalog holds the read-only views the handlers use.
type Catalog struct {
	stores  *silo.Stores
	vectors vectordb.Store
	ignore  []string
	stat    silo.StatFunc
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithIgnore excludes manifest paths matching the globs from every count.
func WithIgnore(patterns []string) Option {
	return func(c *Catalog) { c.ignore = patterns }
}

// WithStat replaces os.Stat in freshness checks.
func WithStat(stat silo.StatFunc) Option {
	return func(c *Catalog) { c.stat = stat }
}

// WithVectors enables the chunk-metadata fallback of ProjectCount.
func WithVectors(v vectordb.Store) Option {
	return func(c *Catalog) { c.vectors = v }
}

// New creates a Catalog over stores.
func New(stores *silo.Stores, opts ...Option) *Catalog {
	c := &Catalog{stores: stores}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Request scopes one handler call.
type Request struct {
	Slug  string
	Force bool
}

// view is a freshness-checked, ignore-filtered snapshot of one silo.
type view struct {
	slug    string
	name    string
	root    string
	entries []silo.Entry
	fresh   silo.Freshness
}

func (c *Catalog) open(req Request) (*view, error) {
	fresh := silo.CheckFreshness(c.stores.Registry, c.stores.Manifest, req.Slug, c.stat)
	if fresh.Stale && !req.Force {
		return nil, &StaleError{Slug: req.Slug, Reason: fresh.Reason}
	}

	v := &view{slug: req.Slug, name: req.Slug, fresh: fresh}
	if s, ok := c.stores.Registry.Get(req.Slug); ok {
		v.name = s.Name()
		v.root = s.Path
	}
	if root := c.stores.Manifest.Root(req.Slug); root != "" {
		v.root = root
	}
	for _, e := range c.stores.Manifest.Entries(req.Slug) {
		if Ignored(e.RelPath(v.root), c.ignore) {
			continue
		}
		v.entries = append(v.entries, e)
	}
	return v, nil
}

func (v *view) result(title string) Result {
	return Result{
		Title:        title,
		ScannedCount: len(v.entries),
		Scope:        v.slug,
		Stale:        v.fresh.Stale,
		StaleReason:  v.fresh.Reason,
	}
}

// capLines trims r.Lines to limit and records the cap.
func (r *Result) capLines(limit int) {
	r.MatchedCount = len(r.Lines)
	if len(r.Lines) > limit {
		r.Lines = r.Lines[:limit]
		r.CapApplied = true
	}
}
