package catalog

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/intent"
	"github.com/ziadkadry99/llmlibrarian/internal/silo"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

const dateLayout = "2006-01-02"

// FileListByYear lists the files whose manifest mtime falls in year, as
// sorted absolute paths.
func (c *Catalog) FileListByYear(req Request, year int) (Result, error) {
	v, err := c.open(req)
	if err != nil {
		return Result{}, err
	}

	var files []string
	for _, e := range v.entries {
		if e.ModTime().Year() == year {
			files = append(files, e.Path)
		}
	}
	sort.Strings(files)

	r := v.result(fmt.Sprintf("Files from %d in %s:", year, v.name))
	r.Lines = files
	r.capLines(FileListCap)
	r.Files = r.Lines
	if r.MatchedCount == 0 {
		r.Title = fmt.Sprintf("No files from %d in %s.", year, v.name)
	}
	return r, nil
}

// Structure returns a snapshot of the silo in the given mode. exts is used
// by ModeExtCount only.
func (c *Catalog) Structure(req Request, mode intent.StructureMode, exts []string) (Result, error) {
	v, err := c.open(req)
	if err != nil {
		return Result{}, err
	}

	switch mode {
	case intent.ModeRecent:
		return v.recent(), nil
	case intent.ModeInventory:
		return v.inventory(), nil
	case intent.ModeExtCount:
		if len(exts) == 0 {
			return Result{}, fmt.Errorf("extension count needs a file extension")
		}
		return v.extCount(exts), nil
	}
	return v.outline(), nil
}

// groups clusters entries sharing a content hash. Entries without a hash
// stand alone. Groups are ordered by their first path.
func (v *view) groups() [][]silo.Entry {
	byHash := make(map[string][]silo.Entry)
	var order []string
	for _, e := range v.entries {
		key := e.Hash
		if key == "" {
			key = "path:" + e.Path
		}
		if _, ok := byHash[key]; !ok {
			order = append(order, key)
		}
		byHash[key] = append(byHash[key], e)
	}
	out := make([][]silo.Entry, 0, len(order))
	for _, k := range order {
		out = append(out, byHash[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i][0].Path < out[j][0].Path })
	return out
}

func (v *view) outline() Result {
	r := v.result(fmt.Sprintf("Outline of %s (%d files):", v.name, len(v.entries)))
	for _, g := range v.groups() {
		line := g[0].RelPath(v.root)
		if len(g) > 1 {
			line += fmt.Sprintf(" (%d copies)", len(g))
		}
		r.Lines = append(r.Lines, line)
	}
	r.capLines(OutlineCap)
	return r
}

func (v *view) recent() Result {
	entries := append([]silo.Entry(nil), v.entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Mtime != entries[j].Mtime {
			return entries[i].Mtime > entries[j].Mtime
		}
		return entries[i].Path < entries[j].Path
	})

	r := v.result(fmt.Sprintf("Recently modified files in %s:", v.name))
	for _, e := range entries {
		r.Lines = append(r.Lines, e.ModTime().Format(dateLayout)+" "+path.Base(e.Path))
		r.Files = append(r.Files, e.Path)
	}
	r.capLines(RecentCap)
	if len(r.Files) > len(r.Lines) {
		r.Files = r.Files[:len(r.Lines)]
	}
	return r
}

func (v *view) inventory() Result {
	counts := make(map[string]int)
	for _, g := range v.groups() {
		ext := g[0].Ext()
		if ext == "" {
			ext = "(none)"
		}
		counts[ext]++
	}
	r := v.result(fmt.Sprintf("Inventory of %s (unique files by extension):", v.name))
	r.Lines = countLines(counts)
	r.MatchedCount = len(r.Lines)
	return r
}

func (v *view) extCount(exts []string) Result {
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}
	n := 0
	for _, e := range v.entries {
		if want[e.Ext()] {
			n++
		}
	}
	r := v.result(fmt.Sprintf("%s files in %s:", strings.Join(exts, "/"), v.name))
	r.Lines = []string{strconv.Itoa(n)}
	r.MatchedCount = n
	return r
}

// MetadataAggregate counts files along dim, sorted by count descending then
// label ascending.
func (c *Catalog) MetadataAggregate(req Request, dim intent.Dimension) (Result, error) {
	v, err := c.open(req)
	if err != nil {
		return Result{}, err
	}

	counts := make(map[string]int)
	for _, e := range v.entries {
		counts[label(e, dim, v.root)]++
	}
	r := v.result(fmt.Sprintf("Files in %s by %s:", v.name, dim))
	r.Lines = countLines(counts)
	r.MatchedCount = len(v.entries)
	return r, nil
}

func label(e silo.Entry, dim intent.Dimension, root string) string {
	t := e.ModTime()
	switch dim {
	case intent.ByYear:
		return strconv.Itoa(t.Year())
	case intent.ByMonth:
		return t.Format("2006-01")
	case intent.ByQuarter:
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	case intent.ByFolder:
		rel := e.RelPath(root)
		if i := strings.Index(rel, "/"); i > 0 {
			return rel[:i]
		}
		return "."
	}
	if ext := e.Ext(); ext != "" {
		return ext
	}
	return "(none)"
}

// countLines renders "label: n" lines, count descending then label.
func countLines(counts map[string]int) []string {
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})
	lines := make([]string, len(labels))
	for i, l := range labels {
		lines[i] = fmt.Sprintf("%s: %d", l, counts[l])
	}
	return lines
}

// TimelineRange bounds a timeline. Zero From/To means unbounded.
type TimelineRange struct {
	From, To int
	Keyword  string
}

// Timeline lists files chronologically within the year range, optionally
// keeping only paths containing the keyword.
func (c *Catalog) Timeline(req Request, tr TimelineRange) (Result, error) {
	v, err := c.open(req)
	if err != nil {
		return Result{}, err
	}

	kw := strings.ToLower(tr.Keyword)
	var entries []silo.Entry
	for _, e := range v.entries {
		y := e.ModTime().Year()
		if (tr.From != 0 && y < tr.From) || (tr.To != 0 && y > tr.To) {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(e.Path), kw) {
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Mtime != entries[j].Mtime {
			return entries[i].Mtime < entries[j].Mtime
		}
		return entries[i].Path < entries[j].Path
	})

	title := "Timeline of " + v.name
	switch {
	case tr.From != 0 && tr.From == tr.To:
		title += fmt.Sprintf(" (%d)", tr.From)
	case tr.From != 0:
		title += fmt.Sprintf(" (%d-%d)", tr.From, tr.To)
	}
	if kw != "" {
		title += fmt.Sprintf(" matching %q", tr.Keyword)
	}
	r := v.result(title + ":")
	for _, e := range entries {
		r.Lines = append(r.Lines, e.ModTime().Format(dateLayout)+" "+e.RelPath(v.root))
		r.Files = append(r.Files, e.Path)
	}
	r.capLines(TimelineCap)
	if len(r.Files) > len(r.Lines) {
		r.Files = r.Files[:len(r.Lines)]
	}
	return r, nil
}

// CodeLanguage reports the dominant language among code files, optionally
// restricted to files modified in year, with three sample paths.
func (c *Catalog) CodeLanguage(req Request, year int) (Result, error) {
	v, err := c.open(req)
	if err != nil {
		return Result{}, err
	}

	counts := make(map[string]int)
	samples := make(map[string][]string)
	matched := 0
	for _, e := range v.entries {
		lang := Language(e.Path)
		if lang == "" {
			continue
		}
		if year != 0 && e.ModTime().Year() != year {
			continue
		}
		matched++
		counts[lang]++
		samples[lang] = append(samples[lang], e.Path)
	}

	scope := v.name
	if year != 0 {
		scope = fmt.Sprintf("%s in %d", v.name, year)
	}
	if matched == 0 {
		r := v.result(fmt.Sprintf("No code files found in %s.", scope))
		return r, nil
	}

	breakdown := countLines(counts)
	dominant := strings.SplitN(breakdown[0], ":", 2)[0]
	paths := samples[dominant]
	sort.Strings(paths)
	if len(paths) > 3 {
		paths = paths[:3]
	}

	r := v.result(fmt.Sprintf("Most used language in %s: %s (%d of %d code files).", scope, dominant, counts[dominant], matched))
	for _, p := range paths {
		r.Lines = append(r.Lines, "- "+p)
	}
	r.Lines = append(r.Lines, "Breakdown: "+strings.Join(breakdown, ", "))
	r.Files = paths
	r.MatchedCount = matched
	return r, nil
}

// ProjectCount counts the top-level sub-directories of the silo that hold
// at least one code file. Paths come from the file registry, falling back
// to chunk metadata when the registry has none for the silo.
func (c *Catalog) ProjectCount(ctx context.Context, req Request) (Result, error) {
	v, err := c.open(req)
	if err != nil {
		return Result{}, err
	}

	paths := c.stores.FileRegistry.PathsForSilo(req.Slug)
	source := "file registry"
	if len(paths) == 0 && c.vectors != nil {
		hits, err := c.vectors.Get(ctx, vectordb.GetRequest{Where: vectordb.Eq(vectordb.KeySilo, req.Slug)})
		if err != nil {
			return Result{}, fmt.Errorf("project count fallback: %w", err)
		}
		seen := make(map[string]bool)
		for _, h := range hits {
			if p := h.Metadata.Source; p != "" && !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
		source = "chunk metadata"
	}

	projects := make(map[string]bool)
	for _, p := range paths {
		if !IsCode(p) {
			continue
		}
		rel := silo.Entry{Path: p}.RelPath(v.root)
		if Ignored(rel, c.ignore) {
			continue
		}
		i := strings.Index(rel, "/")
		if i <= 0 || strings.HasPrefix(rel, "/") {
			continue
		}
		projects[rel[:i]] = true
	}

	names := make([]string, 0, len(projects))
	for n := range projects {
		names = append(names, n)
	}
	sort.Strings(names)

	r := v.result(fmt.Sprintf("%d projects with code in %s (from %s):", len(names), v.name, source))
	for _, n := range names {
		r.Lines = append(r.Lines, "- "+n)
	}
	r.ScannedCount = len(paths)
	r.MatchedCount = len(names)
	return r, nil
}
