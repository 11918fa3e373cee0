package query

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/confidence"
	"github.com/ziadkadry99/llmlibrarian/internal/intent"
	"github.com/ziadkadry99/llmlibrarian/internal/trace"
)

// Explanation describes how a question was routed and answered.
type Explanation struct {
	Intent     intent.Tag             `json:"intent"`
	Branch     string                 `json:"branch"`
	Silo       string                 `json:"silo,omitempty"`
	Subscope   []string               `json:"subscope,omitempty"`
	Binding    string                 `json:"binding,omitempty"`
	Unified    bool                   `json:"unified"`
	Retrieval  *trace.Retrieval       `json:"retrieval,omitempty"`
	Confidence *confidence.Assessment `json:"confidence,omitempty"`
}

func newExplanation(a *ask) *Explanation {
	x := &Explanation{
		Intent:   a.tag,
		Silo:     a.scope.slug,
		Subscope: a.scope.subscope,
		Unified:  a.scope.unified,
	}
	if b := a.scope.binding; b.Slug != "" {
		x.Binding = fmt.Sprintf("%q -> %s (%.2f, %s)", b.Phrase, b.Slug, b.Confidence, b.Reason)
	}
	return x
}

// String renders the explanation as key=value lines.
func (x *Explanation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "intent=%s branch=%s", x.Intent, x.Branch)
	switch {
	case x.Silo != "":
		fmt.Fprintf(&b, " silo=%s", x.Silo)
	case len(x.Subscope) > 0:
		fmt.Fprintf(&b, " subscope=%s", strings.Join(x.Subscope, ","))
	default:
		b.WriteString(" scope=unified")
	}
	if x.Binding != "" {
		fmt.Fprintf(&b, "\nbinding: %s", x.Binding)
	}
	if r := x.Retrieval; r != nil {
		fmt.Fprintf(&b, "\nretrieval: stage1_k=%d vector=%d lexical=%d rerank=%s final=%d where=%s",
			r.Stage1K, r.VectorCount, r.LexicalCount, r.Rerank, r.FinalCount, r.Where)
		if len(r.SubQueries) > 1 {
			fmt.Fprintf(&b, "\nsub-queries: %s", strings.Join(r.SubQueries, " | "))
		}
		if len(r.FanOutSilos) > 0 {
			fmt.Fprintf(&b, "\nfan-out: %s k=%d soft_promoted=%d", strings.Join(r.FanOutSilos, ","), r.FanOutK, r.SoftPromoted)
		}
		if r.WeakScope != "" {
			fmt.Fprintf(&b, "\nweak-scope retry: %s", r.WeakScope)
		}
	}
	if c := x.Confidence; c != nil {
		fmt.Fprintf(&b, "\nconfidence: top=%.3f avg=%.3f sources=%d overlap=%.2f reason=%s",
			c.TopDistance, c.AvgDistance, c.SourceCount, c.OverlapSupport, c.Reason)
	}
	return b.String()
}
