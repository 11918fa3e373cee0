// Package confidence scores the final evidence set and decides whether the
// answer carries a low-confidence or single-source banner.
package confidence

import (
	"regexp"

	"github.com/ziadkadry99/llmlibrarian/internal/config"
	"github.com/ziadkadry99/llmlibrarian/internal/intent"
	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// Banners.
const (
	WarnLow           = "Low confidence: query is weakly related to indexed content."
	WarnUnified       = "Low confidence: unified search found weak or uneven evidence across silos."
	WarnPresentations = "Low confidence: matched multiple presentations; details may come from different decks."
	WarnSingleSource  = "Single source: answer is based on one document only."
)

// Reasons recorded in the trace.
const (
	ReasonNoDistances     = "no_distances"
	ReasonFieldLookup     = "field_lookup"
	ReasonCodeActivity    = "relaxed_code_activity_year"
	ReasonDirectCanonical = "relaxed_direct_canonical"
	ReasonScopedOverlap   = "relaxed_scoped_overlap"
	ReasonUnifiedWeak     = "unified_weak_evidence"
	ReasonPresentations   = "multiple_presentations"
	ReasonLowAverage      = "low_average_distance"
	ReasonSingleSource    = "single_source"
	ReasonOK              = "ok"
	ReasonUncertainAnswer = "uncertain_answer_mixed_evidence"
)

// Thresholds are the tunable boundaries of the rule set.
type Thresholds struct {
	LowAvg        float64 `json:"low_avg"`
	ScopedTop     float64 `json:"scoped_top"`
	ScopedOverlap float64 `json:"scoped_overlap"`
	NoisySources  int     `json:"noisy_sources"`
	NoisyTop      float64 `json:"noisy_top"`
	NoisyAvg      float64 `json:"noisy_avg"`
	NoisyOverlap  float64 `json:"noisy_overlap"`
}

// ThresholdsFrom reads the thresholds from query tuning.
func ThresholdsFrom(t config.QueryTuning) Thresholds {
	return Thresholds{
		LowAvg:        t.LowConfidenceAvg,
		ScopedTop:     t.ScopedOverlapTop,
		ScopedOverlap: t.ScopedOverlapMin,
		NoisySources:  t.MixedNoisySources,
		NoisyTop:      t.MixedNoisyTop,
		NoisyAvg:      t.MixedNoisyAvg,
		NoisyOverlap:  t.MixedNoisyOverlap,
	}
}

// Inputs are the request facts the rules depend on.
type Inputs struct {
	Intent intent.Tag
	// CodeActivityYear is set for lookups scoped to code touched in a year.
	CodeActivityYear bool
	// DirectCanonical is set when a canonical source backs a direct value.
	DirectCanonical bool
	// UnifiedSynthesis is set for analytical queries across all silos.
	UnifiedSynthesis bool
	// MultiPresentation is set when a presentation hint matched several
	// decks.
	MultiPresentation bool
	Thresholds        Thresholds
}

// Assessment is the evidence score and the resulting banner.
type Assessment struct {
	TopDistance    float64 `json:"top_distance"`
	AvgDistance    float64 `json:"avg_distance"`
	HasDistances   bool    `json:"has_distances"`
	SourceCount    int     `json:"source_count"`
	OverlapSupport float64 `json:"overlap_support"`
	Warning        string  `json:"warning,omitempty"`
	Reason         string  `json:"reason"`
}

// Assess scores hits for query and selects the banner.
func Assess(query string, hits []vectordb.Hit, in Inputs) Assessment {
	a := measure(query, hits)
	th := in.Thresholds

	switch {
	case in.Intent == intent.FieldLookup:
		a.Reason = ReasonFieldLookup
	case !a.HasDistances:
		a.Reason = ReasonNoDistances
	case a.AvgDistance > th.LowAvg:
		switch {
		case in.Intent == intent.Lookup && in.CodeActivityYear:
			a.Reason = ReasonCodeActivity
		case in.DirectCanonical:
			a.Reason = ReasonDirectCanonical
		case a.TopDistance <= th.ScopedTop && a.OverlapSupport >= th.ScopedOverlap:
			a.Reason = ReasonScopedOverlap
		case in.UnifiedSynthesis:
			a.Warning, a.Reason = WarnUnified, ReasonUnifiedWeak
		case in.MultiPresentation:
			a.Warning, a.Reason = WarnPresentations, ReasonPresentations
		default:
			a.Warning, a.Reason = WarnLow, ReasonLowAverage
		}
	case a.SourceCount == 1:
		a.Warning, a.Reason = WarnSingleSource, ReasonSingleSource
	default:
		a.Reason = ReasonOK
	}
	return a
}

func measure(query string, hits []vectordb.Hit) Assessment {
	var a Assessment
	sum, n := 0.0, 0
	tokens := make(map[string]map[string]bool)
	var sources []string
	for _, h := range hits {
		if h.HasDistance {
			if n == 0 || h.Distance < a.TopDistance {
				a.TopDistance = h.Distance
			}
			sum += h.Distance
			n++
		}
		src := h.Metadata.Source
		set, ok := tokens[src]
		if !ok {
			set = lexicon.TokenSet(src)
			tokens[src] = set
			sources = append(sources, src)
		}
		for t := range lexicon.TokenSet(h.Document) {
			set[t] = true
		}
	}
	if n > 0 {
		a.HasDistances = true
		a.AvgDistance = sum / float64(n)
	}
	a.SourceCount = len(sources)

	words := lexicon.ContentWords(query)
	for _, src := range sources {
		if o := lexicon.Overlap(words, tokens[src]); o > a.OverlapSupport {
			a.OverlapSupport = o
		}
	}
	return a
}

// uncertainRe matches answers that hedge or report absence. Both straight
// and curly apostrophes are accepted.
var uncertainRe = regexp.MustCompile(`(?i)\b(there is no (mention|information|record|evidence)|(is|are) not mentioned|do(es)?(n['’]t| not) (mention|say|specify|contain)|i (do not|don['’]t) have (enough )?(evidence|information)|(can( ?no|['’])t|could(n['’]t| not)|unable to) (find|determine|locate)|no (relevant )?information (about|on|regarding))\b`)

// IsUncertainAnswer reports whether answer uses uncertainty or absence
// phrasing.
func IsUncertainAnswer(answer string) bool {
	return uncertainRe.MatchString(answer)
}

// MixedNoisy reports whether the evidence is spread thin: many sources,
// mediocre distances and little lexical support.
func (a Assessment) MixedNoisy(th Thresholds) bool {
	return a.HasDistances &&
		a.SourceCount >= th.NoisySources &&
		a.TopDistance >= th.NoisyTop &&
		a.AvgDistance >= th.NoisyAvg &&
		a.OverlapSupport <= th.NoisyOverlap
}

// ForceForUncertainAnswer applies the standard low-confidence banner when
// the model hedged on mixed-noisy evidence.
func ForceForUncertainAnswer(answer string, a Assessment, th Thresholds) Assessment {
	if a.Reason == ReasonFieldLookup || !IsUncertainAnswer(answer) || !a.MixedNoisy(th) {
		return a
	}
	a.Warning, a.Reason = WarnLow, ReasonUncertainAnswer
	return a
}
