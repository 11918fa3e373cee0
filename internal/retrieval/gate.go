package retrieval

import (
	"github.com/ziadkadry99/llmlibrarian/internal/lexicon"
	"github.com/ziadkadry99/llmlibrarian/internal/vectordb"
)

// DefaultRelevanceMaxDistance is the gate threshold when none is set.
const DefaultRelevanceMaxDistance = 0.9

// Relaxation evidence for the gate.
const (
	gateAnchorMatches = 2
	gateOverlap       = 0.5
)

// Gate is the relevance gate decision.
type Gate struct {
	Closed  bool
	Relaxed bool
	Reason  string
}

// RelevanceGate closes when there are no hits or every distance exceeds
// threshold. Lexical-only results pass. A closed gate is relaxed when a
// lexical chunk contains two or more anchors or any chunk covers at least
// half of the query content words.
func RelevanceGate(hits []vectordb.Hit, threshold float64, query string, anchors []string) Gate {
	if len(hits) == 0 {
		return Gate{Closed: true, Reason: "no_results"}
	}
	if threshold <= 0 {
		threshold = DefaultRelevanceMaxDistance
	}
	top, ok := TopDistance(hits)
	if !ok {
		return Gate{Reason: "lexical_only"}
	}
	if top <= threshold {
		return Gate{Reason: "within_threshold"}
	}

	words := lexicon.ContentWords(query)
	for _, h := range hits {
		if !h.HasDistance && anchorMatches(h.Document, anchors) >= gateAnchorMatches {
			return Gate{Relaxed: true, Reason: "lexical_anchor_match"}
		}
		if lexicon.Overlap(words, chunkTokens(h)) >= gateOverlap {
			return Gate{Relaxed: true, Reason: "token_overlap"}
		}
	}
	return Gate{Closed: true, Reason: "all_distances_above_threshold"}
}
