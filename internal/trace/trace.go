// Package trace appends one JSON record per request to a local file.
package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is a single request trace.
type Record struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"ts"`
	Query     string    `json:"query"`
	Intent    string    `json:"intent"`
	Branch    string    `json:"branch"`
	Silo      string    `json:"silo,omitempty"`
	Subscope  []string  `json:"subscope,omitempty"`
	Archetype string    `json:"archetype,omitempty"`

	Guardrail        string `json:"guardrail,omitempty"`
	GuardrailNoMatch bool   `json:"guardrail_no_match,omitempty"`
	GuardrailReason  string `json:"guardrail_reason,omitempty"`

	Retrieval  *Retrieval `json:"retrieval,omitempty"`
	Gate       string     `json:"relevance_gate,omitempty"`
	Confidence any        `json:"confidence,omitempty"`
	Tuning     any        `json:"tuning,omitempty"`

	Sources   []string `json:"sources,omitempty"`
	LLMCalled bool     `json:"llm_called"`
	Stale     bool     `json:"stale,omitempty"`
	LatencyMS int64    `json:"latency_ms"`
	Error     string   `json:"error,omitempty"`
}

// Retrieval captures the pipeline decisions for a request.
type Retrieval struct {
	Stage1K      int      `json:"stage1_k"`
	SubQueries   []string `json:"sub_queries,omitempty"`
	Where        string   `json:"where"`
	VectorCount  int      `json:"vector_count"`
	LexicalCount int      `json:"lexical_count"`
	Rerank       string   `json:"rerank"`
	YearMode     bool     `json:"year_mode,omitempty"`
	FanOutSilos  []string `json:"fanout_silos,omitempty"`
	FanOutK      int      `json:"fanout_k,omitempty"`
	SoftPromoted int      `json:"soft_promoted,omitempty"`
	WeakScope    string   `json:"weak_scope_retry,omitempty"`
	FinalCount   int      `json:"final_count"`
}

// Sink receives trace records.
type Sink interface {
	Log(ctx context.Context, rec Record) error
}

// FileSink appends JSON lines to a file. The zero path disables it.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink creates a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Enabled reports whether the sink writes anywhere.
func (s *FileSink) Enabled() bool {
	return s != nil && s.path != ""
}

// Log appends rec. If rec.RequestID is empty a UUID is generated.
func (s *FileSink) Log(ctx context.Context, rec Record) error {
	if !s.Enabled() {
		return nil
	}
	if rec.RequestID == "" {
		rec.RequestID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling trace record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening trace file: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("writing trace record: %w", err)
	}
	return f.Close()
}

// Nop discards records.
type Nop struct{}

// Log implements Sink.
func (Nop) Log(context.Context, Record) error { return nil }
