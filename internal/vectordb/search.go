package vectordb

import (
	"fmt"
	"strings"
)

// FormatHits renders hits as human-readable text.
func FormatHits(hits []Hit) string {
	if len(hits) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(hits)))

	for i, h := range hits {
		if h.HasDistance {
			sb.WriteString(fmt.Sprintf("--- Result %d (distance: %.4f) ---\n", i+1, h.Distance))
		} else {
			sb.WriteString(fmt.Sprintf("--- Result %d ---\n", i+1))
		}

		if h.Metadata.Source != "" {
			location := h.Metadata.Source
			switch {
			case h.Metadata.Page > 0:
				location += fmt.Sprintf(" (page %d)", h.Metadata.Page)
			case h.Metadata.LineStart > 0:
				location += fmt.Sprintf(":%d", h.Metadata.LineStart)
			}
			sb.WriteString(fmt.Sprintf("File: %s\n", location))
		}
		if h.Metadata.Silo != "" {
			sb.WriteString(fmt.Sprintf("Silo: %s\n", h.Metadata.Silo))
		}

		sb.WriteString("\n")
		sb.WriteString(h.Document)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
