package silo

import (
	"fmt"
	"io/fs"
	"math"
	"os"
)

// mtimeTolerance absorbs float rounding between the manifest and the
// filesystem, in seconds.
const mtimeTolerance = 1e-3

// Freshness is the catalog state of a silo: fresh, or stale with a reason.
type Freshness struct {
	Stale  bool
	Reason string
}

// StatFunc is os.Stat; tests substitute it.
type StatFunc func(name string) (fs.FileInfo, error)

// CheckFreshness compares every manifest entry of slug against the disk and
// checks registry–manifest count parity. The first mismatch found (in path
// order) becomes the stale reason.
func CheckFreshness(reg *Registry, man *Manifest, slug string, stat StatFunc) Freshness {
	if stat == nil {
		stat = os.Stat
	}
	if !man.Has(slug) {
		return Freshness{Stale: true, Reason: "manifest_missing: no manifest entries for " + slug}
	}

	entries := man.Entries(slug)
	if s, ok := reg.Get(slug); ok && s.FilesIndexed != len(entries) {
		return Freshness{
			Stale:  true,
			Reason: fmt.Sprintf("count_mismatch: registry has %d files, manifest has %d", s.FilesIndexed, len(entries)),
		}
	}

	for _, e := range entries {
		info, err := stat(e.Path)
		if err != nil {
			return Freshness{Stale: true, Reason: "missing_file: " + e.Path}
		}
		mtime := float64(info.ModTime().UnixNano()) / 1e9
		if info.Size() != e.Size || math.Abs(mtime-e.Mtime) > mtimeTolerance {
			return Freshness{Stale: true, Reason: "changed_file: " + e.Path}
		}
	}
	return Freshness{}
}
