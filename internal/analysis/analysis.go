// Package analysis inspects the screenshots a run collected and flags
// potential data loss, UI state loss, and crashes using perceptual
// average-hash comparison.
package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/corona10/goimagehash"

	"github.com/dld-tools/dld/internal/imaging"
)

// Default hash-distance thresholds. A Hamming distance above the data-loss
// or state-loss thresholds marks a significant visual change; a distance at
// or below the crash threshold means the screen matches the launcher again.
const (
	DefaultDataLossThreshold  = 10
	DefaultStateLossThreshold = 10
	DefaultCrashThreshold     = 5
)

// fileHash loads an image and computes its 8x8 average hash.
func fileHash(path string) (*goimagehash.ImageHash, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("analysis: open %s: %w", path, err)
	}
	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		return nil, fmt.Errorf("analysis: hash %s: %w", path, err)
	}
	return hash, nil
}

// listSorted returns the sorted basenames in dir matching any suffix.
func listSorted(dir string, suffixes ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(e.Name(), suffix) {
				names = append(names, e.Name())
				break
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// WriteReport marshals v as indented JSON to path.
func WriteReport(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
