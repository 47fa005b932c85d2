package analysis

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/dld-tools/dld/internal/droidbot"
)

// CrashReport lists states that look like the launcher screen again:
// if a later state hashes close to the very first capture, the app
// probably crashed out from under droidbot.
type CrashReport struct {
	Metadata    CrashMetadata `json:"metadata"`
	CrashPoints []CrashPoint  `json:"crash_points"`
}

type CrashMetadata struct {
	AnalysisTime        string `json:"analysis_time"`
	SimilarityThreshold int    `json:"similarity_threshold"`
	InitialState        string `json:"initial_state"`
}

type CrashPoint struct {
	StateIndex     int    `json:"state_index"`
	StateFile      string `json:"state_file"`
	EventFile      string `json:"event_file,omitempty"`
	EventType      string `json:"event_type,omitempty"`
	HashDifference int    `json:"hash_difference"`
}

// DetectCrashes compares every state screenshot against the initial one.
// A hash distance at or below threshold flags a potential crash; the
// event at the same index is attached when present.
func DetectCrashes(statesDir, eventsDir string, threshold int, log *zap.Logger) (*CrashReport, error) {
	if log == nil {
		log = zap.NewNop()
	}

	report := &CrashReport{
		Metadata: CrashMetadata{
			AnalysisTime:        time.Now().Format(time.RFC3339),
			SimilarityThreshold: threshold,
		},
		CrashPoints: []CrashPoint{},
	}

	stateFiles, err := listSorted(statesDir, ".png", ".jpg")
	if err != nil {
		return nil, fmt.Errorf("analysis: list states: %w", err)
	}
	if len(stateFiles) == 0 {
		log.Info("no state screenshots, skipping crash analysis")
		return report, nil
	}
	eventFiles, err := listSorted(eventsDir, ".json")
	if err != nil {
		log.Warn("events unavailable for crash analysis", zap.Error(err))
		eventFiles = nil
	}

	report.Metadata.InitialState = stateFiles[0]
	initialHash, err := fileHash(filepath.Join(statesDir, stateFiles[0]))
	if err != nil {
		return nil, err
	}

	for i := 1; i < len(stateFiles); i++ {
		hash, err := fileHash(filepath.Join(statesDir, stateFiles[i]))
		if err != nil {
			log.Warn("skipping state", zap.String("file", stateFiles[i]), zap.Error(err))
			continue
		}
		dist, err := hash.Distance(initialHash)
		if err != nil {
			return nil, fmt.Errorf("analysis: hash distance: %w", err)
		}
		if dist > threshold {
			continue
		}

		point := CrashPoint{
			StateIndex:     i,
			StateFile:      stateFiles[i],
			HashDifference: dist,
		}
		if i < len(eventFiles) {
			point.EventFile = eventFiles[i]
			if ev, err := droidbot.LoadEvent(filepath.Join(eventsDir, eventFiles[i])); err == nil {
				point.EventType = ev.Event.EventType
			}
		}
		log.Info("potential crash",
			zap.Int("state_index", i),
			zap.String("state", stateFiles[i]),
			zap.Int("hash_difference", dist))
		report.CrashPoints = append(report.CrashPoints, point)
	}

	return report, nil
}
