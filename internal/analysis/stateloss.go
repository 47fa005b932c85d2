package analysis

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/corona10/goimagehash"
	"go.uber.org/zap"

	"github.com/dld-tools/dld/internal/droidbot"
	"github.com/dld-tools/dld/internal/imaging"
)

// StateLossReport captures anomalies across consecutive UI states.
type StateLossReport struct {
	Metadata   StateLossMetadata `json:"metadata"`
	Issues     StateLossIssues   `json:"issues"`
	Statistics StateLossStats    `json:"statistics"`
}

type StateLossMetadata struct {
	AnalysisTime string `json:"analysis_time"`
	Tool         string `json:"tool"`
	AnalysisType string `json:"analysis_type"`
}

type StateLossIssues struct {
	DisappearedDialogs    []DialogIssue   `json:"disappeared_dialogs"`
	EditTextValueChanges  []EditTextIssue `json:"edittext_value_changes"`
	StateHashMismatches   int             `json:"state_hash_mismatches"`
	StateHashMismatchList []HashMismatch  `json:"state_hash_mismatch_entries"`
}

type DialogIssue struct {
	View  string `json:"view"`
	Event string `json:"event"`
	State string `json:"state"`
}

type EditTextIssue struct {
	View         string `json:"view"`
	PreviousText string `json:"previous_text"`
	CurrentText  string `json:"current_text"`
	State        string `json:"state"`
}

type HashMismatch struct {
	Event          string `json:"event"`
	PreviousState  string `json:"previous_state"`
	CurrentState   string `json:"current_state"`
	HashDifference int    `json:"hash_difference"`
	PixelDistance  int64  `json:"pixel_distance"`
}

type StateLossStats struct {
	TotalEventStatePairs     int `json:"total_event_state_pairs"`
	StateTransitionsAnalyzed int `json:"state_transitions_analyzed"`
}

type stateHashed struct {
	file string
	hash *goimagehash.ImageHash
	img  *image.NRGBA
}

func loadState(dir, name string) (*stateHashed, error) {
	img, err := imaging.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		return nil, err
	}
	return &stateHashed{file: name, hash: hash, img: img}, nil
}

func isDialogClass(class string) bool {
	return strings.HasSuffix(strings.ToLower(class), "dialog")
}

func isEditTextClass(class string) bool {
	return strings.EqualFold(class, "android.widget.edittext")
}

// DetectStateLoss pairs events[i] with states[i+1] and compares
// consecutive states: a hash distance above threshold counts as a state
// mismatch (pixel distance recorded as a secondary exact metric), and
// event view data is checked for disappeared dialogs and EditText value
// changes.
func DetectStateLoss(eventsDir, statesDir string, threshold int, log *zap.Logger) (*StateLossReport, error) {
	if log == nil {
		log = zap.NewNop()
	}

	report := &StateLossReport{
		Metadata: StateLossMetadata{
			AnalysisTime: time.Now().Format(time.RFC3339),
			Tool:         "honeynet/droidbot",
			AnalysisType: "UI state loss detection",
		},
		Issues: StateLossIssues{
			DisappearedDialogs:    []DialogIssue{},
			EditTextValueChanges:  []EditTextIssue{},
			StateHashMismatchList: []HashMismatch{},
		},
	}

	eventFiles, err := listSorted(eventsDir, ".json")
	if err != nil {
		return nil, fmt.Errorf("analysis: list events: %w", err)
	}
	stateFiles, err := listSorted(statesDir, ".png", ".jpg")
	if err != nil {
		return nil, fmt.Errorf("analysis: list states: %w", err)
	}

	pairs := len(eventFiles)
	if len(stateFiles)-1 < pairs {
		pairs = len(stateFiles) - 1
	}

	var prev *stateHashed
	prevViews := make(map[string]*droidbot.View)

	for i := 0; i < pairs; i++ {
		ev, err := droidbot.LoadEvent(filepath.Join(eventsDir, eventFiles[i]))
		if err != nil {
			log.Warn("skipping event", zap.String("file", eventFiles[i]), zap.Error(err))
			continue
		}

		// state after the event
		cur, err := loadState(statesDir, stateFiles[i+1])
		if err != nil {
			log.Warn("skipping state", zap.String("file", stateFiles[i+1]), zap.Error(err))
			continue
		}
		report.Statistics.TotalEventStatePairs++

		if prev != nil {
			report.Statistics.StateTransitionsAnalyzed++

			dist, err := prev.hash.Distance(cur.hash)
			if err != nil {
				return nil, fmt.Errorf("analysis: hash distance: %w", err)
			}
			if dist > threshold {
				report.Issues.StateHashMismatches++
				report.Issues.StateHashMismatchList = append(report.Issues.StateHashMismatchList, HashMismatch{
					Event:          ev.Event.EventType,
					PreviousState:  prev.file,
					CurrentState:   cur.file,
					HashDifference: dist,
					PixelDistance:  imaging.Distance(prev.img, cur.img),
				})
			}

			checkViewIssues(report, prevViews, ev, cur.file)
		}

		if view := ev.Event.View; view != nil && view.ID() != "" {
			prevViews[view.ID()] = view
		}
		prev = cur
	}

	return report, nil
}

func checkViewIssues(report *StateLossReport, prevViews map[string]*droidbot.View, ev droidbot.Event, state string) {
	view := ev.Event.View
	if view == nil {
		return
	}
	id := view.ID()
	prev, ok := prevViews[id]
	if !ok {
		return
	}

	if isDialogClass(prev.Class) && !view.IsVisible() {
		report.Issues.DisappearedDialogs = append(report.Issues.DisappearedDialogs, DialogIssue{
			View:  id,
			Event: ev.Event.EventType,
			State: state,
		})
	}

	if isEditTextClass(prev.Class) && prev.Text != view.Text {
		report.Issues.EditTextValueChanges = append(report.Issues.EditTextValueChanges, EditTextIssue{
			View:         id,
			PreviousText: prev.Text,
			CurrentText:  view.Text,
			State:        state,
		})
	}
}
