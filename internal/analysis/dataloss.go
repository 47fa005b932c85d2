package analysis

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DataLossReport summarizes before/after comparison of home-button round
// trips.
type DataLossReport struct {
	Metadata   DataLossMetadata `json:"metadata"`
	Statistics DataLossStats    `json:"statistics"`
	Actions    []DataLossAction `json:"actions"`
}

type DataLossMetadata struct {
	OutputDir           string `json:"output_dir"`
	AnalysisTime        string `json:"analysis_time"`
	SimilarityThreshold int    `json:"similarity_threshold"`
}

type DataLossStats struct {
	TotalActionsAnalyzed int     `json:"total_actions_analyzed"`
	PotentialDataLoss    int     `json:"potential_data_loss"`
	DataLossRate         float64 `json:"data_loss_rate"`
}

type DataLossAction struct {
	ActionIndex         int    `json:"action_index"`
	BeforeImage         string `json:"before_image"`
	AfterImage          string `json:"after_image"`
	HashDifference      int    `json:"hash_difference"`
	IsPotentialDataLoss bool   `json:"is_potential_data_loss"`
}

// DetectDataLoss pairs before_<n>.png with after_<n>.png in shotsDir and
// flags pairs whose hash distance exceeds threshold. Missing counterparts
// are logged and skipped.
func DetectDataLoss(outputDir, shotsDir string, threshold int, log *zap.Logger) (*DataLossReport, error) {
	if log == nil {
		log = zap.NewNop()
	}

	report := &DataLossReport{
		Metadata: DataLossMetadata{
			OutputDir:           outputDir,
			AnalysisTime:        time.Now().Format(time.RFC3339),
			SimilarityThreshold: threshold,
		},
		Actions: []DataLossAction{},
	}

	names, err := listSorted(shotsDir, ".png")
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("no home-button screenshots directory, skipping data-loss analysis")
			return report, nil
		}
		return nil, err
	}

	for _, before := range names {
		if !strings.HasPrefix(before, "before_") {
			continue
		}
		index := strings.TrimSuffix(strings.TrimPrefix(before, "before_"), ".png")
		after := fmt.Sprintf("after_%s.png", index)
		afterPath := filepath.Join(shotsDir, after)
		if _, err := os.Stat(afterPath); err != nil {
			log.Warn("missing after image", zap.String("action", index))
			continue
		}

		beforeHash, err := fileHash(filepath.Join(shotsDir, before))
		if err != nil {
			log.Warn("skipping pair", zap.String("before", before), zap.Error(err))
			continue
		}
		afterHash, err := fileHash(afterPath)
		if err != nil {
			log.Warn("skipping pair", zap.String("after", after), zap.Error(err))
			continue
		}

		dist, err := beforeHash.Distance(afterHash)
		if err != nil {
			return nil, fmt.Errorf("analysis: hash distance: %w", err)
		}

		var actionIndex int
		fmt.Sscanf(index, "%d", &actionIndex)

		lost := dist > threshold
		report.Actions = append(report.Actions, DataLossAction{
			ActionIndex:         actionIndex,
			BeforeImage:         before,
			AfterImage:          after,
			HashDifference:      dist,
			IsPotentialDataLoss: lost,
		})
		report.Statistics.TotalActionsAnalyzed++
		if lost {
			report.Statistics.PotentialDataLoss++
			log.Info("potential data loss",
				zap.Int("action", actionIndex),
				zap.Int("hash_difference", dist))
		}
	}

	if n := report.Statistics.TotalActionsAnalyzed; n > 0 {
		rate := float64(report.Statistics.PotentialDataLoss) / float64(n)
		report.Statistics.DataLossRate = math.Round(rate*10000) / 10000
	}
	return report, nil
}
