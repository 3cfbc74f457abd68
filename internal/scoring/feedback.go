package scoring

import (
	"fmt"
	"strconv"

	"prepmaster-service/internal/domain"
)

const (
	DefaultStrengthThreshold = 70.0
	DefaultWeaknessThreshold = 40.0
)

// Thresholds bound the strength and weakness buckets. Both bounds are
// inclusive; topics strictly between them are left unclassified.
type Thresholds struct {
	Strength float64 `yaml:"strength_threshold" json:"strengthThreshold"`
	Weakness float64 `yaml:"weakness_threshold" json:"weaknessThreshold"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Strength: DefaultStrengthThreshold, Weakness: DefaultWeaknessThreshold}
}

// Validate checks the bounds are percentages and do not overlap.
func (t Thresholds) Validate() error {
	if t.Strength < 0 || t.Strength > 100 || t.Weakness < 0 || t.Weakness > 100 {
		return fmt.Errorf("thresholds must be within [0,100], got strength=%v weakness=%v", t.Strength, t.Weakness)
	}
	if t.Weakness >= t.Strength {
		return fmt.Errorf("weakness threshold %v must be below strength threshold %v", t.Weakness, t.Strength)
	}
	return nil
}

// DeriveFeedback classifies each chapter and writes one recommendation per weakness.
func DeriveFeedback(chapters []domain.ChapterAnalysis, th Thresholds) domain.Feedback {
	fb := domain.Feedback{
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{},
	}
	for _, ch := range chapters {
		switch {
		case ch.PercentageScore >= th.Strength:
			fb.Strengths = append(fb.Strengths, ch.Topic)
		case ch.PercentageScore <= th.Weakness:
			fb.Weaknesses = append(fb.Weaknesses, ch.Topic)
			fb.Recommendations = append(fb.Recommendations, Recommendation(ch.Topic, ch.PercentageScore))
		}
	}
	return fb
}

// Recommendation renders the advice line for a weak topic. The score is
// printed in its shortest form, so 0 stays "0" and 33.33 stays "33.33".
func Recommendation(topic string, score float64) string {
	return fmt.Sprintf("Focus on improving %s (%s%% score)", topic, strconv.FormatFloat(score, 'f', -1, 64))
}
