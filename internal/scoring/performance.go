package scoring

import (
	"math"

	"prepmaster-service/internal/domain"
)

// Performance derives read-side metrics from a stored result. A result with
// no responses reports zeros.
func Performance(r domain.Result) domain.PerformanceMetrics {
	n := len(r.Responses)
	if n == 0 {
		return domain.PerformanceMetrics{}
	}
	correct, answered := 0, 0
	for _, resp := range r.Responses {
		if resp.IsCorrect {
			correct++
		}
		if resp.SelectedAnswer != "" {
			answered++
		}
	}
	return domain.PerformanceMetrics{
		Accuracy:        PercentOf(float64(correct), float64(n)),
		TimePerQuestion: int(math.Floor(float64(r.TimeTaken)/float64(n) + 0.5)),
		CompletionRate:  PercentOf(float64(answered), float64(n)),
	}
}
