package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"prepmaster-service/internal/config"
	"prepmaster-service/internal/domain"
	"prepmaster-service/internal/scoring"
)

// NewScoreCmd scores a submission offline from JSON files, using the
// thresholds of the loaded config. Useful to replay disputed results.
func NewScoreCmd(configPath *string) *cobra.Command {
	var (
		testFile      string
		responsesFile string
		at            string
	)
	cmd := &cobra.Command{
		Use:          "score",
		Short:        "Score a resolved test and responses read from JSON files",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				if !os.IsNotExist(err) {
					return err
				}
				cfg = config.Default()
			}

			var test domain.Test
			if err := readJSON(testFile, &test); err != nil {
				return fmt.Errorf("read test: %w", err)
			}
			var responses []domain.Response
			if err := readJSON(responsesFile, &responses); err != nil {
				return fmt.Errorf("read responses: %w", err)
			}

			submittedAt := time.Now()
			if at != "" {
				submittedAt, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
			}

			result := scoring.NewEngine(cfg.Scoring).ScoreSubmission(test, responses, submittedAt)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(newScoreOutput(result))
		},
	}
	cmd.Flags().StringVar(&testFile, "test", "", "path to a resolved test JSON document")
	cmd.Flags().StringVar(&responsesFile, "responses", "", "path to a JSON array of responses")
	cmd.Flags().StringVar(&at, "at", "", "submission instant (RFC 3339), defaults to now")
	_ = cmd.MarkFlagRequired("test")
	_ = cmd.MarkFlagRequired("responses")
	return cmd
}

func readJSON(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// scoreOutput is a Result whose overall percentage may be non-finite, which
// happens when a test carries zero total marks. JSON has no such numbers, so
// they are written as "+Inf", "-Inf" or "NaN".
type scoreOutput struct {
	domain.Result
	PercentageScore any `json:"percentageScore"`
}

func newScoreOutput(r domain.Result) scoreOutput {
	out := scoreOutput{Result: r, PercentageScore: r.PercentageScore}
	if math.IsInf(r.PercentageScore, 0) || math.IsNaN(r.PercentageScore) {
		out.PercentageScore = strconv.FormatFloat(r.PercentageScore, 'f', -1, 64)
	}
	return out
}
