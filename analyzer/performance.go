package analyzer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/crawlytics/csvlog"
)

// TimingSummary describes upstream timing over bot-attributed rows, taken
// from the first timing column. Samples is zero when no row carried one.
type TimingSummary struct {
	Samples int
	Mean    float64
	Median  float64
	P95     float64
	Max     float64
}

// Timings collects timing samples from rows attributed to a bot and
// summarizes them. Rows without a parseable timing value are skipped.
func (a *Analyzer) Timings(rows *csvlog.RowReader) (TimingSummary, error) {
	var samples []float64

	if rows != nil {
		for {
			row, err := rows.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return TimingSummary{}, fmt.Errorf("reading rows: %w", err)
			}

			if c := a.registry.Classify(strings.TrimSpace(row["user_agent"])); !c.IsBot {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row["time1"]), 64)
			if err != nil {
				continue
			}
			samples = append(samples, v)
		}
	}

	if len(samples) == 0 {
		return TimingSummary{}, nil
	}

	summary := TimingSummary{Samples: len(samples)}
	summary.Mean, _ = stats.Mean(samples)
	summary.Median, _ = stats.Median(samples)
	summary.P95, _ = stats.Percentile(samples, 95)
	summary.Max, _ = stats.Max(samples)

	return summary, nil
}
