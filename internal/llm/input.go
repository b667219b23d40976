package llm

import (
	"math"

	"github.com/ppiankov/newsintel/internal/compare"
	"github.com/ppiankov/newsintel/internal/model"
)

// KeywordStats summarises one compared series
type KeywordStats struct {
	EntityID  int64
	Label     string
	Points    int
	First     float64
	Last      float64
	Mean      float64
	Min       float64
	Max       float64
	Direction model.TrendDirection
	Failed    bool
}

// ComparisonInput is what the model sees of a comparison
type ComparisonInput struct {
	Days     int
	Keywords []KeywordStats
}

// InputFromSeries reduces merged series to statistics, in series order
func InputFromSeries(days int, series []compare.Series, failures map[int64]error) ComparisonInput {
	input := ComparisonInput{Days: days, Keywords: make([]KeywordStats, 0, len(series))}
	labels := compare.Labels(series)

	for i, s := range series {
		stats := KeywordStats{
			EntityID:  s.EntityID,
			Label:     labels[i],
			Points:    len(s.Points),
			Direction: model.TrendInsufficientData,
		}
		if _, failed := failures[s.EntityID]; failed {
			stats.Failed = true
			input.Keywords = append(input.Keywords, stats)
			continue
		}

		if len(s.Points) > 0 {
			stats.First = s.Points[0].Value
			stats.Last = s.Points[len(s.Points)-1].Value
			stats.Min, stats.Max = math.Inf(1), math.Inf(-1)
			sum := 0.0
			for _, p := range s.Points {
				sum += p.Value
				stats.Min = math.Min(stats.Min, p.Value)
				stats.Max = math.Max(stats.Max, p.Value)
			}
			stats.Mean = sum / float64(len(s.Points))
		}

		if len(s.Points) >= 2 {
			switch {
			case stats.Last > stats.First:
				stats.Direction = model.TrendImproving
			case stats.Last < stats.First:
				stats.Direction = model.TrendDeclining
			default:
				stats.Direction = model.TrendStable
			}
		}

		input.Keywords = append(input.Keywords, stats)
	}

	return input
}
