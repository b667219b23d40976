package compare

import (
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"

	"github.com/ppiankov/newsintel/internal/model"
)

// Point is one value of a series on a calendar day
type Point struct {
	Date  civil.Date
	Value float64
}

// Series is one compared entity's values, ascending by date with unique days
type Series struct {
	EntityID int64
	Label    string
	Index    int // stable selection index, drives the colour
	Points   []Point
}

// NewSeries sorts points by date and rejects duplicate days
func NewSeries(entityID int64, label string, index int, points []Point) (Series, error) {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Date == sorted[i-1].Date {
			return Series{}, fmt.Errorf("series %d: duplicate date %s", entityID, sorted[i].Date)
		}
	}

	return Series{EntityID: entityID, Label: label, Index: index, Points: sorted}, nil
}

// SeriesFromTimeline converts an API timeline. Days without an average are
// absent; time of day is ignored and a later point for the same day wins.
func SeriesFromTimeline(entityID int64, label string, index int, timeline model.SentimentTimeline) (Series, error) {
	byDay := make(map[civil.Date]float64, len(timeline.Timeline))
	for _, p := range timeline.Timeline {
		if p.AvgSentiment == nil {
			continue
		}
		day, err := ParseDay(p.Date)
		if err != nil {
			return Series{}, fmt.Errorf("keyword %d: %w", entityID, err)
		}
		byDay[day] = *p.AvgSentiment
	}

	points := make([]Point, 0, len(byDay))
	for day, v := range byDay {
		points = append(points, Point{Date: day, Value: v})
	}
	return NewSeries(entityID, label, index, points)
}

// ParseDay reads the calendar day of "2006-01-02" or an RFC 3339 timestamp
func ParseDay(s string) (civil.Date, error) {
	if len(s) < 10 {
		return civil.Date{}, fmt.Errorf("invalid date %q", s)
	}
	d, err := civil.ParseDate(s[:10])
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if !d.IsValid() {
		return civil.Date{}, errors.New("invalid date " + s)
	}
	return d, nil
}

// Latest returns the last point of the series
func (s Series) Latest() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}
