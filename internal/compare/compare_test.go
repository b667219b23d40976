package compare

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/newsintel/internal/model"
)

func day(d int) civil.Date {
	return civil.Date{Year: 2024, Month: 3, Day: d}
}

func mustSeries(t *testing.T, id int64, label string, index int, points ...Point) Series {
	t.Helper()
	s, err := NewSeries(id, label, index, points)
	if err != nil {
		t.Fatalf("NewSeries failed: %v", err)
	}
	return s
}

func ptr(v float64) *float64 {
	return &v
}

func TestMerge_Empty(t *testing.T) {
	if got := Merge(nil); len(got) != 0 {
		t.Errorf("Merge(nil) = %v, want empty", got)
	}

	empty := mustSeries(t, 1, "A", 0)
	if got := Merge([]Series{empty, mustSeries(t, 2, "B", 1)}); len(got) != 0 {
		t.Errorf("merging empty series = %v, want empty", got)
	}
}

func TestMerge_SingleSeries(t *testing.T) {
	a := mustSeries(t, 1, "A", 0, Point{day(2), 0.5}, Point{day(1), -0.2})

	got := Merge([]Series{a})
	want := []Row{
		{Date: day(1), Values: map[string]float64{"A": -0.2}},
		{Date: day(2), Values: map[string]float64{"A": 0.5}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_UnionWithoutZeroFill(t *testing.T) {
	a := mustSeries(t, 1, "A", 0, Point{day(1), 0.1}, Point{day(2), 0.2})
	b := mustSeries(t, 2, "B", 1, Point{day(2), -0.3}, Point{day(3), 0})

	got := Merge([]Series{a, b})
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}

	tests := []struct {
		row   int
		label string
		value float64
		ok    bool
	}{
		{0, "A", 0.1, true},
		{0, "B", 0, false},
		{1, "A", 0.2, true},
		{1, "B", -0.3, true},
		{2, "A", 0, false},
		{2, "B", 0, true}, // a real zero is present
	}

	for _, tt := range tests {
		v, ok := got[tt.row].Value(tt.label)
		if ok != tt.ok || v != tt.value {
			t.Errorf("row %d %s = %v, %v; want %v, %v", tt.row, tt.label, v, ok, tt.value, tt.ok)
		}
	}

	for i := 1; i < len(got); i++ {
		if !got[i-1].Date.Before(got[i].Date) {
			t.Errorf("rows not ascending at %d", i)
		}
	}
}

func TestMerge_DuplicateLabels(t *testing.T) {
	a := mustSeries(t, 1, "EU", 0, Point{day(1), 0.1})
	b := mustSeries(t, 2, "EU", 1, Point{day(1), 0.2})

	got := Merge([]Series{a, b})
	if len(got[0].Values) != 2 {
		t.Fatalf("expected both entities on the row, got %v", got[0].Values)
	}
	if v, _ := got[0].Value("EU #2"); v != 0.2 {
		t.Errorf("expected disambiguated label, got %v", got[0].Values)
	}
}

func TestNewSeries_RejectsDuplicateDays(t *testing.T) {
	_, err := NewSeries(1, "A", 0, []Point{{day(1), 0.1}, {day(1), 0.2}})
	if err == nil {
		t.Error("expected error for duplicate day")
	}
}

func TestSeriesFromTimeline(t *testing.T) {
	timeline := model.SentimentTimeline{
		KeywordID: 4,
		Timeline: []model.TimelinePoint{
			{Date: "2024-03-02", AvgSentiment: ptr(0.4)},
			{Date: "2024-03-01T08:00:00", AvgSentiment: ptr(0.1)},
			{Date: "2024-03-01T20:00:00", AvgSentiment: ptr(0.3)}, // same day, later wins
			{Date: "2024-03-03", AvgSentiment: nil},
		},
	}

	s, err := SeriesFromTimeline(4, "Thailand", 2, timeline)
	if err != nil {
		t.Fatalf("SeriesFromTimeline failed: %v", err)
	}

	want := []Point{{day(1), 0.3}, {day(2), 0.4}}
	if diff := cmp.Diff(want, s.Points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
	if s.Index != 2 || s.Label != "Thailand" {
		t.Errorf("unexpected series metadata %+v", s)
	}
}

func TestSeriesFromTimeline_BadDate(t *testing.T) {
	timeline := model.SentimentTimeline{Timeline: []model.TimelinePoint{{Date: "yesterday", AvgSentiment: ptr(1)}}}
	if _, err := SeriesFromTimeline(1, "A", 0, timeline); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestSelection_StableIndices(t *testing.T) {
	s := NewSelection(MaxSelected)
	for _, id := range []int64{10, 20, 30} {
		if _, err := s.Add(id); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}

	// Removing and re-adding another entity must not move 30
	s.Remove(20)
	if idx, _ := s.Index(30); idx != 2 {
		t.Errorf("index of 30 = %d, want 2", idx)
	}

	added, err := s.Add(40)
	if err != nil {
		t.Fatalf("Add(40): %v", err)
	}
	if added.Index != 1 {
		t.Errorf("new entity should take the lowest free index, got %d", added.Index)
	}
	if idx, _ := s.Index(30); idx != 2 {
		t.Errorf("index of 30 changed to %d", idx)
	}

	if got := s.IDs(); !cmp.Equal(got, []int64{10, 30, 40}) {
		t.Errorf("IDs() = %v", got)
	}
}

func TestSelection_Limits(t *testing.T) {
	s, err := SelectionOf(2, []int64{1, 2, 1})
	if err != nil {
		t.Fatalf("SelectionOf: %v", err)
	}
	if !s.Ready() {
		t.Error("two entities should be ready to compare")
	}

	if _, err := s.Add(3); !errors.Is(err, ErrSelectionFull) {
		t.Errorf("expected ErrSelectionFull, got %v", err)
	}
	if _, err := s.Add(1); !errors.Is(err, ErrAlreadySelected) {
		t.Errorf("expected ErrAlreadySelected, got %v", err)
	}
	if _, err := SelectionOf(2, []int64{1, 2, 3}); !errors.Is(err, ErrSelectionFull) {
		t.Errorf("expected ErrSelectionFull, got %v", err)
	}
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		in      string
		want    []int64
		wantErr bool
	}{
		{"1,2,3", []int64{1, 2, 3}, false},
		{" 4 , 5 ", []int64{4, 5}, false},
		{"", nil, false},
		{"1,,2", []int64{1, 2}, false},
		{"1,x", nil, true},
		{"-1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIDs(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIDs(%q) error = %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseIDs(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}

	if got := FormatIDs([]int64{1, 2, 3}); got != "1,2,3" {
		t.Errorf("FormatIDs = %q", got)
	}
}

func TestLegend_IncludesEmptySeries(t *testing.T) {
	a := mustSeries(t, 1, "A", 0, Point{day(1), 0.1})
	b := mustSeries(t, 2, "B", 3)

	items := Legend([]Series{a, b}, DefaultPalette)
	if len(items) != 2 {
		t.Fatalf("expected 2 legend items, got %d", len(items))
	}
	if items[1].Points != 0 || items[1].Color != "#f59e0b" {
		t.Errorf("unexpected legend item %+v", items[1])
	}
	if DefaultPalette.Color(7) != "#ef4444" {
		t.Errorf("palette should cycle, got %s", DefaultPalette.Color(7))
	}
}
