package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/newsintel/internal/compare"
	"github.com/ppiankov/newsintel/internal/model"
)

// TimelineSource loads one keyword's sentiment timeline
type TimelineSource interface {
	Timeline(ctx context.Context, keywordID int64, days int) (model.SentimentTimeline, error)
}

// TimelineJob loads one timeline
type TimelineJob struct {
	KeywordID int64
	Days      int
	Source    TimelineSource
}

// Execute executes the timeline job
func (j *TimelineJob) Execute(ctx context.Context) Result {
	timeline, err := j.Source.Timeline(ctx, j.KeywordID, j.Days)
	if err != nil {
		return &TimelineResult{KeywordID: j.KeywordID, Error: err}
	}
	return &TimelineResult{KeywordID: j.KeywordID, Timeline: &timeline}
}

// TimelineResult is the outcome of a TimelineJob
type TimelineResult struct {
	KeywordID int64
	Timeline  *model.SentimentTimeline
	Error     error
}

// GetError returns the error from the timeline result
func (r *TimelineResult) GetError() error {
	return r.Error
}

// TimelineBatch loads several timelines concurrently
type TimelineBatch struct {
	source      TimelineSource
	concurrency int
}

// NewTimelineBatch creates a new timeline batch
func NewTimelineBatch(source TimelineSource, concurrency int) *TimelineBatch {
	return &TimelineBatch{
		source:      source,
		concurrency: concurrency,
	}
}

// Fetch loads the timelines of ids, returning results in the order of ids
func (b *TimelineBatch) Fetch(ctx context.Context, ids []int64, days int) []*TimelineResult {
	if len(ids) == 0 {
		return []*TimelineResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, id := range ids {
		pool.Submit(&TimelineJob{
			KeywordID: id,
			Days:      days,
			Source:    b.source,
		})
	}

	byID := make(map[int64]*TimelineResult, len(ids))
	for _, result := range pool.Wait() {
		r := result.(*TimelineResult)
		byID[r.KeywordID] = r
	}

	// Jobs dropped by cancellation have no result
	timelines := make([]*TimelineResult, len(ids))
	for i, id := range ids {
		if r, ok := byID[id]; ok {
			timelines[i] = r
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		timelines[i] = &TimelineResult{KeywordID: id, Error: err}
	}
	return timelines
}

// ReadIDsFromFile reads keyword ids from a file, one or more per line.
// Blank lines and # comments are skipped and duplicates dropped.
func ReadIDsFromFile(filePath string) ([]int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []int64
	seen := make(map[int64]bool)

	scanner := bufio.NewScanner(file)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parsed, err := compare.ParseIDs(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		for _, id := range parsed {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
