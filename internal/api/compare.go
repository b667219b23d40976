package api

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/newsintel/internal/compare"
	"github.com/ppiankov/newsintel/internal/model"
	"github.com/ppiankov/newsintel/internal/worker"
)

// Comparison is the merged sentiment timeline of several keywords
type Comparison struct {
	Days   int
	Series []compare.Series // selection order
	Rows   []compare.Row
	Legend []compare.LegendItem

	// Summary is the server ranking, present for two or more keywords
	Summary *model.SentimentComparison

	// Failures holds keywords whose timeline could not be loaded; they
	// still appear in Series and Legend with no points
	Failures map[int64]error
}

// Compare loads and merges the timelines of ids (at most compare.MaxSelected)
func (c *Client) Compare(ctx context.Context, ids []int64, days int) (*Comparison, error) {
	sel, err := compare.SelectionOf(compare.MaxSelected, ids)
	if err != nil {
		return nil, err
	}
	return c.CompareSelection(ctx, sel, days)
}

// CompareSelection is Compare for an existing selection, keeping its indices
func (c *Client) CompareSelection(ctx context.Context, sel *compare.Selection, days int) (*Comparison, error) {
	if days <= 0 {
		days = DefaultTimelineDays
	}

	items := sel.Items()
	ids := sel.IDs()
	out := &Comparison{
		Days:     days,
		Series:   []compare.Series{},
		Rows:     []compare.Row{},
		Legend:   []compare.LegendItem{},
		Failures: map[int64]error{},
	}
	if len(items) == 0 {
		return out, nil
	}

	var results []*worker.TimelineResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results = worker.NewTimelineBatch(c, c.workers).Fetch(gctx, ids, days)
		return nil
	})
	if sel.Ready() {
		g.Go(func() error {
			summary, err := c.CompareSentiment(gctx, ids)
			if err != nil {
				c.logger.Warn("comparison summary unavailable", zap.Error(err))
				return nil
			}
			out.Summary = &summary
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := c.summaryNames(out.Summary)
	for i, item := range items {
		r := results[i]
		label := names[item.EntityID]
		if label == "" {
			label = fmt.Sprintf("#%d", item.EntityID)
		}

		if r.Error != nil {
			out.Failures[item.EntityID] = r.Error
			out.Series = append(out.Series, compare.Series{EntityID: item.EntityID, Label: label, Index: item.Index})
			continue
		}

		if r.Timeline.KeywordEN != "" {
			label = r.Timeline.KeywordEN
		}
		s, err := compare.SeriesFromTimeline(item.EntityID, label, item.Index, *r.Timeline)
		if err != nil {
			out.Failures[item.EntityID] = err
			s = compare.Series{EntityID: item.EntityID, Label: label, Index: item.Index}
		}
		out.Series = append(out.Series, s)
	}

	if len(out.Failures) == len(items) {
		return nil, fmt.Errorf("compare: no timeline could be loaded: %w", firstFailure(out.Failures, ids))
	}

	out.Rows = compare.Merge(out.Series)
	out.Legend = compare.Legend(out.Series, compare.DefaultPalette)
	return out, nil
}

func (c *Client) summaryNames(summary *model.SentimentComparison) map[int64]string {
	names := make(map[int64]string)
	if summary == nil {
		return names
	}
	for _, k := range summary.Comparison {
		names[k.KeywordID] = k.KeywordEN
	}
	return names
}

func firstFailure(failures map[int64]error, ids []int64) error {
	for _, id := range ids {
		if err, ok := failures[id]; ok {
			return err
		}
	}
	return errors.New("unknown failure")
}
