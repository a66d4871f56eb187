package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"

	"github.com/draftleague/scorekeeper/internal/sheets/grid"
)

// rowSpan is a half-open [start, end) row interval, matching the API's
// GridRange row indices.
type rowSpan struct {
	start, end int64
}

func (s rowSpan) empty() bool { return s.end <= s.start }

func (s rowSpan) overlaps(o rowSpan) bool {
	return s.start < o.end && o.start < s.end
}

// subtract returns the parts of s outside target, in row order: zero parts
// when target covers s, one when target clips an edge, two when target cuts
// a hole in the middle.
func subtract(s, target rowSpan) []rowSpan {
	if !s.overlaps(target) {
		return []rowSpan{s}
	}
	var out []rowSpan
	if head := (rowSpan{s.start, target.start}); !head.empty() {
		out = append(out, head)
	}
	if tail := (rowSpan{target.end, s.end}); !tail.empty() {
		out = append(out, tail)
	}
	return out
}

func colsOverlap(a *sheets.GridRange, r grid.Range) bool {
	return a.StartColumnIndex < int64(r.End.Col+1) && int64(r.Start.Col) < a.EndColumnIndex
}

// DeleteBanding removes every banding overlapping the target range on the
// tab. A banding the range covers entirely is deleted; a banding it clips
// is shrunk; a banding it punches through the middle of is split into the
// two remainders, keeping the original band colors.
func (w *Workbook) DeleteBanding(ctx context.Context, tabID int64, target grid.Range) error {
	if err := w.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh banding metadata: %w", err)
	}

	targetRows := rowSpan{int64(target.Start.Row), int64(target.End.Row + 1)}
	var reqs []*sheets.Request

	for _, sheet := range w.meta.Sheets {
		if sheet.Properties == nil || sheet.Properties.SheetId != tabID {
			continue
		}
		for _, br := range sheet.BandedRanges {
			if br.Range == nil || br.Range.SheetId != tabID {
				continue
			}
			if !colsOverlap(br.Range, target) {
				continue
			}
			bandRows := rowSpan{br.Range.StartRowIndex, br.Range.EndRowIndex}
			if !bandRows.overlaps(targetRows) {
				continue
			}

			remain := subtract(bandRows, targetRows)
			switch len(remain) {
			case 0:
				reqs = append(reqs, &sheets.Request{
					DeleteBanding: &sheets.DeleteBandingRequest{BandedRangeId: br.BandedRangeId},
				})
			case 1:
				shrunk := *br.Range
				shrunk.StartRowIndex = remain[0].start
				shrunk.EndRowIndex = remain[0].end
				reqs = append(reqs, &sheets.Request{
					UpdateBanding: &sheets.UpdateBandingRequest{
						BandedRange: &sheets.BandedRange{
							BandedRangeId: br.BandedRangeId,
							Range:         &shrunk,
							RowProperties: br.RowProperties,
						},
						Fields: "range",
					},
				})
			case 2:
				reqs = append(reqs, &sheets.Request{
					DeleteBanding: &sheets.DeleteBandingRequest{BandedRangeId: br.BandedRangeId},
				})
				for _, part := range remain {
					partRange := *br.Range
					partRange.StartRowIndex = part.start
					partRange.EndRowIndex = part.end
					reqs = append(reqs, &sheets.Request{
						AddBanding: &sheets.AddBandingRequest{
							BandedRange: &sheets.BandedRange{
								Range:         &partRange,
								RowProperties: br.RowProperties,
							},
						},
					})
				}
			}
		}
	}

	if len(reqs) == 0 {
		return nil
	}
	if err := w.BatchFormat(ctx, reqs); err != nil {
		return fmt.Errorf("delete banding: %w", err)
	}
	return w.Refresh(ctx)
}
