package league

import (
	"context"

	"github.com/draftleague/scorekeeper/internal/auth"
	"github.com/draftleague/scorekeeper/internal/sheets"
	"github.com/draftleague/scorekeeper/internal/sheets/grid"

	sheetsv4 "google.golang.org/api/sheets/v4"
)

// sheetsBoard adapts an open workbook to the Board interface the engine
// drives.
type sheetsBoard struct {
	w *sheets.Workbook
}

// NewBoard wraps a workbook as a Board.
func NewBoard(w *sheets.Workbook) Board {
	return &sheetsBoard{w: w}
}

func (b *sheetsBoard) ID() string { return b.w.ID() }

func (b *sheetsBoard) EnsureTab(ctx context.Context, name string) (int64, error) {
	return b.w.EnsureTab(ctx, name)
}

func (b *sheetsBoard) ReadTab(ctx context.Context, tab string) ([][]string, error) {
	return b.w.ReadTab(ctx, tab)
}

func (b *sheetsBoard) WriteRange(ctx context.Context, tab, a1 string, values [][]interface{}) error {
	return b.w.WriteRange(ctx, tab, a1, values)
}

func (b *sheetsBoard) FormatNewSection(ctx context.Context, tabID int64, top grid.Cell) error {
	return b.w.BatchFormat(ctx, sheets.SectionFormat(tabID, top))
}

// ClearSection strips a section back to bare board: banding first (it is
// bookkept separately and may need shrink/split compensation), then merges,
// text, formatting, and the dark-grey repaint.
func (b *sheetsBoard) ClearSection(ctx context.Context, tabID int64, section grid.Range) error {
	if err := b.w.DeleteBanding(ctx, tabID, section); err != nil {
		return err
	}
	return b.w.BatchFormat(ctx, []*sheetsv4.Request{
		sheets.Unmerge(tabID, section),
		sheets.ClearText(tabID, section),
		sheets.ClearFormat(tabID, section),
		sheets.Background(tabID, section, sheets.BoardGrey),
	})
}

// NewBoardOpener composes the credential broker with the Sheets client into
// the opener the engine uses. Probing during authentication and the final
// open go through the same workbook path.
func NewBoardOpener(broker *auth.Broker) BoardOpener {
	return func(ctx context.Context, tenant int64, link string) (Board, error) {
		ts, err := broker.Authenticate(ctx, tenant, link)
		if err != nil {
			return nil, err
		}
		client, err := sheets.NewClient(ctx, ts)
		if err != nil {
			return nil, err
		}
		w, err := client.OpenWorkbook(ctx, link)
		if err != nil {
			return nil, err
		}
		return NewBoard(w), nil
	}
}
