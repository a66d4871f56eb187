// Package sheets is the only component that talks to the Google Sheets
// service. It exposes range reads/writes and the batch formatting the
// scoreboard needs; everything above it works on plain values.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/draftleague/scorekeeper/internal/sheets/grid"
)

// ErrInvalidWorkbook is returned for malformed links and for sheets the
// current credentials cannot open.
var ErrInvalidWorkbook = errors.New("invalid sheets link")

// workbookIDPattern matches the document id inside ".../d/<id>/...".
var workbookIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)

const (
	// Sheets API quota is 60 write requests per minute per user.
	rateLimitDelay = time.Second

	// New tabs are painted dark grey across this many rows and columns.
	newTabRows = 1000
	newTabCols = 26
)

// Client wraps the Sheets service with a shared rate limiter.
type Client struct {
	svc     *sheets.Service
	limiter *rate.Limiter
}

// NewClient builds a Sheets client from an OAuth token source.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	svc, err := sheets.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:     svc,
		limiter: rate.NewLimiter(rate.Every(rateLimitDelay), 1),
	}, nil
}

// WorkbookID extracts the spreadsheet id from a sharing link.
func WorkbookID(link string) (string, error) {
	m := workbookIDPattern.FindStringSubmatch(link)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidWorkbook, link)
	}
	return m[1], nil
}

// Workbook is an open spreadsheet plus its cached metadata.
type Workbook struct {
	c    *Client
	id   string
	meta *sheets.Spreadsheet
}

// OpenWorkbook validates the link shape and fetches metadata. Permission
// denials surface as ErrInvalidWorkbook, matching what the user can fix.
func (c *Client) OpenWorkbook(ctx context.Context, link string) (*Workbook, error) {
	id, err := WorkbookID(link)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	meta, err := c.svc.Spreadsheets.Get(id).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return &Workbook{c: c, id: id, meta: meta}, nil
}

// ID returns the spreadsheet id.
func (w *Workbook) ID() string { return w.id }

// Refresh refetches metadata; needed after structural changes so banding
// bookkeeping sees current state.
func (w *Workbook) Refresh(ctx context.Context) error {
	if err := w.c.limiter.Wait(ctx); err != nil {
		return err
	}
	meta, err := w.c.svc.Spreadsheets.Get(w.id).Context(ctx).Do()
	if err != nil {
		return wrapAPIError(err)
	}
	w.meta = meta
	return nil
}

// TabID looks up a tab id by title in the cached metadata.
func (w *Workbook) TabID(name string) (int64, bool) {
	for _, s := range w.meta.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return s.Properties.SheetId, true
		}
	}
	return 0, false
}

// EnsureTab returns the id of the named tab, creating it when missing. A
// freshly created tab gets the dark-grey board background.
func (w *Workbook) EnsureTab(ctx context.Context, name string) (int64, error) {
	if id, ok := w.TabID(name); ok {
		return id, nil
	}

	resp, err := w.batchUpdate(ctx, []*sheets.Request{{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{
				Title: name,
				GridProperties: &sheets.GridProperties{
					RowCount:    newTabRows,
					ColumnCount: newTabCols,
				},
			},
		},
	}})
	if err != nil {
		return 0, fmt.Errorf("create tab %q: %w", name, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("create tab %q: empty reply", name)
	}
	tabID := resp.Replies[0].AddSheet.Properties.SheetId

	board := grid.Range{End: grid.Cell{Row: newTabRows - 1, Col: newTabCols - 1}}
	if err := w.BatchFormat(ctx, []*sheets.Request{Background(tabID, board, BoardGrey)}); err != nil {
		return 0, fmt.Errorf("paint tab %q: %w", name, err)
	}
	if err := w.Refresh(ctx); err != nil {
		return 0, err
	}
	return tabID, nil
}

// ReadRange reads a range as strings; absent cells come back empty.
func (w *Workbook) ReadRange(ctx context.Context, tab, a1 string) ([][]string, error) {
	if err := w.c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := w.c.svc.Spreadsheets.Values.Get(w.id, tab+"!"+a1).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err)
	}
	values := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		values[i] = make([]string, len(row))
		for j, cell := range row {
			values[i][j] = fmt.Sprint(cell)
		}
	}
	return values, nil
}

// ReadTab reads the whole used range of a tab.
func (w *Workbook) ReadTab(ctx context.Context, tab string) ([][]string, error) {
	return w.ReadRange(ctx, tab, "A1:Z1000")
}

// WriteRange writes values with USER_ENTERED semantics so numbers land as
// numbers.
func (w *Workbook) WriteRange(ctx context.Context, tab, a1 string, values [][]interface{}) error {
	if err := w.c.limiter.Wait(ctx); err != nil {
		return err
	}
	vr := &sheets.ValueRange{Values: values}
	_, err := w.c.svc.Spreadsheets.Values.
		Update(w.id, tab+"!"+a1, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return wrapAPIError(err)
	}
	return nil
}

// ClearValues clears cell text in a range, leaving formatting alone.
func (w *Workbook) ClearValues(ctx context.Context, tab, a1 string) error {
	if err := w.c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := w.c.svc.Spreadsheets.Values.
		Clear(w.id, tab+"!"+a1, &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return wrapAPIError(err)
	}
	return nil
}

// BatchFormat applies formatting requests in one round trip.
func (w *Workbook) BatchFormat(ctx context.Context, reqs []*sheets.Request) error {
	if len(reqs) == 0 {
		return nil
	}
	_, err := w.batchUpdate(ctx, reqs)
	return err
}

func (w *Workbook) batchUpdate(ctx context.Context, reqs []*sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	if err := w.c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := w.c.svc.Spreadsheets.BatchUpdate(w.id, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: reqs,
	}).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return resp, nil
}

// wrapAPIError maps permission and not-found responses onto
// ErrInvalidWorkbook; everything else passes through.
func wrapAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 403, 404:
			return fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
		}
	}
	return err
}
