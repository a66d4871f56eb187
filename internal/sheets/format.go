package sheets

import (
	"google.golang.org/api/sheets/v4"

	"github.com/draftleague/scorekeeper/internal/sheets/grid"
)

// Board palette. Header and first band share the dark grey; the second band
// is the navy blue that gives the scoreboard its striped look.
var (
	BoardGrey  = &sheets.Color{Red: 0.26, Green: 0.26, Blue: 0.26}
	BandNavy   = &sheets.Color{Red: 0.05, Green: 0.17, Blue: 0.36}
	BorderGrey = &sheets.Color{Red: 0.6, Green: 0.6, Blue: 0.6}
	TextWhite  = &sheets.Color{Red: 1, Green: 1, Blue: 1}
)

// Fonts for the scoreboard. Week headers are display-sized.
const (
	FontFamily     = "Acme"
	DataFontSize   = 10
	HeaderFontSize = 24
)

// GridRange converts a zero-based inclusive grid.Range to the API's
// half-open representation.
func GridRange(tabID int64, r grid.Range) *sheets.GridRange {
	return &sheets.GridRange{
		SheetId:          tabID,
		StartRowIndex:    int64(r.Start.Row),
		EndRowIndex:      int64(r.End.Row + 1),
		StartColumnIndex: int64(r.Start.Col),
		EndColumnIndex:   int64(r.End.Col + 1),
	}
}

// MergeHeader merges a section's header row into a single cell.
func MergeHeader(tabID int64, top grid.Cell) *sheets.Request {
	r := grid.Range{
		Start: top,
		End:   grid.Cell{Row: top.Row, Col: top.Col + grid.SectionCols - 1},
	}
	return &sheets.Request{
		MergeCells: &sheets.MergeCellsRequest{
			Range:     GridRange(tabID, r),
			MergeType: "MERGE_ALL",
		},
	}
}

// Borders draws thin grey borders around and through a range.
func Borders(tabID int64, r grid.Range) *sheets.Request {
	thin := &sheets.Border{Style: "SOLID", Color: BorderGrey}
	return &sheets.Request{
		UpdateBorders: &sheets.UpdateBordersRequest{
			Range:           GridRange(tabID, r),
			Top:             thin,
			Bottom:          thin,
			Left:            thin,
			Right:           thin,
			InnerHorizontal: thin,
			InnerVertical:   thin,
		},
	}
}

// Banding applies the two-tone row banding over a section: dark header,
// dark first band, navy second band.
func Banding(tabID int64, r grid.Range) *sheets.Request {
	return &sheets.Request{
		AddBanding: &sheets.AddBandingRequest{
			BandedRange: &sheets.BandedRange{
				Range: GridRange(tabID, r),
				RowProperties: &sheets.BandingProperties{
					HeaderColor:     BoardGrey,
					FirstBandColor:  BoardGrey,
					SecondBandColor: BandNavy,
				},
			},
		},
	}
}

// Background paints a flat background color over a range.
func Background(tabID int64, r grid.Range, color *sheets.Color) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: GridRange(tabID, r),
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{BackgroundColor: color},
			},
			Fields: "userEnteredFormat.backgroundColor",
		},
	}
}

// TextStyle sets the board font at the given size, white and centered.
func TextStyle(tabID int64, r grid.Range, size int64) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: GridRange(tabID, r),
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{
					HorizontalAlignment: "CENTER",
					TextFormat: &sheets.TextFormat{
						FontFamily:      FontFamily,
						FontSize:        size,
						ForegroundColor: TextWhite,
					},
				},
			},
			Fields: "userEnteredFormat(horizontalAlignment,textFormat)",
		},
	}
}

// ClearFormat resets a range to the default cell format.
func ClearFormat(tabID int64, r grid.Range) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range:  GridRange(tabID, r),
			Cell:   &sheets.CellData{},
			Fields: "userEnteredFormat",
		},
	}
}

// ClearText blanks cell values in a range without touching formatting.
func ClearText(tabID int64, r grid.Range) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range:  GridRange(tabID, r),
			Cell:   &sheets.CellData{},
			Fields: "userEnteredValue",
		},
	}
}

// Unmerge removes any merges intersecting the range.
func Unmerge(tabID int64, r grid.Range) *sheets.Request {
	return &sheets.Request{
		UnmergeCells: &sheets.UnmergeCellsRequest{
			Range: GridRange(tabID, r),
		},
	}
}

// SectionFormat is the full formatting pass for a newly written section:
// merged header, banding, borders, fonts and centering.
func SectionFormat(tabID int64, top grid.Cell) []*sheets.Request {
	section := grid.SectionRangeAt(top)
	header := grid.Range{
		Start: top,
		End:   grid.Cell{Row: top.Row, Col: top.Col + grid.SectionCols - 1},
	}
	body := grid.Range{
		Start: grid.Cell{Row: top.Row + 1, Col: top.Col},
		End:   section.End,
	}
	return []*sheets.Request{
		MergeHeader(tabID, top),
		Banding(tabID, section),
		Borders(tabID, section),
		TextStyle(tabID, header, HeaderFontSize),
		TextStyle(tabID, body, DataFontSize),
	}
}
