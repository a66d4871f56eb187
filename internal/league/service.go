// Package league turns replay analyses into scoreboard writes. It owns the
// update state machine (merge into an existing section or place a fresh
// one), the per-server write lock, and the replay journal that guards
// against double-counting.
package league

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/draftleague/scorekeeper/internal/sheets/grid"
	"github.com/draftleague/scorekeeper/internal/showdown/attribution"
	"github.com/draftleague/scorekeeper/internal/showdown/replay"
	"github.com/draftleague/scorekeeper/internal/storage/repository"
)

// DefaultTab is the scoreboard tab used when neither the request nor the
// saved binding names one.
const DefaultTab = "Stats"

// Board is the slice of an open workbook the engine drives. The production
// implementation wraps the Sheets client; tests substitute an in-memory grid.
type Board interface {
	ID() string
	EnsureTab(ctx context.Context, name string) (int64, error)
	ReadTab(ctx context.Context, tab string) ([][]string, error)
	WriteRange(ctx context.Context, tab, a1 string, values [][]interface{}) error
	FormatNewSection(ctx context.Context, tabID int64, top grid.Cell) error
	ClearSection(ctx context.Context, tabID int64, section grid.Range) error
}

// BoardOpener authenticates the tenant and opens the workbook behind a
// sharing link. Credential acquisition (including the interactive flow)
// happens inside the opener.
type BoardOpener func(ctx context.Context, tenant int64, link string) (Board, error)

// Service is the scoreboard engine.
type Service struct {
	open     BoardOpener
	bindings repository.BindingsRepository
	replays  repository.ReplaysRepository

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService wires a scoreboard engine.
func NewService(open BoardOpener, bindings repository.BindingsRepository, replays repository.ReplaysRepository) *Service {
	return &Service{
		open:     open,
		bindings: bindings,
		replays:  replays,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// tenantLock returns the per-server mutex, creating it on first use. Sheet
// updates for one server are serialized; different servers proceed in
// parallel.
func (s *Service) tenantLock(tenant int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[tenant]
	if !ok {
		l = &sync.Mutex{}
		s.locks[tenant] = l
	}
	return l
}

// resolve fills in the link and tab from the tenant's saved binding when the
// request leaves them empty.
func (s *Service) resolve(ctx context.Context, tenant int64, link, tab string) (string, string, error) {
	if link == "" {
		b, err := s.bindings.Get(ctx, tenant)
		if err != nil {
			return "", "", err
		}
		link = b.SheetURL
		if tab == "" {
			tab = b.TabName
		}
	}
	if tab == "" {
		tab = DefaultTab
	}
	return link, tab, nil
}

// SectionReport describes what happened to one player's section.
type SectionReport struct {
	Player  string `json:"player"`
	Created bool   `json:"created"`
	Rows    int    `json:"rows"`
}

// UpdateReport summarizes a scoreboard update.
type UpdateReport struct {
	JobID    string          `json:"job_id"`
	SheetID  string          `json:"sheet_id"`
	Tab      string          `json:"tab"`
	ReplayID string          `json:"replay_id"`
	Sections []SectionReport `json:"sections"`
}

// Update folds one analyzed replay into the scoreboard, first player then
// second. Each player's section is merged in place when its labels check
// out, otherwise a fresh section is placed and formatted. Repeat replays
// are rejected unless force is set. Failures between the two players leave
// the first player's rows written and the replay unjournaled; re-running the
// update is the recovery path, there is no rollback.
func (s *Service) Update(ctx context.Context, tenant int64, link, tab string, a *replay.Analysis, force bool) (*UpdateReport, error) {
	link, tab, err := s.resolve(ctx, tenant, link, tab)
	if err != nil {
		return nil, err
	}

	lock := s.tenantLock(tenant)
	lock.Lock()
	defer lock.Unlock()

	jobID := uuid.New().String()
	log.Printf("[%s] update: tenant=%d replay=%s tab=%q", jobID, tenant, a.ReplayID, tab)

	board, err := s.open(ctx, tenant, link)
	if err != nil {
		return nil, err
	}

	applied, err := s.replays.Applied(ctx, tenant, board.ID(), a.ReplayID)
	if err != nil {
		return nil, err
	}
	if applied {
		if !force {
			return nil, fmt.Errorf("%w: %s", repository.ErrReplayAlreadyApplied, a.ReplayID)
		}
		log.Printf("[%s] replay %s already journaled, forced reapply", jobID, a.ReplayID)
	}

	tabID, err := board.EnsureTab(ctx, tab)
	if err != nil {
		return nil, err
	}

	report := &UpdateReport{
		JobID:    jobID,
		SheetID:  board.ID(),
		Tab:      tab,
		ReplayID: a.ReplayID,
	}
	for _, p := range a.Players {
		lines := toLines(p.Pokemon)
		sr, err := s.applyPlayer(ctx, board, tab, tabID, p.Name, lines)
		if err != nil {
			return nil, fmt.Errorf("update section for %s: %w", p.Name, err)
		}
		report.Sections = append(report.Sections, sr)
		log.Printf("[%s] %s: created=%v rows=%d", jobID, p.Name, sr.Created, sr.Rows)
	}

	// Journal only after both sections landed: a partial failure must leave
	// the replay unjournaled so a plain re-run is the recovery path.
	if err := s.replays.Record(ctx, tenant, board.ID(), a.ReplayID); err != nil {
		if !errors.Is(err, repository.ErrReplayAlreadyApplied) {
			return nil, err
		}
	}
	return report, nil
}

// applyPlayer writes one player's lines. The tab is re-read per player so
// the second section lands relative to the first one's writes.
func (s *Service) applyPlayer(ctx context.Context, board Board, tab string, tabID int64, player string, lines []grid.PokemonLine) (SectionReport, error) {
	values, err := board.ReadTab(ctx, tab)
	if err != nil {
		return SectionReport{}, err
	}

	if grid.CheckLabels(values, player) {
		return s.mergeSection(ctx, board, tab, values, player, lines)
	}
	return s.newSection(ctx, board, tab, tabID, values, player, lines)
}

// mergeSection accumulates the lines into the player's existing data rows,
// writing back only the rows that changed, top to bottom.
func (s *Service) mergeSection(ctx context.Context, board Board, tab string, values [][]string, player string, lines []grid.PokemonLine) (SectionReport, error) {
	statRange, err := grid.StatRange(values, player)
	if err != nil {
		return SectionReport{}, err
	}

	existing := make([][]string, grid.DataRows)
	for r := 0; r < grid.DataRows; r++ {
		row := make([]string, grid.SectionCols)
		for c := 0; c < grid.SectionCols; c++ {
			row[c] = cellAt(values, statRange.Start.Row+r, statRange.Start.Col+c)
		}
		existing[r] = row
	}

	updates, err := grid.MergePokemon(player, existing, lines)
	if err != nil {
		return SectionReport{}, err
	}

	for _, u := range updates {
		target := grid.Range{
			Start: grid.Cell{Row: statRange.Start.Row + u.Row, Col: statRange.Start.Col},
			End:   grid.Cell{Row: statRange.Start.Row + u.Row, Col: statRange.Start.Col + grid.SectionCols - 1},
		}
		if err := board.WriteRange(ctx, tab, target.A1(), [][]interface{}{anyRow(u.Values[:])}); err != nil {
			return SectionReport{}, err
		}
	}
	return SectionReport{Player: player, Rows: len(updates)}, nil
}

// newSection places a fresh 14-row section at the next free slot and runs
// the full formatting pass over it.
func (s *Service) newSection(ctx context.Context, board Board, tab string, tabID int64, values [][]string, player string, lines []grid.PokemonLine) (SectionReport, error) {
	top := grid.NextDataCell(values)
	rows := grid.NewSectionRows(player, lines)

	section := grid.SectionRangeAt(top)
	payload := make([][]interface{}, len(rows))
	for i, row := range rows {
		payload[i] = anyRow(row)
	}
	if err := board.WriteRange(ctx, tab, section.A1(), payload); err != nil {
		return SectionReport{}, err
	}
	if err := board.FormatNewSection(ctx, tabID, top); err != nil {
		return SectionReport{}, err
	}
	return SectionReport{Player: player, Created: true, Rows: len(lines)}, nil
}

// Delete removes a player's section: text, formatting and banding.
func (s *Service) Delete(ctx context.Context, tenant int64, link, tab, player string) error {
	link, tab, err := s.resolve(ctx, tenant, link, tab)
	if err != nil {
		return err
	}

	lock := s.tenantLock(tenant)
	lock.Lock()
	defer lock.Unlock()

	jobID := uuid.New().String()
	log.Printf("[%s] delete: tenant=%d player=%q tab=%q", jobID, tenant, player, tab)

	board, err := s.open(ctx, tenant, link)
	if err != nil {
		return err
	}
	tabID, err := board.EnsureTab(ctx, tab)
	if err != nil {
		return err
	}
	values, err := board.ReadTab(ctx, tab)
	if err != nil {
		return err
	}

	section, err := grid.SectionRange(values, player)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNameNotFound, player)
	}
	return board.ClearSection(ctx, tabID, section)
}

// Players lists the section headers on the scoreboard tab.
func (s *Service) Players(ctx context.Context, tenant int64, link, tab string) ([]string, error) {
	values, err := s.readTab(ctx, tenant, link, tab)
	if err != nil {
		return nil, err
	}

	var players []string
	for block := 0; block*grid.BlockRows+1 < len(values); block++ {
		for slot := 0; slot < grid.Slots; slot++ {
			top := grid.SectionTop(block, slot)
			name := strings.TrimSpace(cellAt(values, top.Row, top.Col))
			if name != "" && grid.CheckLabels(values, name) {
				players = append(players, name)
			}
		}
	}
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}
	return players, nil
}

// Pokemon lists the recorded stat rows for one player.
func (s *Service) Pokemon(ctx context.Context, tenant int64, link, tab, player string) ([]grid.PokemonLine, error) {
	values, err := s.readTab(ctx, tenant, link, tab)
	if err != nil {
		return nil, err
	}

	statRange, err := grid.StatRange(values, player)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNameNotFound, player)
	}

	var lines []grid.PokemonLine
	for r := 0; r < grid.DataRows; r++ {
		name := strings.TrimSpace(cellAt(values, statRange.Start.Row+r, statRange.Start.Col))
		if name == "" {
			continue
		}
		lines = append(lines, grid.PokemonLine{
			Name:   name,
			Kills:  atoi(cellAt(values, statRange.Start.Row+r, statRange.Start.Col+2)),
			Deaths: atoi(cellAt(values, statRange.Start.Row+r, statRange.Start.Col+3)),
		})
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPokemon, player)
	}
	return lines, nil
}

func (s *Service) readTab(ctx context.Context, tenant int64, link, tab string) ([][]string, error) {
	link, tab, err := s.resolve(ctx, tenant, link, tab)
	if err != nil {
		return nil, err
	}
	board, err := s.open(ctx, tenant, link)
	if err != nil {
		return nil, err
	}
	return board.ReadTab(ctx, tab)
}

func toLines(stats []attribution.PokemonStat) []grid.PokemonLine {
	lines := make([]grid.PokemonLine, 0, len(stats))
	for _, p := range stats {
		lines = append(lines, grid.PokemonLine{Name: p.Name, Kills: p.Kills, Deaths: p.Deaths})
	}
	return lines
}

func cellAt(values [][]string, row, col int) string {
	if row < 0 || row >= len(values) || col < 0 || col >= len(values[row]) {
		return ""
	}
	return values[row][col]
}

func anyRow(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
