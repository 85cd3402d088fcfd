package sheets

import (
	"context"
	"fmt"
	"sync"
)

// Writer puts session records into a spreadsheet.
type Writer interface {
	// CreateSheet adds a sheet titled base, or base_2, base_3... when taken,
	// writes the tracking header and returns the title used. key identifies
	// the sheet across retries: when a sheet with key already exists its
	// title is returned and nothing is added.
	CreateSheet(ctx context.Context, base string, key int64) (string, error)

	// WriteInfo overwrites the session info block.
	WriteInfo(ctx context.Context, sheet string, info SessionInfo) error

	// AppendRows adds tracking rows below the last written one.
	AppendRows(ctx context.Context, sheet string, rows []TrackingRow) error

	// WriteResults writes the results header at row, followed by one row per player.
	WriteResults(ctx context.Context, sheet string, row int, results []FinalResult) error
}

// =============================================================================
// DISCARD - Used when no spreadsheet is configured
// =============================================================================

type Discard struct{}

func (Discard) CreateSheet(_ context.Context, base string, _ int64) (string, error) { return base, nil }
func (Discard) WriteInfo(context.Context, string, SessionInfo) error       { return nil }
func (Discard) AppendRows(context.Context, string, []TrackingRow) error    { return nil }
func (Discard) WriteResults(context.Context, string, int, []FinalResult) error {
	return nil
}

// =============================================================================
// MEMORY - Keeps sheets in memory (console mode and tests)
// =============================================================================

// Sheet is the in-memory content of one sheet.
type Sheet struct {
	Key        int64
	Title      string
	Info       SessionInfo
	Rows       []TrackingRow
	ResultsRow int
	Results    []FinalResult
}

type Memory struct {
	mu     sync.Mutex
	sheets map[string]*Sheet
	keys   map[int64]string
	order  []string
}

func NewMemory() *Memory {
	return &Memory{sheets: make(map[string]*Sheet), keys: make(map[int64]string)}
}

func (m *Memory) CreateSheet(_ context.Context, base string, key int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if title, ok := m.keys[key]; ok {
		return title, nil
	}
	title := uniqueTitle(base, func(t string) bool { _, ok := m.sheets[t]; return ok })
	m.sheets[title] = &Sheet{Key: key, Title: title}
	m.keys[key] = title
	m.order = append(m.order, title)
	return title, nil
}

func (m *Memory) WriteInfo(_ context.Context, sheet string, info SessionInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(sheet)
	if err != nil {
		return err
	}
	s.Info = info
	return nil
}

func (m *Memory) AppendRows(_ context.Context, sheet string, rows []TrackingRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(sheet)
	if err != nil {
		return err
	}
	s.Rows = append(s.Rows, rows...)
	return nil
}

func (m *Memory) WriteResults(_ context.Context, sheet string, row int, results []FinalResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(sheet)
	if err != nil {
		return err
	}
	s.ResultsRow = row
	s.Results = append([]FinalResult(nil), results...)
	return nil
}

// Sheet returns a copy of a sheet's content.
func (m *Memory) Sheet(title string) (Sheet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sheets[title]
	if !ok {
		return Sheet{}, false
	}
	cp := *s
	cp.Rows = append([]TrackingRow(nil), s.Rows...)
	return cp, true
}

// Titles returns sheet titles in creation order.
func (m *Memory) Titles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

func (m *Memory) lookup(title string) (*Sheet, error) {
	s, ok := m.sheets[title]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", title)
	}
	return s, nil
}

// uniqueTitle appends _2, _3... to base until taken reports false.
func uniqueTitle(base string, taken func(string) bool) string {
	title := base
	for n := 2; taken(title); n++ {
		title = fmt.Sprintf("%s_%d", base, n)
	}
	return title
}

var (
	_ Writer = Discard{}
	_ Writer = (*Memory)(nil)
)
