package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"marketwatch/config"
	"marketwatch/pkg/yahoo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubFetcher struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls int
}

func (f *stubFetcher) DailyBars(ctx context.Context, symbol string, days int) ([]yahoo.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[symbol] {
		return nil, yahoo.ErrSymbolUnknown
	}
	return []yahoo.Bar{
		{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Open: 100, High: 110.25, Low: 95, Close: 105.5, Volume: 12345},
	}, nil
}

func (f *stubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingMirror struct {
	rows   []Row
	err    error
	stored []Row

	requested time.Time
	prunedTo  time.Time
}

func (m *recordingMirror) SaveSnapshot(ctx context.Context, rows []Row) error {
	m.rows = rows
	return m.err
}

func (m *recordingMirror) GetSnapshot(ctx context.Context, asOf time.Time) ([]Row, error) {
	m.requested = asOf
	out := make([]Row, 0, len(m.stored))
	for _, r := range m.stored {
		r.AsOf = asOf
		out = append(out, r)
	}
	return out, nil
}

func (m *recordingMirror) DeleteSnapshotsBefore(ctx context.Context, before time.Time) error {
	m.prunedTo = before
	return nil
}

var universe = []string{"TCS.NS", "INFY.NS", "DELISTED.NS", "GOLDBEES.NS", "USDINR=X"}

func openTestStore(t *testing.T, f Fetcher, opts Options) (*Store, *time.Time) {
	t.Helper()
	if opts.Path == "" {
		opts.Path = filepath.Join(t.TempDir(), "market_data.csv")
	}
	s := Open(f, opts, zap.NewNop())
	now := time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

// go test -v --run TestReadBeforeRefreshIsEmpty
func TestReadBeforeRefreshIsEmpty(t *testing.T) {
	s, _ := openTestStore(t, &stubFetcher{}, Options{})
	assert.Empty(t, s.Read())
	assert.True(t, s.AsOf().IsZero())
	assert.False(t, s.Fresh())
}

// go test -v --run TestRefreshSkipsFailingSymbol
func TestRefreshSkipsFailingSymbol(t *testing.T) {
	f := &stubFetcher{fail: map[string]bool{"DELISTED.NS": true}}
	s, _ := openTestStore(t, f, Options{})

	require.NoError(t, s.Refresh(context.Background(), universe))

	rows := s.Read()
	assert.Len(t, rows, 4)
	assert.NotContains(t, rows, "DELISTED.NS")

	tcs := rows["TCS.NS"]
	assert.Equal(t, 105.5, tcs.Close)
	assert.Equal(t, int64(12345), tcs.Volume)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), tcs.AsOf)
}

// go test -v --run TestRefreshOncePerDay
func TestRefreshOncePerDay(t *testing.T) {
	f := &stubFetcher{}
	s, now := openTestStore(t, f, Options{})

	require.NoError(t, s.Refresh(context.Background(), universe))
	batch := f.Calls()
	assert.Equal(t, len(universe), batch)

	*now = now.Add(8 * time.Hour)
	require.NoError(t, s.Refresh(context.Background(), universe))
	assert.Equal(t, batch, f.Calls())

	// next calendar day refreshes again
	*now = now.Add(24 * time.Hour)
	require.NoError(t, s.Refresh(context.Background(), universe))
	assert.Equal(t, 2*batch, f.Calls())
}

// go test -v --run TestConcurrentRefreshRunsOneBatch
func TestConcurrentRefreshRunsOneBatch(t *testing.T) {
	f := &stubFetcher{}
	s, _ := openTestStore(t, f, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Refresh(context.Background(), universe))
		}()
	}
	wg.Wait()

	assert.Equal(t, len(universe), f.Calls())
}

// go test -v --run TestRefreshUsesLocalCalendar
func TestRefreshUsesLocalCalendar(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	f := &stubFetcher{}
	s, now := openTestStore(t, f, Options{Location: ist})

	// 20:00 UTC on June 3 is already June 4 in IST
	*now = time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC)
	require.NoError(t, s.Refresh(context.Background(), []string{"TCS.NS"}))
	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), s.AsOf())
}

// go test -v --run TestEmptyBatchKeepsPriorTable
func TestEmptyBatchKeepsPriorTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market_data.csv")
	f := &stubFetcher{}
	s, now := openTestStore(t, f, Options{Path: path})
	require.NoError(t, s.Refresh(context.Background(), universe))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	*now = now.Add(24 * time.Hour)
	f.fail = map[string]bool{}
	for _, sym := range universe {
		f.fail[sym] = true
	}

	err = s.Refresh(context.Background(), universe)
	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.Len(t, s.Read(), len(universe))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// go test -v --run TestWriteFailureKeepsPriorTable
func TestWriteFailureKeepsPriorTable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	s, _ := openTestStore(t, &stubFetcher{}, Options{Path: filepath.Join(blocker, "market_data.csv")})

	err := s.Refresh(context.Background(), universe)
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.Empty(t, s.Read())
}

// go test -v --run TestRefreshPersistsAndReloads
func TestRefreshPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "market_data.csv")
	s, _ := openTestStore(t, &stubFetcher{}, Options{Path: path})
	require.NoError(t, s.Refresh(context.Background(), universe))

	reopened := Open(&stubFetcher{}, Options{Path: path}, zap.NewNop())
	assert.Equal(t, s.Read(), reopened.Read())
	assert.Equal(t, s.AsOf(), reopened.AsOf())

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".snapshot-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temp files left behind")
}

// go test -v --run TestUnreadableFileStartsEmpty
func TestUnreadableFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market_data.csv")
	require.NoError(t, os.WriteFile(path, []byte("symbol,open\nTCS.NS\n"), 0644))

	s := Open(&stubFetcher{}, Options{Path: path}, zap.NewNop())
	assert.Empty(t, s.Read())
}

// go test -v --run TestRefreshMirrors
func TestRefreshMirrors(t *testing.T) {
	m := &recordingMirror{err: errors.New("db down")}
	s, _ := openTestStore(t, &stubFetcher{}, Options{Mirror: m})

	require.NoError(t, s.Refresh(context.Background(), universe))
	assert.Len(t, m.rows, len(universe))
	// a failed save is not followed by a prune
	assert.True(t, m.prunedTo.IsZero())
}

// go test -v --run TestRefreshPrunesMirror
func TestRefreshPrunesMirror(t *testing.T) {
	m := &recordingMirror{}
	s, _ := openTestStore(t, &stubFetcher{}, Options{Mirror: m, Retention: 30})

	require.NoError(t, s.Refresh(context.Background(), universe))
	assert.Equal(t, time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC), m.prunedTo)
}

// go test -v --run TestOpenRestoresFromMirror
func TestOpenRestoresFromMirror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market_data.csv")
	m := &recordingMirror{stored: []Row{
		{Symbol: "TCS.NS", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Symbol: "INFY.NS", Open: 3, High: 4, Low: 2.5, Close: 3.5, Volume: 20},
	}}

	s := Open(&stubFetcher{}, Options{Path: path, Mirror: m}, zap.NewNop())

	rows := s.Read()
	require.Len(t, rows, 2)
	assert.Equal(t, 1.5, rows["TCS.NS"].Close)
	assert.Equal(t, m.requested, s.AsOf())
	assert.Equal(t, DateOf(time.Now(), time.UTC), m.requested)

	// written back to disk
	reopened := Open(&stubFetcher{}, Options{Path: path}, zap.NewNop())
	assert.Equal(t, rows, reopened.Read())
}

// go test -v --run TestOpenPrefersFileOverMirror
func TestOpenPrefersFileOverMirror(t *testing.T) {
	s, _ := openTestStore(t, &stubFetcher{}, Options{})
	require.NoError(t, s.Refresh(context.Background(), universe))

	m := &recordingMirror{stored: []Row{{Symbol: "OTHER.NS", Close: 1}}}
	reopened := Open(&stubFetcher{}, Options{Path: s.path, Mirror: m}, zap.NewNop())

	assert.Len(t, reopened.Read(), len(universe))
	assert.True(t, m.requested.IsZero())
}

// go test -v --run TestRefreshHonoursCancel
func TestRefreshHonoursCancel(t *testing.T) {
	f := &stubFetcher{}
	s, _ := openTestStore(t, f, Options{RequestDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Refresh(ctx, universe)
	assert.Error(t, err)
	assert.Equal(t, 1, f.Calls())
	assert.Empty(t, s.Read())
}

// go test -v --run TestLoadSymbols
func TestLoadSymbols(t *testing.T) {
	l := &SymbolLoader{
		Cfg: config.SnapshotConfig{
			Equities:   []string{"TCS.NS"},
			Currencies: []string{"USDINR=X"},
		},
		Logger: zap.NewNop(),
	}

	ch := make(chan string, 4)
	require.NoError(t, l.LoadSymbols(context.Background(), ch))

	var got []string
	for s := range ch {
		got = append(got, s)
	}
	assert.Equal(t, []string{"TCS.NS", "USDINR=X"}, got)
}
