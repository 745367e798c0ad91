// Package snapshot keeps the daily point-in-time OHLCV table used by list
// views, so listing does not cost one provider call per row.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"marketwatch/pkg/yahoo"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrWriteFailed means the table could not be persisted; the previous file is untouched.
	ErrWriteFailed = errors.New("snapshot write failed")
	// ErrEmptyBatch means no symbol could be fetched; the previous table is kept.
	ErrEmptyBatch = errors.New("snapshot batch fetched no rows")
)

// Row is one symbol's daily candle. AsOf is the calendar date of the refresh
// that produced it, at UTC midnight.
type Row struct {
	Symbol string    `json:"symbol"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
	AsOf   time.Time `json:"as_of"`
}

// Fetcher returns recent daily bars, oldest first.
type Fetcher interface {
	DailyBars(ctx context.Context, symbol string, days int) ([]yahoo.Bar, error)
}

// Mirror receives a copy of every persisted table and can hand back a day's
// table when the local file is gone.
type Mirror interface {
	SaveSnapshot(ctx context.Context, rows []Row) error
	GetSnapshot(ctx context.Context, asOf time.Time) ([]Row, error)
	DeleteSnapshotsBefore(ctx context.Context, before time.Time) error
}

type Options struct {
	Path         string
	RequestDelay time.Duration  // minimum spacing between provider calls
	Timeout      time.Duration  // per-symbol provider timeout
	Location     *time.Location // calendar that decides "today"
	Mirror       Mirror         // optional
	Retention    int            // mirrored days kept, 0 keeps all
}

const restoreTimeout = 10 * time.Second

type Store struct {
	path    string
	fetcher Fetcher
	delay   time.Duration
	timeout time.Duration
	loc     *time.Location
	mirror  Mirror
	keep    int
	logger  *zap.Logger
	now     func() time.Time

	refreshMu sync.Mutex // one batch at a time

	mu   sync.RWMutex
	rows map[string]Row
	asOf time.Time
}

// Open loads the last persisted table from opts.Path. An unreadable file is
// logged and treated as empty; it is replaced on the next refresh. With no
// usable file, today's table is restored from the mirror if it has one.
func Open(fetcher Fetcher, opts Options, logger *zap.Logger) *Store {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Store{
		path:    opts.Path,
		fetcher: fetcher,
		delay:   opts.RequestDelay,
		timeout: opts.Timeout,
		loc:     loc,
		mirror:  opts.Mirror,
		keep:    opts.Retention,
		logger:  logger.Named("snapshot"),
		now:     time.Now,
		rows:    map[string]Row{},
	}

	rows, err := readFile(s.path)
	if err != nil {
		s.logger.Warn("ignoring unreadable snapshot file", zap.String("path", s.path), zap.Error(err))
		rows = nil
	}
	if len(rows) == 0 {
		s.restore()
		return s
	}
	s.rows = rows
	s.asOf = latestAsOf(rows)
	s.logger.Info("snapshot loaded",
		zap.String("path", s.path),
		zap.Int("rows", len(rows)),
		zap.Time("as_of", s.asOf))
	return s
}

// Read returns a copy of the last persisted table. It is empty until a
// refresh has succeeded.
func (s *Store) Read() map[string]Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Row, len(s.rows))
	for k, v := range s.rows {
		out[k] = v
	}
	return out
}

// AsOf is the calendar date of the current table, zero if there is none.
func (s *Store) AsOf() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.asOf
}

// Fresh reports whether the table holds data dated today.
func (s *Store) Fresh() bool {
	today := s.today()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows) > 0 && s.asOf.Equal(today)
}

// Refresh fetches one daily bar per symbol and replaces the table. It is a
// no-op when the table is already dated today. Symbols that fail are logged
// and left out; if none succeed the previous table stays and ErrEmptyBatch
// is returned.
func (s *Store) Refresh(ctx context.Context, symbols []string) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.Fresh() {
		s.logger.Debug("snapshot already up to date", zap.Time("as_of", s.AsOf()))
		return nil
	}

	today := s.today()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.delay), 1)
	}

	s.logger.Info("refreshing snapshot", zap.Int("symbols", len(symbols)))
	rows := make(map[string]Row, len(symbols))
	for _, symbol := range symbols {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("snapshot refresh interrupted: %w", err)
		}

		row, err := s.fetchRow(ctx, symbol, today)
		if err != nil {
			s.logger.Warn("skipping symbol", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		rows[symbol] = row
	}

	if len(rows) == 0 {
		return ErrEmptyBatch
	}

	if err := writeFile(s.path, rows); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	s.mu.Lock()
	s.rows = rows
	s.asOf = today
	s.mu.Unlock()

	s.logger.Info("snapshot saved",
		zap.String("path", s.path),
		zap.Int("rows", len(rows)),
		zap.Int("skipped", len(symbols)-len(rows)))

	s.mirrorRows(ctx, rows, today)
	return nil
}

func (s *Store) fetchRow(ctx context.Context, symbol string, today time.Time) (Row, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	bars, err := s.fetcher.DailyBars(ctx, symbol, 1)
	if err != nil {
		return Row{}, err
	}
	if len(bars) == 0 {
		return Row{}, fmt.Errorf("no bars for %s", symbol)
	}

	b := bars[len(bars)-1]
	return Row{
		Symbol: symbol,
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
		AsOf:   today,
	}, nil
}

func (s *Store) mirrorRows(ctx context.Context, rows map[string]Row, today time.Time) {
	if s.mirror == nil {
		return
	}
	list := make([]Row, 0, len(rows))
	for _, r := range rows {
		list = append(list, r)
	}
	if err := s.mirror.SaveSnapshot(ctx, list); err != nil {
		s.logger.Warn("snapshot mirror failed", zap.Error(err))
		return
	}
	if s.keep > 0 {
		cutoff := today.AddDate(0, 0, -s.keep)
		if err := s.mirror.DeleteSnapshotsBefore(ctx, cutoff); err != nil {
			s.logger.Warn("snapshot mirror prune failed", zap.Time("before", cutoff), zap.Error(err))
		}
	}
}

// restore loads today's table from the mirror and writes it back to the file.
func (s *Store) restore() {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()

	today := s.today()
	list, err := s.mirror.GetSnapshot(ctx, today)
	if err != nil {
		s.logger.Warn("snapshot restore failed", zap.Error(err))
		return
	}
	if len(list) == 0 {
		return
	}

	rows := make(map[string]Row, len(list))
	for _, r := range list {
		rows[r.Symbol] = r
	}
	if err := writeFile(s.path, rows); err != nil {
		s.logger.Warn("restored snapshot not persisted", zap.String("path", s.path), zap.Error(err))
	}
	s.rows = rows
	s.asOf = today
	s.logger.Info("snapshot restored from mirror", zap.Int("rows", len(rows)), zap.Time("as_of", today))
}

func (s *Store) today() time.Time {
	return DateOf(s.now(), s.loc)
}

// DateOf returns t's calendar date in loc, as UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func latestAsOf(rows map[string]Row) time.Time {
	var latest time.Time
	for _, r := range rows {
		if r.AsOf.After(latest) {
			latest = r.AsOf
		}
	}
	return latest
}
