package memorystore

import "sync"

// MemorySymbolStore is the set of tracked symbols, kept in insertion order.
// Symbols are stored verbatim; "tcs.ns" and "TCS.NS" are different entries.
type MemorySymbolStore struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	symbols []string
}

func NewSymbolStore() *MemorySymbolStore {
	return &MemorySymbolStore{
		seen:    make(map[string]struct{}),
		symbols: make([]string, 0),
	}
}

// Add inserts symbol and reports whether it was new.
func (s *MemorySymbolStore) Add(symbol string) bool {
	if symbol == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[symbol]; ok {
		return false
	}
	s.seen[symbol] = struct{}{}
	s.symbols = append(s.symbols, symbol)
	return true
}

// StartWorker drains ch into the store until it is closed. The returned
// channel is closed once every symbol has been added.
func (s *MemorySymbolStore) StartWorker(ch <-chan string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for symbol := range ch {
			s.Add(symbol)
		}
	}()
	return done
}

func (s *MemorySymbolStore) Contains(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[symbol]
	return ok
}

func (s *MemorySymbolStore) GetAll() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}
