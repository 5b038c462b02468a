package descriptor

import "sync"

// TargetList holds the target symbols a descriptor applies to.
type TargetList interface {
	// Add records a target symbol and reports whether the list accepted it
	// as new.
	Add(symbol string) bool
	// Symbols returns a snapshot of the retained symbols.
	Symbols() []string
	// Len returns the number of retained symbols.
	Len() int
}

// SymbolList is the default retaining TargetList. It de-duplicates symbols
// and is safe for interleaved reads during boot-time population.
type SymbolList struct {
	mu      sync.Mutex
	symbols []string
	seen    map[string]struct{}
}

// NewSymbolList creates a SymbolList pre-populated with the given symbols.
func NewSymbolList(symbols ...string) *SymbolList {
	l := &SymbolList{seen: make(map[string]struct{})}
	for _, s := range symbols {
		l.Add(s)
	}
	return l
}

// Add implements TargetList.
func (l *SymbolList) Add(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.seen[symbol]; dup {
		return false
	}
	l.seen[symbol] = struct{}{}
	l.symbols = append(l.symbols, symbol)
	return true
}

// Symbols implements TargetList.
func (l *SymbolList) Symbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.symbols))
	copy(out, l.symbols)
	return out
}

// Len implements TargetList.
func (l *SymbolList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.symbols)
}

// AbsorbingList is a sink TargetList: Add always reports success but nothing
// is retained. Swapping it in satisfies a broken legacy descriptor without
// letting it contribute real targets.
type AbsorbingList struct{}

// NewAbsorbingList creates the sink list.
func NewAbsorbingList() *AbsorbingList { return &AbsorbingList{} }

// Add implements TargetList. It reports success without retaining anything.
func (*AbsorbingList) Add(string) bool { return true }

// Symbols implements TargetList.
func (*AbsorbingList) Symbols() []string { return nil }

// Len implements TargetList.
func (*AbsorbingList) Len() int { return 0 }
