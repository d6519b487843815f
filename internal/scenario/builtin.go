package scenario

const (
	traceMedium = "medium.txt"
	traceGzip   = "gzip.txt"
)

// Default returns the built-in battery.
//
// It covers direct-mapped and set-associative single-level caches, one to
// three data-cache levels, every write and allocate policy combination, and
// one large hierarchy against the longer gzip trace.
func Default() Table {
	return numbered([]Scenario{
		{Name: "icache-direct-mapped", ICache: "8:1:1:x", Trace: traceMedium},
		{Name: "icache-4-word-blocks", ICache: "8:4:1:x", Trace: traceMedium},
		{Name: "icache-random", ICache: "8:4:8:R", Trace: traceMedium,
			Skip: "random replacement output is non-deterministic"},
		{Name: "icache-lru", ICache: "8:4:8:L", Trace: traceMedium},
		{Name: "dcache-direct-wt-nwa", ICache: "8:1:1:x",
			DCache: []string{"1:8:1:1:x:T:N"}, Trace: traceMedium},
		{Name: "dcache-4-word-wt-nwa", ICache: "8:1:1:x",
			DCache: []string{"1:8:4:1:x:T:N"}, Trace: traceMedium},
		{Name: "dcache-4-word-wt-wa", ICache: "8:1:1:x",
			DCache: []string{"1:8:4:1:x:T:A"}, Trace: traceMedium},
		{Name: "dcache-lru-wt-nwa", ICache: "8:1:1:x",
			DCache: []string{"1:8:4:8:L:T:N"}, Trace: traceMedium},
		{Name: "dcache-lru-wt-wa", ICache: "8:1:1:x",
			DCache: []string{"1:8:4:8:L:T:A"}, Trace: traceMedium},
		{Name: "dcache-lru-wb-wa", ICache: "8:1:1:x",
			DCache: []string{"1:8:4:8:L:B:A"}, Trace: traceMedium},
		{Name: "dcache-wide-wb-wa", ICache: "8:1:1:x",
			DCache: []string{"1:32:1:32:L:B:A"}, Trace: traceMedium},
		{Name: "three-level-gzip", ICache: "2048:4:4:L",
			DCache: []string{
				"1:2048:4:4:L:B:A",
				"2:32768:4:2:L:B:A",
				"3:524288:4:2:L:B:A",
			}, Trace: traceGzip},
	})
}

// Skips returns the non-deterministic scenarios keyed by index.
func (t Table) Skips() map[int]string {
	skips := make(map[int]string)
	for _, s := range t {
		if s.Skip != "" {
			skips[s.Index] = s.Skip
		}
	}
	return skips
}
