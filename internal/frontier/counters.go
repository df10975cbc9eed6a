package frontier

// DepthCounters tracks, per depth, how many tasks were admitted and how many
// of those were processed. It feeds progress estimates only.
type DepthCounters struct {
	admitted  map[int]int
	processed map[int]int
}

func newDepthCounters() DepthCounters {
	return DepthCounters{
		admitted:  make(map[int]int),
		processed: make(map[int]int),
	}
}

func (c DepthCounters) admit(depth int) {
	c.admitted[depth]++
}

func (c DepthCounters) process(depth int) {
	c.processed[depth]++
}

// At returns the processed and admitted totals for depth.
func (c DepthCounters) At(depth int) (processed, total int) {
	return c.processed[depth], c.admitted[depth]
}
