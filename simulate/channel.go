// Package simulate builds deterministic SWD bit streams and the
// in-memory channel readers swd.Sampler reads them through, so property
// and scenario tests never depend on a captured logic-analyzer trace.
package simulate

import "github.com/swdtrace/swdcore/core"

// Edge is one level change on a channel, expressed as the absolute
// sample it takes effect at. The channel drives Level from Sample
// onward, until the next Edge's Sample.
type Edge struct {
	Sample int64
	Level  core.BitState
}

// Channel is an in-memory, forward-only implementation of
// core.ChannelReader over a fixed list of edges: the simulation
// counterpart of one logic-analyzer channel's recorded transitions. The
// channel's "current position" is an arbitrary absolute sample, not
// necessarily one that falls on an edge.
type Channel struct {
	edges []Edge // sorted by Sample, edges[0].Sample == 0
	now   int64
	limit int64 // one past the last sample this channel can be asked about
}

// NewChannel builds a Channel starting at the given level, with the
// supplied edges applied in order, extending to limit samples past the
// last edge.
func NewChannel(initial core.BitState, edges []Edge, tailSamples int64) *Channel {
	all := append([]Edge{{Sample: 0, Level: initial}}, edges...)
	last := all[len(all)-1].Sample
	return &Channel{edges: all, limit: last + tailSamples}
}

func (c *Channel) indexAt(sample int64) int {
	idx := 0
	for i, e := range c.edges {
		if e.Sample > sample {
			break
		}
		idx = i
	}
	return idx
}

func (c *Channel) CurrentBitState() core.BitState {
	return c.edges[c.indexAt(c.now)].Level
}

func (c *Channel) SampleNumber() int64 {
	return c.now
}

func (c *Channel) SampleOfNextEdge() (int64, bool) {
	idx := c.indexAt(c.now)
	if idx+1 < len(c.edges) {
		return c.edges[idx+1].Sample, true
	}
	return 0, false
}

func (c *Channel) AdvanceToNextEdge() bool {
	next, ok := c.SampleOfNextEdge()
	if !ok {
		return false
	}
	c.now = next
	return true
}

func (c *Channel) AdvanceToAbsPosition(sample int64) bool {
	if sample < c.now || sample >= c.limit {
		return false
	}
	c.now = sample
	return true
}
