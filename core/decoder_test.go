package swd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamEdge and streamChannel mirror package simulate's Channel, kept as
// a private duplicate here so the decoder's own tests stay inside
// package swd (importing simulate back in would be an import cycle,
// since simulate imports swd).
type streamEdge struct {
	sample int64
	level  BitState
}

type streamChannel struct {
	edges []streamEdge
	now   int64
	limit int64
}

func newStreamChannel(initial BitState, edges []streamEdge, tail int64) *streamChannel {
	all := append([]streamEdge{{0, initial}}, edges...)
	last := all[len(all)-1].sample
	return &streamChannel{edges: all, limit: last + tail}
}

func (c *streamChannel) indexAt(sample int64) int {
	idx := 0
	for i, e := range c.edges {
		if e.sample > sample {
			break
		}
		idx = i
	}
	return idx
}
func (c *streamChannel) CurrentBitState() BitState { return c.edges[c.indexAt(c.now)].level }
func (c *streamChannel) SampleNumber() int64        { return c.now }
func (c *streamChannel) SampleOfNextEdge() (int64, bool) {
	idx := c.indexAt(c.now)
	if idx+1 < len(c.edges) {
		return c.edges[idx+1].sample, true
	}
	return 0, false
}
func (c *streamChannel) AdvanceToNextEdge() bool {
	next, ok := c.SampleOfNextEdge()
	if !ok {
		return false
	}
	c.now = next
	return true
}
func (c *streamChannel) AdvanceToAbsPosition(sample int64) bool {
	if sample < c.now || sample >= c.limit {
		return false
	}
	c.now = sample
	return true
}

const period = int64(10)

// buildStream lowers a logical bit sequence into a clk/data channel pair
// using the same half-period edge placement as package simulate.
func buildStream(bits []BitState) (clk, data *streamChannel) {
	n := int64(len(bits))
	var clkEdges, dataEdges []streamEdge
	for i := int64(0); i < n; i++ {
		periodStart := i * period
		rising := periodStart + period/2
		falling := (i + 1) * period
		if i > 0 {
			dataEdges = append(dataEdges, streamEdge{periodStart, bits[i]})
		}
		clkEdges = append(clkEdges, streamEdge{rising, High})
		clkEdges = append(clkEdges, streamEdge{falling, Low})
	}
	initial := Low
	if n > 0 {
		initial = bits[0]
	}
	return newStreamChannel(Low, clkEdges, period), newStreamChannel(initial, dataEdges, 2*period)
}

func wordBits(word uint64, length int) []BitState {
	out := make([]BitState, length)
	for i := 0; i < length; i++ {
		if (word>>uint(i))&1 == 1 {
			out[i] = High
		} else {
			out[i] = Low
		}
	}
	return out
}

func runBits(level BitState, n int) []BitState {
	out := make([]BitState, n)
	for i := range out {
		out[i] = level
	}
	return out
}

func requestBits(apndp, rnw, a2, a3 bool) []BitState {
	parity := apndp != rnw != a2 != a3
	bools := []bool{true, apndp, rnw, a2, a3, parity, false, true}
	out := make([]BitState, 8)
	for i, v := range bools {
		if v {
			out[i] = High
		} else {
			out[i] = Low
		}
	}
	return out
}

func dataBits(word uint32) []BitState {
	out := wordBits(uint64(word), 32)
	return append(out, boolState(popcountParity(uint64(word), 32)))
}

func boolState(v bool) BitState {
	if v {
		return High
	}
	return Low
}

func TestDecoder_FullScenarioS1(t *testing.T) {
	var bits []BitState
	bits = append(bits, runBits(High, 50)...)
	bits = append(bits, Low)
	bits = append(bits, requestBits(false, true, false, false)...)
	bits = append(bits, High) // turnaround
	bits = append(bits, wordBits(1, 3)...) // ACK=OK
	bits = append(bits, dataBits(0x2BA01477)...)
	bits = append(bits, High) // turnaround

	clk, data := buildStream(bits)
	ctx := NewAdiContext()
	sink := &recordingSink{}
	sampler := NewSampler(clk, data, nil)
	dec := NewDecoder(sampler, ctx, sink, nil)

	err := dec.Run(context.Background())
	require.NoError(t, err)

	var types []FrameType
	for _, f := range sink.frames {
		types = append(types, f.Type)
	}
	assert.Equal(t, []FrameType{
		FrameLineReset, FrameRequest, FrameTurnaround, FrameAck, FrameRData, FrameDataParity, FrameTurnaround,
	}, types)
	assert.Equal(t, DPv1, ctx.DPVersion)
	assert.Equal(t, ProtocolSWD, ctx.CurrentProtocol)
}

func TestDecoder_FramesNeverOverlap(t *testing.T) {
	var bits []BitState
	bits = append(bits, runBits(High, 50)...)
	bits = append(bits, Low)
	bits = append(bits, requestBits(false, true, false, false)...)
	bits = append(bits, High)
	bits = append(bits, wordBits(1, 3)...)
	bits = append(bits, dataBits(0x00112233)...)
	bits = append(bits, High)

	clk, data := buildStream(bits)
	ctx := NewAdiContext()
	sink := &recordingSink{}
	sampler := NewSampler(clk, data, nil)
	dec := NewDecoder(sampler, ctx, sink, nil)
	require.NoError(t, dec.Run(context.Background()))

	for i := 1; i < len(sink.frames); i++ {
		prev, cur := sink.frames[i-1], sink.frames[i]
		assert.LessOrEqual(t, prev.StartSample, prev.EndSample)
		assert.Greater(t, cur.StartSample, prev.EndSample)
	}
}

// dsAlertLow/dsAlertHigh mirror the corrected word order in sequence.go:
// the low word is transmitted first and its LSB is low, cleanly
// terminating the preceding high-run preamble.
const (
	dsAlertLow  = 0x86852D956209F392
	dsAlertHigh = 0x19BC0EA2E3DDAFE9
)

func TestDecoder_S5DormantActivationToSWD(t *testing.T) {
	var bits []BitState
	bits = append(bits, runBits(High, 10)...) // DS_SEL_ALERT_PREAMBLE
	bits = append(bits, wordBits(dsAlertLow, 64)...)
	bits = append(bits, wordBits(dsAlertHigh, 64)...)
	bits = append(bits, runBits(Low, 4)...) // DS_ACT_CODE_PREAMBLE
	bits = append(bits, wordBits(0x1A, 8)...) // DS_ACT_CODE, selects SWD-DP

	clk, data := buildStream(bits)
	ctx := NewAdiContext()
	ctx.CurrentProtocol = ProtocolDormant
	sink := &recordingSink{}
	sampler := NewSampler(clk, data, nil)
	dec := NewDecoder(sampler, ctx, sink, nil)

	err := dec.Run(context.Background())
	require.NoError(t, err)

	var types []FrameType
	for _, f := range sink.frames {
		types = append(types, f.Type)
	}
	assert.Equal(t, []FrameType{
		FrameDSSelAlertPreamble, FrameDSSelAlert, FrameDSActCodePreamble, FrameDSActCode,
	}, types)
	assert.Equal(t, ProtocolSWD, ctx.CurrentProtocol)
}

func TestDecoder_JTAGToSWDThenReset(t *testing.T) {
	var bits []BitState
	bits = append(bits, runBits(High, 50)...)
	bits = append(bits, Low)
	bits = append(bits, wordBits(0xE79E, 16)...)
	bits = append(bits, runBits(High, 50)...)
	bits = append(bits, Low)

	clk, data := buildStream(bits)
	ctx := NewAdiContext()
	sink := &recordingSink{}
	sampler := NewSampler(clk, data, nil)
	dec := NewDecoder(sampler, ctx, sink, nil)
	require.NoError(t, dec.Run(context.Background()))

	var types []FrameType
	for _, f := range sink.frames {
		types = append(types, f.Type)
	}
	assert.Equal(t, []FrameType{FrameLineReset, FrameJTAGToSWD, FrameLineReset}, types)
}

func TestDecoder_OverrunThenNextTransactionStillDecodes(t *testing.T) {
	// S6: an overrun commit with an invalid ACK drops CurrentProtocol to
	// UNKNOWN; the following transaction must still be decoded rather than
	// falling into the error accumulator.
	var bits []BitState
	bits = append(bits, requestBits(false, true, false, false)...)
	bits = append(bits, High)
	bits = append(bits, wordBits(0, 3)...) // ACK=000, invalid
	bits = append(bits, dataBits(0x11223344)...)
	bits = append(bits, High)

	bits = append(bits, requestBits(false, true, false, false)...)
	bits = append(bits, High)
	bits = append(bits, wordBits(1, 3)...) // ACK=OK
	bits = append(bits, dataBits(0x2BA01477)...)
	bits = append(bits, High)

	clk, data := buildStream(bits)
	ctx := NewAdiContext()
	ctx.CurrentProtocol = ProtocolSWD
	ctx.OverrunDetect = true
	sink := &recordingSink{}
	sampler := NewSampler(clk, data, nil)
	dec := NewDecoder(sampler, ctx, sink, nil)

	err := dec.Run(context.Background())
	require.NoError(t, err)

	var types []FrameType
	for _, f := range sink.frames {
		types = append(types, f.Type)
	}
	assert.Equal(t, []FrameType{
		FrameRequest, FrameTurnaround, FrameAck, FrameRData, FrameDataParity, FrameTurnaround,
		FrameRequest, FrameTurnaround, FrameAck, FrameRData, FrameDataParity, FrameTurnaround,
	}, types)
	assert.Equal(t, ProtocolSWD, ctx.CurrentProtocol)
}
