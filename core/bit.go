package swd

import (
	"context"
	"fmt"
)

// ChannelReader is the external collaborator that exposes one logic-analyzer
// channel's edges to the core. It is intentionally narrow: the core never
// asks for raw sample data, only for edges and absolute sample positions.
type ChannelReader interface {
	// CurrentBitState reports the level the channel is driving right now.
	CurrentBitState() BitState
	// SampleNumber reports the absolute sample index of the channel's
	// current position.
	SampleNumber() int64
	// SampleOfNextEdge reports the absolute sample index of the next
	// transition without consuming it.
	SampleOfNextEdge() (int64, bool)
	// AdvanceToNextEdge moves the channel's position to its next
	// transition. Returns false at end of stream.
	AdvanceToNextEdge() bool
	// AdvanceToAbsPosition moves the channel's position to an absolute
	// sample index at or after the current position.
	AdvanceToAbsPosition(sample int64) bool
}

// BitState is a sampled line level.
type BitState int

const (
	Low BitState = iota
	High
)

func (s BitState) String() string {
	if s == High {
		return "high"
	}
	return "low"
}

// Bit is one decoded SWD bit: the data line sampled at the clock's rising
// and falling edges, plus the four sample indices that bound it (§3).
type Bit struct {
	LowStart     int64
	RisingEdge   int64
	FallingEdge  int64
	LowEnd       int64
	StateRising  BitState
	StateFalling BitState
}

// Value is the bit's logical value, using the rising-edge sample by
// convention (§4.1); callers that need the falling-edge sample read
// StateFalling directly.
func (b Bit) Value() BitState { return b.StateRising }

// StartSample and EndSample are the frame-boundary samples a bit
// contributes when it becomes part of an emitted frame: the half-way
// point into the clock-low interval on either side, StartSample rounding
// up and EndSample rounding down. Adjacent frames never overlap; when the
// low interval between two bits is an odd number of samples long they
// also share no sample, and when it is even both land on its midpoint.
func (b Bit) StartSample() int64 {
	return b.LowStart + (b.RisingEdge-b.LowStart+1)/2
}

func (b Bit) EndSample() int64 {
	return b.FallingEdge + (b.LowEnd-b.FallingEdge)/2
}

// ErrUpstreamExhausted is returned when the channel readers stop advancing
// mid-sample; per §7 this unwinds the caller without committing a partial
// frame.
var ErrUpstreamExhausted = fmt.Errorf("swd: upstream channel exhausted")

// Sampler pulls one SWD bit at a time from a clock and a data channel
// reader, implementing the rising/falling edge capture of §4.1.
type Sampler struct {
	clk  ChannelReader
	data ChannelReader

	log Logger
}

// NewSampler builds a Sampler over a clock and data channel pair. The
// precondition of §4.1 (clock currently low) is enforced by seeking past
// any leading high state.
func NewSampler(clk, data ChannelReader, log Logger) *Sampler {
	s := &Sampler{clk: clk, data: data, log: log}
	if clk.CurrentBitState() == High {
		clk.AdvanceToNextEdge()
	}
	return s
}

// Next reads one SWD bit, or returns ErrUpstreamExhausted at end of stream.
func (s *Sampler) Next(ctx context.Context) (Bit, error) {
	if err := ctx.Err(); err != nil {
		return Bit{}, err
	}

	var b Bit
	b.LowStart = s.clk.SampleNumber()

	// Clock is low; advance to one sample before the rising edge. The
	// data channel is carried along to the same absolute position so its
	// CurrentBitState reflects the level at that sample, not wherever it
	// was last left.
	edge, ok := s.clk.SampleOfNextEdge()
	if !ok {
		return Bit{}, ErrUpstreamExhausted
	}
	if !s.clk.AdvanceToAbsPosition(edge - 1) {
		return Bit{}, ErrUpstreamExhausted
	}
	if !s.data.AdvanceToAbsPosition(edge - 1) {
		return Bit{}, ErrUpstreamExhausted
	}
	b.RisingEdge = edge
	b.StateRising = s.data.CurrentBitState()

	// Advance past the rising edge, then to the falling edge.
	if !s.clk.AdvanceToAbsPosition(edge) {
		return Bit{}, ErrUpstreamExhausted
	}
	fall, ok := s.clk.SampleOfNextEdge()
	if !ok {
		return Bit{}, ErrUpstreamExhausted
	}
	if !s.clk.AdvanceToAbsPosition(fall) {
		return Bit{}, ErrUpstreamExhausted
	}
	if !s.data.AdvanceToAbsPosition(fall) {
		return Bit{}, ErrUpstreamExhausted
	}
	b.FallingEdge = fall
	b.StateFalling = s.data.CurrentBitState()

	// Peek the next rising edge (start of the following clock-low). The
	// last bit of a stream has no such edge; its following low interval
	// is taken to be as long as the one before its rising edge.
	nextLow, ok := s.clk.SampleOfNextEdge()
	if !ok {
		nextLow = fall + (edge - b.LowStart)
	}
	b.LowEnd = nextLow

	if s.log != nil {
		s.log.Debug("sampled bit", "rising", b.StateRising, "falling", b.StateFalling, "sample", b.RisingEdge)
	}
	return b, nil
}
