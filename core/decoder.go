package swd

import (
	"context"
	"errors"
)

// ErrCancelled is returned by Decoder.Run when the supplied context is
// cancelled mid-loop (§5): the loop unwinds without committing whatever
// speculative matches were in progress.
var ErrCancelled = errors.New("swd: decode cancelled")

// Decoder drives C1-C7 (C8, the decode loop): it appends bits to the
// bit buffer on demand, runs every eligible matcher, arbitrates the
// winning match by the best-match rule of §4.6, and commits frames to the
// result sink.
type Decoder struct {
	sampler  *Sampler
	buf      BitBuffer
	ctx      *AdiContext
	sink     ResultSink
	log      Logger
	matchers []Matcher

	errorBits     []Bit
	errorProtocol Protocol
	haveError     bool
}

// NewDecoder builds a decoder over the given sampler/context/sink with
// every one of the twelve framings registered (§2's C4 list plus the C5
// transaction matcher).
func NewDecoder(sampler *Sampler, ctx *AdiContext, sink ResultSink, log Logger) *Decoder {
	d := &Decoder{sampler: sampler, ctx: ctx, sink: sink, log: log}
	for _, tag := range []SequenceTag{
		SeqLineReset, SeqJTAGToSWD, SeqSWDToJTAG, SeqJTAGToDS, SeqSWDToDS,
		SeqJTAGTLR, SeqIdleCycle, SeqDSSelAlertPreamble, SeqDSSelAlert,
		SeqDSActCodePreamble, SeqDSActCode,
	} {
		d.matchers = append(d.matchers, NewSequence(tag))
	}
	d.matchers = append(d.matchers, NewTransactionMatcher())
	return d
}

// progressRank orders check states so "aggregate best" reduces to a max.
func progressRank(s MatchState) int {
	switch s {
	case Complete:
		return 3
	case Partial:
		return 2
	case Mismatch:
		return 1
	default:
		return 0
	}
}

func combine(a, b MatchState) MatchState {
	if progressRank(b) > progressRank(a) {
		return b
	}
	return a
}

// Run drives the loop of §4.6 until the sampler reports end of stream or
// ctx is cancelled.
func (d *Decoder) Run(ctx context.Context) error {
	bestCompleteBits := 0
	bestPartialBits := 0
	anyVariablePartial := true // force the first iteration to append a bit

	for {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}

		needAppend := d.buf.Len() == 0 || anyVariablePartial || bestCompleteBits <= bestPartialBits
		if needAppend {
			bit, err := d.sampler.Next(ctx)
			if err != nil {
				if errors.Is(err, ErrUpstreamExhausted) {
					return nil
				}
				return err
			}
			d.buf.Append(bit)
		}

		bits := d.snapshotBits()

		bestFixed := Unknown
		bestVariable := Unknown
		bestPartialBits = 0
		bestCompleteBits = 0
		anyVariablePartial = false

		var fixedWinner Matcher
		var fixedWinnerBits int
		var variableWinner Matcher
		var variableWinnerBits int

		for _, m := range d.matchers {
			m.Reset()
			if !m.Eligible(d.ctx) {
				continue
			}
			st, n := m.Match(bits, d.ctx)
			if m.Variable() {
				bestVariable = combine(bestVariable, st)
				switch st {
				case Partial:
					anyVariablePartial = true
					if n > bestPartialBits {
						bestPartialBits = n
					}
				case Complete:
					if n > bestCompleteBits {
						bestCompleteBits = n
						variableWinner = m
						variableWinnerBits = n
					}
				}
			} else {
				bestFixed = combine(bestFixed, st)
				if st == Complete && fixedWinner == nil {
					fixedWinner = m
					fixedWinnerBits = n
				}
			}
		}

		var winner Matcher
		var winnerBits int
		switch {
		case fixedWinner != nil:
			winner, winnerBits = fixedWinner, fixedWinnerBits
		case variableWinner != nil && !anyVariablePartial && bestCompleteBits > bestPartialBits:
			winner, winnerBits = variableWinner, variableWinnerBits
		}

		if winner != nil {
			d.flushErrorBits()
			consumed := d.buf.Consume(winnerBits)
			winner.Commit(consumed, d.ctx, d.sink)
			if d.log != nil {
				d.log.Debug("committed frame", "type", winner.FrameType().String(), "bits", winnerBits, "protocol", d.ctx.CurrentProtocol.String())
			}
			continue
		}

		if bestFixed == Mismatch && bestVariable == Mismatch {
			bit := d.buf.PopFront()
			d.accumulateError(bit)
		}
	}
}

func (d *Decoder) snapshotBits() []Bit {
	n := d.buf.Len()
	out := make([]Bit, n)
	for i := 0; i < n; i++ {
		out[i] = d.buf.At(i)
	}
	return out
}

func (d *Decoder) accumulateError(bit Bit) {
	if !d.haveError {
		d.errorProtocol = d.ctx.CurrentProtocol
		d.haveError = true
		if d.log != nil {
			d.log.Warn("resynchronizing: no matcher progressed", "protocol", d.errorProtocol.String())
		}
	}
	d.errorBits = append(d.errorBits, bit)
}

// flushErrorBits emits the pending error-bits accumulator as a single
// ERROR or IGNORED frame, tagged by the protocol in effect when the first
// stray bit was slipped (§4.6 step 6, §7).
func (d *Decoder) flushErrorBits() {
	if !d.haveError || len(d.errorBits) == 0 {
		d.haveError = false
		d.errorBits = nil
		return
	}
	ft := FrameError
	if d.errorProtocol == ProtocolJTAG || d.errorProtocol == ProtocolDormant {
		ft = FrameIgnored
	}
	start := d.errorBits[0].StartSample()
	end := d.errorBits[len(d.errorBits)-1].EndSample()
	d.sink.AddFrame(Frame{StartSample: start, EndSample: end, Type: ft, Data1: uint64(len(d.errorBits)), Data2: uint64(d.errorProtocol)})
	d.sink.AddFrameV2(FrameV2{StartSample: start, EndSample: end, Type: ft, Attrs: map[string]any{"type": ft.String(), "cycles": len(d.errorBits)}})
	d.errorBits = nil
	d.haveError = false
}
