package simulate

import "github.com/swdtrace/swdcore/core"

// ClockPeriod is the number of samples simulated streams advance per
// bit: half low, half high, matching the rising/falling edge protocol
// core.Sampler expects (§4.1).
const ClockPeriod = int64(10)

// BitStream accumulates a sequence of logical bit values and lowers them
// to a pair of Channel edge lists on Build, the simulation
// counterpart of a captured two-channel logic-analyzer trace.
type BitStream struct {
	bits []core.BitState
}

func NewBitStream() *BitStream { return &BitStream{} }

func (s *BitStream) AppendBit(v core.BitState) *BitStream {
	s.bits = append(s.bits, v)
	return s
}

// AppendWord appends length bits of word, LSB first, matching the
// ordering core.UintSequence.Check reads buffer prefixes in.
func (s *BitStream) AppendWord(word uint64, length int) *BitStream {
	for i := 0; i < length; i++ {
		if (word>>uint(i))&1 == 1 {
			s.AppendBit(core.High)
		} else {
			s.AppendBit(core.Low)
		}
	}
	return s
}

func (s *BitStream) AppendRun(level core.BitState, n int) *BitStream {
	for i := 0; i < n; i++ {
		s.AppendBit(level)
	}
	return s
}

// Append concatenates another stream's bits onto this one, for composing
// scenarios out of the named builders below (LineReset, Transaction, ...).
func (s *BitStream) Append(other *BitStream) *BitStream {
	s.bits = append(s.bits, other.bits...)
	return s
}

// AppendRequest appends one SWD request byte (Start, APnDP, RnW, A2, A3,
// Parity, Stop=0, Park=1), computing the parity bit itself rather than
// reusing core's unexported requestParity so the generator stays an
// independent producer of test fixtures.
func (s *BitStream) AppendRequest(apndp, rnw, a2, a3 bool) *BitStream {
	parity := xorParity(apndp, rnw, a2, a3)
	s.AppendBit(core.High) // start
	s.appendBool(apndp)
	s.appendBool(rnw)
	s.appendBool(a2)
	s.appendBool(a3)
	s.appendBool(parity)
	s.AppendBit(core.Low)  // stop
	s.AppendBit(core.High) // park
	return s
}

// AppendData appends a 32-bit data word LSB first plus its even
// (popcount) parity bit, the shape both RDATA and WDATA phases share.
func (s *BitStream) AppendData(word uint32) *BitStream {
	s.AppendWord(uint64(word), 32)
	s.appendBool(popcountParity(word))
	return s
}

func (s *BitStream) appendBool(v bool) {
	if v {
		s.AppendBit(core.High)
	} else {
		s.AppendBit(core.Low)
	}
}

func xorParity(bits ...bool) bool {
	p := false
	for _, b := range bits {
		if b {
			p = !p
		}
	}
	return p
}

func popcountParity(v uint32) bool {
	p := false
	for i := 0; i < 32; i++ {
		if (v>>uint(i))&1 == 1 {
			p = !p
		}
	}
	return p
}

// Build lowers the accumulated bit sequence into a clk/data channel pair
// ready to be handed to core.NewSampler: clk toggles every half period,
// data changes at the start of each period so it is settled well before
// the following rising edge.
func (s *BitStream) Build() (clk, data *Channel) {
	n := int64(len(s.bits))
	var clkEdges []Edge
	var dataEdges []Edge

	for i := int64(0); i < n; i++ {
		periodStart := i * ClockPeriod
		risingEdge := periodStart + ClockPeriod/2
		fallingEdge := (i + 1) * ClockPeriod

		if i > 0 {
			dataEdges = append(dataEdges, Edge{Sample: periodStart, Level: s.bits[i]})
		}
		clkEdges = append(clkEdges, Edge{Sample: risingEdge, Level: core.High})
		clkEdges = append(clkEdges, Edge{Sample: fallingEdge, Level: core.Low})
	}

	initial := core.Low
	if n > 0 {
		initial = s.bits[0]
	}
	clk = NewChannel(core.Low, clkEdges, ClockPeriod)
	// data's last edge sits one period earlier than clk's (it settles at
	// the start of the final bit's period, not its end), so it needs an
	// extra period of tail to stay valid through that bit's falling edge.
	data = NewChannel(initial, dataEdges, 2*ClockPeriod)
	return clk, data
}

// LineReset returns a BitStream holding n consecutive high bits, the
// shape of §4.4's reset run (n should be >= 50 for a real reset).
func LineReset(n int) *BitStream {
	return NewBitStream().AppendRun(core.High, n)
}

// JTAGToSWD returns the 16-bit 0xE79E switch sequence of §4.3.
func JTAGToSWD() *BitStream {
	return NewBitStream().AppendWord(0xE79E, 16)
}

// SWDToJTAG returns the 16-bit 0xE73C switch sequence of §4.3.
func SWDToJTAG() *BitStream {
	return NewBitStream().AppendWord(0xE73C, 16)
}

// IdleCycles returns n low bits, the idle-cycle shape of §4.3.
func IdleCycles(n int) *BitStream {
	return NewBitStream().AppendRun(core.Low, n)
}

// dsAlertLow/dsAlertHigh mirror core's unexported alert-word constants
// (kept independent for the same reason xorParity/popcountParity are):
// the pair transmitted by DS_SEL_ALERT, low word first.
const (
	dsAlertLow  = 0x86852D956209F392
	dsAlertHigh = 0x19BC0EA2E3DDAFE9
)

// DSSelAlertPreamble returns n consecutive high bits (n should be >= 8),
// the dormant-state wakeup preamble of §4.3.
func DSSelAlertPreamble(n int) *BitStream {
	return NewBitStream().AppendRun(core.High, n)
}

// DSSelAlert returns the 128-bit select-alert sequence: the low 64-bit
// word followed by the high 64-bit word, LSB first within each.
func DSSelAlert() *BitStream {
	return NewBitStream().AppendWord(dsAlertLow, 64).AppendWord(dsAlertHigh, 64)
}

// DSActCodePreamble returns the 4-bit all-zero preamble that precedes an
// activation code.
func DSActCodePreamble() *BitStream {
	return NewBitStream().AppendWord(0b0000, 4)
}

// DSActCodeSWD and DSActCodeJTAG return the 8-bit activation codes that
// select SWD-DP and JTAG-DP respectively (§4.3).
func DSActCodeSWD() *BitStream  { return NewBitStream().AppendWord(0x1A, 8) }
func DSActCodeJTAG() *BitStream { return NewBitStream().AppendWord(0x0A, 8) }

// Transaction returns a full SWD transaction: request, turnaround,
// 3-bit ACK, and (for OK) a data phase in the correct read/write order,
// with turnaround cycle counts supplied by the caller to mirror whatever
// ctx.TurnaroundCycles is in effect.
func Transaction(apndp, rnw bool, a32 int, turn1, turn2 int, ack uint64, data uint32) *BitStream {
	s := NewBitStream().AppendRequest(apndp, rnw, a32&1 != 0, a32&2 != 0)
	s.AppendRun(core.High, turn1) // turnaround: driver releases the line, sampled high while floating-pulled-up in this simulation
	s.AppendWord(ack, 3)
	if ack != 1 {
		s.AppendRun(core.High, turn2)
		return s
	}
	if rnw {
		s.AppendData(data)
		s.AppendRun(core.High, turn2)
	} else {
		s.AppendRun(core.High, turn2)
		s.AppendData(data)
	}
	return s
}
