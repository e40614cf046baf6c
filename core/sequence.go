package swd

// SequenceTag names one of the eleven simple framings of §4.3 (everything
// except the transaction matcher, which is heavy enough to be its own
// component, C5, in transaction.go).
type SequenceTag int

const (
	SeqLineReset SequenceTag = iota
	SeqJTAGToSWD
	SeqSWDToJTAG
	SeqJTAGToDS
	SeqSWDToDS
	SeqJTAGTLR
	SeqIdleCycle
	SeqDSSelAlertPreamble
	SeqDSSelAlert
	SeqDSActCodePreamble
	SeqDSActCode
)

// dormant alert/activation constants (§4.3).
const (
	wordJTAGToSWD           = 0xE79E
	wordJTAGToSWDDeprecated = 0xEDB6
	wordSWDToJTAG           = 0xE73C
	wordSWDToJTAGDeprecated = 0xAEAE
	wordJTAGToDS            = 0x33BBBBBA
	wordSWDToDS             = 0xE3BC
	// dsAlertLow is the first 64 bits transmitted (§4.3 lists it first);
	// its LSB is 0 (low), so it cleanly terminates the preceding ≥8-high
	// DS_SEL_ALERT_PREAMBLE run. dsAlertHigh's LSB is 1 (high): putting it
	// first would make the preamble (which only terminates on a low bit)
	// over-claim the alert's own leading bit and misalign the 128-bit match.
	dsAlertLow              = 0x86852D956209F392
	dsAlertHigh             = 0x19BC0EA2E3DDAFE9
	actCodeJTAGSerial       = 0x000 // 12 bits
	actCodeSWDDP            = 0x1A  // 8 bits
	actCodeJTAGDP           = 0x0A  // 8 bits
)

// Sequence is the tagged union of §4.3's simple framings. Exactly one
// match function (Match) switches on Tag; there is no virtual dispatch and
// no matcher holds a back-reference to anything (§9's redesign flags).
type Sequence struct {
	Tag SequenceTag

	// Eligibility, enforced by the decode loop per §4.3.
	protocols []Protocol
	afterAny  bool
	after     []FrameType

	// Per-attempt scratch state, cleared by Reset.
	bitsExamined int
	usedDeprecated bool
	matchedPrimary bool
	matchedBackup  bool
	highRun        int // for the variable-length run matchers
}

// NewSequence builds one of the eleven simple matchers with the
// eligibility table used throughout this decoder (an Open Question in
// spec.md §9 left the exact sets to the implementer).
func NewSequence(tag SequenceTag) *Sequence {
	s := &Sequence{Tag: tag}
	switch tag {
	case SeqLineReset:
		s.protocols = []Protocol{ProtocolUnknown, ProtocolJTAG, ProtocolSWD, ProtocolDormant}
		s.afterAny = true
	case SeqJTAGToSWD:
		s.protocols = []Protocol{ProtocolUnknown, ProtocolJTAG}
		s.afterAny = true
	case SeqSWDToJTAG:
		s.protocols = []Protocol{ProtocolUnknown, ProtocolSWD}
		s.afterAny = true
	case SeqJTAGToDS:
		s.protocols = []Protocol{ProtocolUnknown, ProtocolJTAG}
		s.afterAny = true
	case SeqSWDToDS:
		s.protocols = []Protocol{ProtocolUnknown, ProtocolSWD}
		s.afterAny = true
	case SeqJTAGTLR:
		s.protocols = []Protocol{ProtocolJTAG}
		s.afterAny = true
	case SeqIdleCycle:
		s.protocols = []Protocol{ProtocolSWD}
		s.afterAny = true
	case SeqDSSelAlertPreamble:
		s.protocols = []Protocol{ProtocolDormant}
		s.afterAny = true
	case SeqDSSelAlert:
		s.protocols = []Protocol{ProtocolDormant}
		s.after = []FrameType{FrameDSSelAlertPreamble}
	case SeqDSActCodePreamble:
		s.protocols = []Protocol{ProtocolDormant}
		s.after = []FrameType{FrameDSSelAlert}
	case SeqDSActCode:
		s.protocols = []Protocol{ProtocolDormant}
		s.after = []FrameType{FrameDSActCodePreamble}
	}
	return s
}

func (s *Sequence) FrameType() FrameType {
	switch s.Tag {
	case SeqLineReset:
		return FrameLineReset
	case SeqJTAGToSWD:
		return FrameJTAGToSWD
	case SeqSWDToJTAG:
		return FrameSWDToJTAG
	case SeqJTAGToDS:
		return FrameJTAGToDS
	case SeqSWDToDS:
		return FrameSWDToDS
	case SeqJTAGTLR:
		return FrameJTAGTLR
	case SeqIdleCycle:
		return FrameIdleCycle
	case SeqDSSelAlertPreamble:
		return FrameDSSelAlertPreamble
	case SeqDSSelAlert:
		return FrameDSSelAlert
	case SeqDSActCodePreamble:
		return FrameDSActCodePreamble
	case SeqDSActCode:
		return FrameDSActCode
	}
	return FrameError
}

func (s *Sequence) Variable() bool {
	switch s.Tag {
	case SeqLineReset, SeqJTAGTLR, SeqIdleCycle, SeqDSSelAlertPreamble:
		return true
	default:
		return false
	}
}

func (s *Sequence) Eligible(ctx *AdiContext) bool {
	protoOK := false
	for _, p := range s.protocols {
		if p == ctx.CurrentProtocol {
			protoOK = true
			break
		}
	}
	if !protoOK {
		return false
	}
	if s.afterAny || len(s.after) == 0 {
		return true
	}
	if !ctx.HasLastFrame {
		return false
	}
	for _, f := range s.after {
		if f == ctx.LastFrameType {
			return true
		}
	}
	return false
}

func (s *Sequence) Reset() {
	s.bitsExamined = 0
	s.usedDeprecated = false
	s.matchedPrimary = false
	s.matchedBackup = false
	s.highRun = 0
}

func (s *Sequence) Match(bits []Bit, ctx *AdiContext) (MatchState, int) {
	switch s.Tag {
	case SeqLineReset:
		return s.matchLineReset(bits, ctx)
	case SeqJTAGToSWD:
		return s.matchEitherWord(bits, UintSequence{Word: wordJTAGToSWD, Length: 16}, UintSequence{Word: wordJTAGToSWDDeprecated, Length: 16})
	case SeqSWDToJTAG:
		return s.matchEitherWord(bits, UintSequence{Word: wordSWDToJTAG, Length: 16}, UintSequence{Word: wordSWDToJTAGDeprecated, Length: 16})
	case SeqJTAGToDS:
		return UintSequence{Word: wordJTAGToDS, Length: 31}.Check(bits)
	case SeqSWDToDS:
		return UintSequence{Word: wordSWDToDS, Length: 16}.Check(bits)
	case SeqJTAGTLR:
		return PlainBitSequence{Level: High, Minimum: 5}.Check(bits)
	case SeqIdleCycle:
		return PlainBitSequence{Level: Low, Minimum: 1}.Check(bits)
	case SeqDSSelAlertPreamble:
		return PlainBitSequence{Level: High, Minimum: 8}.Check(bits)
	case SeqDSSelAlert:
		st, n := UintSequence{Word: dsAlertLow, Length: 64}.Check(bits)
		if st != Complete {
			return st, n
		}
		if len(bits) < 128 {
			return Partial, 64
		}
		st2, n2 := UintSequence{Word: dsAlertHigh, Length: 64}.Check(bits[64:])
		if st2 == Mismatch {
			return Mismatch, 64 + n2
		}
		if st2 == Complete {
			return Complete, 128
		}
		return Partial, 64 + n2
	case SeqDSActCodePreamble:
		return UintSequence{Word: 0b0000, Length: 4}.Check(bits)
	case SeqDSActCode:
		return s.matchActCode(bits)
	}
	return Mismatch, 0
}

func (s *Sequence) matchEitherWord(bits []Bit, primary, backup UintSequence) (MatchState, int) {
	stP, nP := primary.Check(bits)
	stB, nB := backup.Check(bits)
	if stP == Complete {
		s.matchedPrimary = true
		return Complete, nP
	}
	if stB == Complete {
		s.matchedBackup = true
		return Complete, nB
	}
	if stP == Partial || stB == Partial {
		if stP == Partial {
			return Partial, nP
		}
		return Partial, nB
	}
	return Mismatch, max(nP, nB)
}

// matchActCode matches one of the three activation codes (§4.3): a 12-bit
// all-zero code (JTAG-Serial, not a protocol switch we represent further),
// or one of the two 8-bit codes that select SWD-DP or JTAG-DP.
func (s *Sequence) matchActCode(bits []Bit) (MatchState, int) {
	swd := UintSequence{Word: actCodeSWDDP, Length: 8}
	jtag := UintSequence{Word: actCodeJTAGDP, Length: 8}
	serial := UintSequence{Word: actCodeJTAGSerial, Length: 12}

	stSWD, nSWD := swd.Check(bits)
	stJTAG, nJTAG := jtag.Check(bits)
	stSerial, nSerial := serial.Check(bits)

	if stSWD == Complete {
		return Complete, nSWD
	}
	if stJTAG == Complete {
		return Complete, nJTAG
	}
	if stSerial == Complete {
		return Complete, nSerial
	}
	if stSWD == Partial || stJTAG == Partial || stSerial == Partial {
		return Partial, max(nSWD, max(nJTAG, nSerial))
	}
	return Mismatch, max(nSWD, max(nJTAG, nSerial))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Commit emits the winning frame and applies its ADI side effects.
func (s *Sequence) Commit(consumed []Bit, ctx *AdiContext, sink ResultSink) {
	start := consumed[0].StartSample()
	end := consumed[len(consumed)-1].EndSample()
	emitBitMarkers(consumed, sink)

	switch s.Tag {
	case SeqLineReset:
		sink.AddFrame(Frame{StartSample: start, EndSample: end, Type: FrameLineReset, Data1: uint64(len(consumed))})
		sink.AddFrameV2(FrameV2{StartSample: start, EndSample: end, Type: FrameLineReset, Attrs: map[string]any{"type": "LINE_RESET", "cycles": len(consumed)}})
		ctx.ApplyLineReset()

	case SeqJTAGToSWD:
		word, flags := s.resolveSwitchWord(wordJTAGToSWD, wordJTAGToSWDDeprecated)
		sink.AddFrame(Frame{StartSample: start, EndSample: end, Type: FrameJTAGToSWD, Data1: word, Flags: flags})
		sink.AddFrameV2(FrameV2{StartSample: start, EndSample: end, Type: FrameJTAGToSWD, Attrs: map[string]any{"type": "JTAG_TO_SWD", "data": word}})
		ctx.CurrentProtocol = ProtocolSWD

	case SeqSWDToJTAG:
		word, flags := s.resolveSwitchWord(wordSWDToJTAG, wordSWDToJTAGDeprecated)
		sink.AddFrame(Frame{StartSample: start, EndSample: end, Type: FrameSWDToJTAG, Data1: word, Flags: flags})
		sink.AddFrameV2(FrameV2{StartSample: start, EndSample: end, Type: FrameSWDToJTAG, Attrs: map[string]any{"type": "SWD_TO_JTAG", "data": word}})
		ctx.CurrentProtocol = ProtocolJTAG

	case SeqJTAGToDS:
		sink.AddFrame(Frame{StartSample: start, EndSample: end, Type: FrameJTAGToDS, Data1: wordJTAGToDS})
		sink.AddFrameV2(FrameV2{StartSample: start, EndSample: end, Type: FrameJTAGToDS, Attrs: map[string]any{"type": "JTAG_TO_DS", "data": uint64(wordJTAGToDS)}})
		ctx.CurrentProtocol = ProtocolDormant

	case SeqSWDToDS:
		sink.AddFrame(Frame{StartSample: start, EndSample: end, Type: FrameSWDToDS, Data1: wordSWDToDS})
		sink.AddFrameV2(FrameV2{StartSample: start, EndSample: end, Type: FrameSWDToDS, Attrs: map[string]any{"type": "SWD_TO_DS", "data": uint64(wordSWDToDS)}})
		ctx.CurrentProtocol = ProtocolDormant

	case SeqJTAGTLR:
		sink.AddFrame(Frame{StartSample: start, EndSample: end, Type: FrameJTAGTLR, Data1: uint64(len(consumed))})
		sink.AddFrameV2(FrameV2{StartSample: start, EndSample: end, Type: FrameJTAGTLR, Attrs: map[string]any{"type": "JTAG_TLR", "cycles": len(consumed)}})

	case SeqIdleCycle:
		sink.AddFrame(Frame{StartSample: start, EndSample: end, Type: FrameIdleCycle, Data1: uint64(len(consumed))})
		sink.AddFrameV2(FrameV2{StartSample: start, EndSample: end, Type: FrameIdleCycle, Attrs: map[string]any{"type": "IDLE_CYCLE", "cycles": len(consumed)}})

	case SeqDSSelAlertPreamble:
		sink.AddFrame(Frame{StartSample: start, EndSample: end, Type: FrameDSSelAlertPreamble, Data1: uint64(len(consumed))})
		sink.AddFrameV2(FrameV2{StartSample: start, EndSample: end, Type: FrameDSSelAlertPreamble, Attrs: map[string]any{"type": "DS_SEL_ALERT_PREAMBLE", "cycles": len(consumed)}})

	case SeqDSSelAlert:
		sink.AddFrame(Frame{StartSample: start, EndSample: end, Type: FrameDSSelAlert, Data1: dsAlertLow, Data2: dsAlertHigh})
		sink.AddFrameV2(FrameV2{StartSample: start, EndSample: end, Type: FrameDSSelAlert, Attrs: map[string]any{"type": "DS_SEL_ALERT"}})

	case SeqDSActCodePreamble:
		sink.AddFrame(Frame{StartSample: start, EndSample: end, Type: FrameDSActCodePreamble, Data1: 4})
		sink.AddFrameV2(FrameV2{StartSample: start, EndSample: end, Type: FrameDSActCodePreamble, Attrs: map[string]any{"type": "DS_ACT_CODE_PREAMBLE", "cycles": 4}})

	case SeqDSActCode:
		code := bitsToUint(consumed)
		sink.AddFrame(Frame{StartSample: start, EndSample: end, Type: FrameDSActCode, Data1: code})
		sink.AddFrameV2(FrameV2{StartSample: start, EndSample: end, Type: FrameDSActCode, Attrs: map[string]any{"type": "DS_ACT_CODE", "data": code}})
		switch {
		case len(consumed) == 8 && code == actCodeSWDDP:
			ctx.CurrentProtocol = ProtocolSWD
		case len(consumed) == 8 && code == actCodeJTAGDP:
			ctx.CurrentProtocol = ProtocolJTAG
		}
	}

	ctx.LastFrameType = s.FrameType()
	ctx.HasLastFrame = true
}

func (s *Sequence) resolveSwitchWord(primary, deprecated uint64) (uint64, uint8) {
	if s.matchedBackup {
		return deprecated, FlagDeprecated
	}
	return primary, 0
}

func bitsToUint(bits []Bit) uint64 {
	var v uint64
	for i, b := range bits {
		if b.Value() == High {
			v |= 1 << uint(i)
		}
	}
	return v
}

func emitBitMarkers(bits []Bit, sink ResultSink) {
	for _, b := range bits {
		glyph := MarkerZero
		if b.Value() == High {
			glyph = MarkerOne
		}
		sink.AddMarker(Marker{Sample: b.RisingEdge, Glyph: glyph})
	}
}
