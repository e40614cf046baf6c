package swd

// TransactionMatcher is the C5 component: the single most complex
// matcher, parsing an SWD transaction's request byte, turnaround(s), ACK,
// and optional data+parity phase, with segment widths that depend on
// ctx.TurnaroundCycles and the parsed R/W direction (§4.5).
//
// Like the simple Sequence matchers it is re-evaluated from scratch
// against the full current buffer on every call (idempotent per §4.2);
// the txnResult it computes on Complete is cached for Commit to consume.
type TransactionMatcher struct {
	last txnResult
}

type txnResult struct {
	reqByte      byte
	apndp        bool
	rnw          bool
	a32          int
	ack          uint64
	ackValid     bool
	dataPhase    bool
	data         uint64
	dataParityOK bool
	totalBits    int
	turn1        int
	turn2        int
}

func NewTransactionMatcher() *TransactionMatcher { return &TransactionMatcher{} }

func (t *TransactionMatcher) FrameType() FrameType { return FrameRequest }

func (t *TransactionMatcher) Variable() bool { return false }

func (t *TransactionMatcher) Eligible(ctx *AdiContext) bool {
	// A LINE_RESET commit drops CurrentProtocol to UNKNOWN (§4.3), and
	// nothing else promotes it back to SWD before the next operation's own
	// ACK does. The original parser tries a transaction every iteration
	// with no protocol gate at all (SWDAnalyzer.cpp); staying eligible in
	// UNKNOWN (in addition to SWD) is this decoder's equivalent.
	return ctx.CurrentProtocol == ProtocolSWD || ctx.CurrentProtocol == ProtocolUnknown
}

func (t *TransactionMatcher) Reset() { t.last = txnResult{} }

// requestParity is the Open Question resolution recorded in DESIGN.md:
// odd parity over the four addressed bits, i.e. the parity bit equals
// their XOR.
func requestParity(apndp, rnw, a2, a3 bool) bool {
	return apndp != rnw != a2 != a3
}

func popcountParity(v uint64, width int) bool {
	p := false
	for i := 0; i < width; i++ {
		if (v>>uint(i))&1 == 1 {
			p = !p
		}
	}
	return p
}

func bitHigh(b Bit) bool { return b.Value() == High }

func (t *TransactionMatcher) Match(bits []Bit, ctx *AdiContext) (MatchState, int) {
	n := len(bits)
	turn := ctx.TurnaroundCycles
	if turn < 1 {
		turn = 1
	}
	if turn > 4 {
		turn = 4
	}

	if n < 8 {
		return t.validatePartialRequest(bits)
	}

	req := bits[:8]
	apndp := bitHigh(req[1])
	rnw := bitHigh(req[2])
	a2 := bitHigh(req[3])
	a3 := bitHigh(req[4])

	if !bitHigh(req[0]) {
		return Mismatch, 1
	}
	if bitHigh(req[5]) != requestParity(apndp, rnw, a2, a3) {
		return Mismatch, 6
	}
	if bitHigh(req[6]) {
		return Mismatch, 7
	}
	if !bitHigh(req[7]) {
		return Mismatch, 8
	}

	a32 := 0
	if a2 {
		a32 |= 1
	}
	if a3 {
		a32 |= 2
	}

	// ignoreAck (§4.5) is transient, not stored ADI state: raised for
	// TARGETSEL writes (the target doesn't drive ACK) and whenever
	// overrun detection is in effect.
	ignoreAck := ctx.OverrunDetect || (!apndp && !rnw && a32 == 3)

	turn1End := 8 + turn
	if n < turn1End {
		return Partial, n
	}

	ackEnd := turn1End + 3
	if n < ackEnd {
		return Partial, n
	}
	ackVal := bitsToUint(bits[turn1End:ackEnd])
	ackValid := ackVal == 1 || ackVal == 2 || ackVal == 4

	if !ackValid && !ignoreAck {
		t.last = txnResult{
			reqByte: byte(bitsToUint(req)), apndp: apndp, rnw: rnw, a32: a32,
			ack: ackVal, ackValid: false, totalBits: ackEnd, turn1: turn,
		}
		return Complete, ackEnd
	}

	dataPhase := ignoreAck || ackVal == 1

	if !dataPhase {
		turn2End := ackEnd + turn
		if n < turn2End {
			return Partial, n
		}
		t.last = txnResult{
			reqByte: byte(bitsToUint(req)), apndp: apndp, rnw: rnw, a32: a32,
			ack: ackVal, ackValid: ackValid, totalBits: turn2End, turn1: turn, turn2: turn,
		}
		return Complete, turn2End
	}

	if rnw {
		dataEnd := ackEnd + 32
		if n < dataEnd {
			return Partial, n
		}
		parityEnd := dataEnd + 1
		if n < parityEnd {
			return Partial, n
		}
		data := bitsToUint(bits[ackEnd:dataEnd])
		parityOK := bitHigh(bits[dataEnd]) == popcountParity(data, 32)
		if !parityOK {
			return Mismatch, parityEnd
		}
		turn2End := parityEnd + turn
		if n < turn2End {
			return Partial, n
		}
		t.last = txnResult{
			reqByte: byte(bitsToUint(req)), apndp: apndp, rnw: rnw, a32: a32,
			ack: ackVal, ackValid: ackValid, dataPhase: true, data: data,
			dataParityOK: parityOK, totalBits: turn2End, turn1: turn, turn2: turn,
		}
		return Complete, turn2End
	}

	turn2End := ackEnd + turn
	if n < turn2End {
		return Partial, n
	}
	dataEnd := turn2End + 32
	if n < dataEnd {
		return Partial, n
	}
	parityEnd := dataEnd + 1
	if n < parityEnd {
		return Partial, n
	}
	data := bitsToUint(bits[turn2End:dataEnd])
	parityOK := bitHigh(bits[dataEnd]) == popcountParity(data, 32)
	if !parityOK {
		return Mismatch, parityEnd
	}
	t.last = txnResult{
		reqByte: byte(bitsToUint(req)), apndp: apndp, rnw: rnw, a32: a32,
		ack: ackVal, ackValid: ackValid, dataPhase: true, data: data,
		dataParityOK: parityOK, totalBits: parityEnd, turn1: turn, turn2: turn,
	}
	return Complete, parityEnd
}

func (t *TransactionMatcher) validatePartialRequest(bits []Bit) (MatchState, int) {
	n := len(bits)
	if n >= 1 && !bitHigh(bits[0]) {
		return Mismatch, 1
	}
	if n >= 6 {
		apndp := bitHigh(bits[1])
		rnw := bitHigh(bits[2])
		a2 := bitHigh(bits[3])
		a3 := bitHigh(bits[4])
		if bitHigh(bits[5]) != requestParity(apndp, rnw, a2, a3) {
			return Mismatch, 6
		}
	}
	if n >= 7 && bitHigh(bits[6]) {
		return Mismatch, 7
	}
	return Partial, n
}

// Commit emits the REQUEST/TURNAROUND/ACK/[data/parity/]TURNAROUND
// sub-frames in their natural left-to-right order (§5) and applies the
// ADI state update of §4.5.
func (t *TransactionMatcher) Commit(consumed []Bit, ctx *AdiContext, sink ResultSink) {
	r := t.last
	pos := 0
	next := func(n int) []Bit {
		seg := consumed[pos : pos+n]
		pos += n
		return seg
	}

	reqBits := next(8)
	reg := ctx.ResolveRegister(r.apndp, !r.rnw, r.a32)
	emitBitMarkers(reqBits, sink)
	reqStart, reqEnd := reqBits[0].StartSample(), reqBits[len(reqBits)-1].EndSample()
	flags := uint8(0)
	if r.rnw {
		flags |= FlagRnW
	}
	if r.apndp {
		flags |= FlagAPnDP
	}
	sink.AddFrame(Frame{StartSample: reqStart, EndSample: reqEnd, Type: FrameRequest, Data1: uint64(r.reqByte), Data2: uint64(regCode(reg)), Flags: flags})
	sink.AddFrameV2(FrameV2{StartSample: reqStart, EndSample: reqEnd, Type: FrameRequest, Attrs: map[string]any{
		"type": "REQUEST", "RnW": r.rnw, "APnDP": r.apndp, "reg": reg.String(),
	}})

	emitTurnaround(next(r.turn1), sink)

	ackBits := next(3)
	emitBitMarkers(ackBits, sink)
	ackStart, ackEnd := ackBits[0].StartSample(), ackBits[len(ackBits)-1].EndSample()
	sink.AddFrame(Frame{StartSample: ackStart, EndSample: ackEnd, Type: FrameAck, Data1: r.ack})
	sink.AddFrameV2(FrameV2{StartSample: ackStart, EndSample: ackEnd, Type: FrameAck, Attrs: map[string]any{"type": "ACK", "ack": r.ack}})

	if r.dataPhase {
		if r.rnw {
			emitData(consumed, &pos, FrameRData, r, reg, ctx, sink)
			emitTurnaround(next(r.turn2), sink)
		} else {
			emitTurnaround(next(r.turn2), sink)
			emitData(consumed, &pos, FrameWData, r, reg, ctx, sink)
		}
	} else if r.turn2 > 0 {
		emitTurnaround(next(r.turn2), sink)
	}

	t.updateAdiState(r, reg, ctx)
	ctx.LastFrameType = FrameRequest
	ctx.HasLastFrame = true
}

func emitTurnaround(bits []Bit, sink ResultSink) {
	if len(bits) == 0 {
		return
	}
	mid := bits[len(bits)/2]
	sink.AddMarker(Marker{Sample: mid.StartSample() + (mid.EndSample()-mid.StartSample())/2, Glyph: MarkerX})
	lvl := uint64(0)
	if bits[0].Value() == High {
		lvl = 1
	}
	sink.AddFrame(Frame{StartSample: bits[0].StartSample(), EndSample: bits[len(bits)-1].EndSample(), Type: FrameTurnaround, Data1: lvl})
	sink.AddFrameV2(FrameV2{StartSample: bits[0].StartSample(), EndSample: bits[len(bits)-1].EndSample(), Type: FrameTurnaround, Attrs: map[string]any{"type": "TURNAROUND"}})
}

func emitData(consumed []Bit, pos *int, ft FrameType, r txnResult, reg Register, ctx *AdiContext, sink ResultSink) {
	dataBits := consumed[*pos : *pos+32]
	*pos += 32
	parityBit := consumed[*pos : *pos+1]
	*pos += 1
	emitBitMarkers(dataBits, sink)
	emitBitMarkers(parityBit, sink)

	detail := rdataDetail{MemAddr: ctx.TAR, CurrReg: regCode(reg)}
	if reg == RegRDBUFF && ctx.APReadCount > 0 {
		detail.PrevReg = regCode(ctx.LastReadReg)
	}

	sink.AddFrame(Frame{StartSample: dataBits[0].StartSample(), EndSample: dataBits[len(dataBits)-1].EndSample(), Type: ft, Data1: r.data, Data2: detail.pack()})
	attrs := map[string]any{
		"type": ft.String(), "data": r.data, "reg": reg.String(), "memaddr": ctx.TAR,
	}
	if fields := FormatFields(reg, uint32(r.data), ctx.DPVersion, !r.rnw); fields != "" {
		attrs["fields"] = fields
	}
	sink.AddFrameV2(FrameV2{StartSample: dataBits[0].StartSample(), EndSample: dataBits[len(dataBits)-1].EndSample(), Type: ft, Attrs: attrs})

	okVal := uint64(0)
	if r.dataParityOK {
		okVal = 1
	}
	pStart, pEnd := parityBit[0].StartSample(), parityBit[0].EndSample()
	sink.AddFrame(Frame{StartSample: pStart, EndSample: pEnd, Type: FrameDataParity, Data1: boolBit(parityBit[0]), Data2: okVal})
	sink.AddFrameV2(FrameV2{StartSample: pStart, EndSample: pEnd, Type: FrameDataParity, Attrs: map[string]any{"type": "DATA_PARITY", "dataParityOk": r.dataParityOK}})
}

func boolBit(b Bit) uint64 {
	if b.Value() == High {
		return 1
	}
	return 0
}

// updateAdiState applies the ordered side effects of §4.5 on a successful
// commit, in the order the spec requires.
func (t *TransactionMatcher) updateAdiState(r txnResult, reg Register, ctx *AdiContext) {
	if reg == RegDPIDR && r.rnw && r.dataPhase {
		switch (r.data >> 12) & 0xF {
		case 1:
			ctx.DPVersion = DPv1
		case 2:
			ctx.DPVersion = DPv2
		case 3:
			ctx.DPVersion = DPv3
		default:
			ctx.DPVersion = DPv0
		}
	}

	if reg == RegCTRLSTAT && r.dataPhase {
		ctx.OverrunDetect = r.data&1 == 1
	}

	if reg == RegSELECT && !r.rnw && r.dataPhase {
		ctx.Select = uint32(r.data)
	}

	if reg == RegDLCR && r.dataPhase {
		ctx.TurnaroundCycles = int((r.data>>8)&3) + 1
	}

	if reg.Kind == RegKindAP && r.rnw && r.dataPhase && r.ackValid && r.ack == 1 {
		ctx.APReadCount++
		ctx.LastReadReg = reg
	} else {
		// Any write, or any DP read (including RDBUFF, whose prior
		// value was already tagged against lastReadReg in emitData),
		// clears the pipeline.
		ctx.clearAPReadPipeline()
	}

	if reg.Kind == RegKindAP && !r.rnw && r.dataPhase && isAPDataRegister(reg) {
		switch ctx.CSWAddrInc {
		case CSWAddrIncSingle:
			ctx.TAR += ctx.CSWSize.bytes()
		case CSWAddrIncPacked:
			ctx.TAR += 4
		}
	}

	if reg == RegCSW && !r.rnw && r.dataPhase {
		ctx.CSWAddrInc = CSWAddrInc((r.data >> 4) & 0x3)
		ctx.CSWSize = CSWSize(r.data & 0x7)
	}

	if reg == RegTAR && !r.rnw && r.dataPhase {
		ctx.TAR = uint32(r.data)
	}

	if r.ackValid {
		ctx.CurrentProtocol = ProtocolSWD
	} else {
		ctx.CurrentProtocol = ProtocolUnknown
	}
}

func isAPDataRegister(r Register) bool {
	switch r.Name {
	case "DRW", "BD0", "BD1", "BD2", "BD3":
		return true
	default:
		return len(r.Name) > 3 && r.Name[:3] == "DAR"
	}
}
