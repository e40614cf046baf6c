package swd

// CSWAddrInc is CSW.AddrInc (bits [5:4]), governing post-access TAR
// auto-increment (§3, §4.5).
type CSWAddrInc int

const (
	CSWAddrIncOff CSWAddrInc = iota
	CSWAddrIncSingle
	CSWAddrIncPacked
	CSWAddrIncReserved
)

// CSWSize is CSW.Size (bits [2:0]).
type CSWSize int

const (
	CSWSizeByte CSWSize = iota
	CSWSizeHalf
	CSWSizeWord
	CSWSizeDouble
	CSWSize128
	CSWSize256
	CSWSizeReserved
)

func (s CSWSize) bytes() uint32 {
	switch s {
	case CSWSizeByte:
		return 1
	case CSWSizeHalf:
		return 2
	case CSWSizeWord:
		return 4
	case CSWSizeDouble:
		return 8
	case CSWSize128:
		return 16
	case CSWSize256:
		return 32
	default:
		return 4
	}
}

// FrameType identifies the kind of frame most recently committed; it both
// labels emitted frames and restricts which matchers may run next (§3).
type FrameType int

const (
	FrameLineReset FrameType = iota
	FrameJTAGToSWD
	FrameSWDToJTAG
	FrameJTAGToDS
	FrameSWDToDS
	FrameJTAGTLR
	FrameIdleCycle
	FrameDSSelAlertPreamble
	FrameDSSelAlert
	FrameDSActCodePreamble
	FrameDSActCode
	FrameRequest
	FrameTurnaround
	FrameAck
	FrameRData
	FrameWData
	FrameDataParity
	FrameError
	FrameIgnored
)

func (t FrameType) String() string {
	switch t {
	case FrameLineReset:
		return "LINE_RESET"
	case FrameJTAGToSWD:
		return "JTAG_TO_SWD"
	case FrameSWDToJTAG:
		return "SWD_TO_JTAG"
	case FrameJTAGToDS:
		return "JTAG_TO_DS"
	case FrameSWDToDS:
		return "SWD_TO_DS"
	case FrameJTAGTLR:
		return "JTAG_TLR"
	case FrameIdleCycle:
		return "IDLE_CYCLE"
	case FrameDSSelAlertPreamble:
		return "DS_SEL_ALERT_PREAMBLE"
	case FrameDSSelAlert:
		return "DS_SEL_ALERT"
	case FrameDSActCodePreamble:
		return "DS_ACT_CODE_PREAMBLE"
	case FrameDSActCode:
		return "DS_ACT_CODE"
	case FrameRequest:
		return "REQUEST"
	case FrameTurnaround:
		return "TURNAROUND"
	case FrameAck:
		return "ACK"
	case FrameRData:
		return "RDATA"
	case FrameWData:
		return "WDATA"
	case FrameDataParity:
		return "DATA_PARITY"
	case FrameError:
		return "ERROR"
	case FrameIgnored:
		return "IGNORED"
	default:
		return "?"
	}
}

// AdiContext is the single, explicitly-threaded, mutable record of
// process-wide ADI protocol state (§3 "ADI context"). Matchers receive it
// by pointer and mutate it only from their commit handlers, never while
// speculatively matching (§5) — this is the break-the-cyclic-reference
// redesign flagged in §9: matchers hold no back-reference to anything,
// the decode loop owns the context and hands it down.
type AdiContext struct {
	CurrentProtocol Protocol
	LastFrameType   FrameType
	HasLastFrame    bool

	DPVersion        DPVersion
	TurnaroundCycles int

	OverrunDetect bool

	Select uint32
	TAR    uint32

	CSWAddrInc CSWAddrInc
	CSWSize    CSWSize

	APReadCount int
	LastReadReg Register
}

// NewAdiContext builds a context with the reset defaults of §3/§6: no
// protocol assumed, one turnaround cycle, DP v1 until DPIDR says otherwise.
func NewAdiContext() *AdiContext {
	return &AdiContext{
		CurrentProtocol:  ProtocolUnknown,
		DPVersion:        DPv1,
		TurnaroundCycles: 1,
	}
}

// DPBank is SELECT[3:0], the DP bank-select nibble.
func (c *AdiContext) DPBank() uint8 { return uint8(c.Select & 0xF) }

// APBank is SELECT[7:4] (legacy) / SELECT[11:4] (v3), the AP bank field.
func (c *AdiContext) APBank() uint32 {
	if c.DPVersion == DPv3 {
		return (c.Select >> 4) & 0xFF
	}
	return (c.Select >> 4) & 0xF
}

// ResolveRegister resolves the register addressed by an AP/DP access per
// §4.7, given the accumulated SELECT/version state.
func (c *AdiContext) ResolveRegister(apndp bool, write bool, a32 int) Register {
	if apndp {
		return ResolveAP(a32, c.Select, c.DPVersion)
	}
	return ResolveDP(a32, c.DPBank(), write, c.DPVersion)
}

// ApplyLineReset applies the line-reset side effects of §3/§4.3: drop to
// unknown protocol, force single-cycle turnaround, clear DPBANKSEL.
func (c *AdiContext) ApplyLineReset() {
	c.CurrentProtocol = ProtocolUnknown
	c.TurnaroundCycles = 1
	c.Select &^= 0xF
}

// clearAPReadPipeline clears the AP-read lookahead state (§4.5): any write,
// or any DP read other than RDBUFF-while-pending, clears it.
func (c *AdiContext) clearAPReadPipeline() {
	c.APReadCount = 0
	c.LastReadReg = Register{}
}
