package swd

// Protocol is the debug protocol currently believed to be on the wire.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolDormant
	ProtocolJTAG
	ProtocolSWD
)

func (p Protocol) String() string {
	switch p {
	case ProtocolDormant:
		return "DORMANT"
	case ProtocolJTAG:
		return "JTAG"
	case ProtocolSWD:
		return "SWD"
	default:
		return "UNKNOWN"
	}
}

// DPVersion is the ADI DP architecture version, which selects register
// tables and field layouts (§3, §4.7).
type DPVersion int

const (
	DPv0 DPVersion = iota
	DPv1
	DPv2
	DPv3
)

// accessBit is the access/version bitmask carried by each register table
// candidate in §4.7: which R/W directions and DP versions it is valid for.
type accessBit uint8

const (
	accRead accessBit = 1 << iota
	accWrite
	accV1
	accV2
	accV3
)

func versionBit(v DPVersion) accessBit {
	switch v {
	case DPv1:
		return accV1
	case DPv2:
		return accV2
	case DPv3:
		return accV3
	default:
		return 0
	}
}

// RegKind distinguishes DP from AP register identities purely for display;
// the resolver never confuses the two spaces because APnDP selects which
// table it consults.
type RegKind int

const (
	RegKindDP RegKind = iota
	RegKindAP
)

// Register is a resolved register identity.
type Register struct {
	Kind RegKind
	Name string
}

// Sentinel registers for the "no match" outcomes of §4.7.
var (
	RegUndefined = Register{Kind: RegKindDP, Name: "UNDEFINED"}
	RegRAZWI     = Register{Kind: RegKindAP, Name: "RAZ/WI"}
)

func (r Register) String() string { return r.Name }

// Well-known DP register identities, named per ADI v5/v6.
var (
	RegDPIDR     = Register{RegKindDP, "DPIDR"}
	RegABORT     = Register{RegKindDP, "ABORT"}
	RegCTRLSTAT  = Register{RegKindDP, "CTRL/STAT"}
	RegDLCR      = Register{RegKindDP, "DLCR"}
	RegTARGETID  = Register{RegKindDP, "TARGETID"}
	RegDLPIDR    = Register{RegKindDP, "DLPIDR"}
	RegEVENTSTAT = Register{RegKindDP, "EVENTSTAT"}
	RegSELECT    = Register{RegKindDP, "SELECT"}
	RegSELECT1   = Register{RegKindDP, "SELECT1"}
	RegRESEND    = Register{RegKindDP, "RESEND"}
	RegRDBUFF    = Register{RegKindDP, "RDBUFF"}
	RegTARGETSEL = Register{RegKindDP, "TARGETSEL"}
)

// Well-known AP register identities.
var (
	RegCSW = Register{RegKindAP, "CSW"}
	RegTAR = Register{RegKindAP, "TAR"}
	RegDRW = Register{RegKindAP, "DRW"}
	RegCFG = Register{RegKindAP, "CFG"}
	RegBASE = Register{RegKindAP, "BASE"}
	RegIDR  = Register{RegKindAP, "IDR"}
)

func regBDn(n int) Register { return Register{RegKindAP, bdName[n]} }
func regDARn(n int) Register { return Register{RegKindAP, darName(n)} }

var bdName = [4]string{"BD0", "BD1", "BD2", "BD3"}

func darName(n int) string {
	const hex = "0123456789ABCDEF"
	if n < 16 {
		return "DAR" + string(hex[n])
	}
	// DAR0..DAR255: render as decimal beyond the single hex digit range.
	return "DAR" + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// dpCandidate is one row of the DP register candidate table of §4.7: a
// bank mask (nil = any bank), an access bitmask, and the resolved name.
type dpCandidate struct {
	reg       Register
	bankMask  []uint8 // nil means "any bank"; otherwise the set of DPBANKSEL values this candidate serves
	access    accessBit
}

func (c dpCandidate) matchesBank(bank uint8) bool {
	if c.bankMask == nil {
		return true
	}
	for _, b := range c.bankMask {
		if b == bank {
			return true
		}
	}
	return false
}

// dpRegisterTable is keyed by A[3:2] (0..3). Ordering within each entry
// matters: the resolver takes the first matching candidate. For V3,
// ResolveDP moves a bank-0-restricted candidate at addr 0 to the front of
// its walk; the addr-0 entry holds only bank-unrestricted DPIDR and ABORT
// candidates, with no separate bank-0 DPIDR row, so DPIDR resolves the
// same way in every bank and DP version.
var dpRegisterTable = [4][]dpCandidate{
	0: { // A[3:2] == 00
		// Both candidates are bank-unrestricted, so preferBankZero has
		// nothing to prefer here; it only bites once a table entry adds a
		// bank-0-restricted row at this address.
		{reg: RegDPIDR, bankMask: nil, access: accRead | accV1 | accV2 | accV3},
		{reg: RegABORT, bankMask: nil, access: accWrite | accV1 | accV2 | accV3},
	},
	1: { // A[3:2] == 01
		{reg: RegCTRLSTAT, bankMask: []uint8{0}, access: accRead | accWrite | accV1 | accV2 | accV3},
		{reg: RegDLCR, bankMask: []uint8{1}, access: accRead | accWrite | accV1 | accV2 | accV3},
		{reg: RegTARGETID, bankMask: []uint8{2}, access: accRead | accV2 | accV3},
		{reg: RegDLPIDR, bankMask: []uint8{3}, access: accRead | accV2 | accV3},
		{reg: RegEVENTSTAT, bankMask: []uint8{4}, access: accRead | accV3},
		{reg: RegSELECT1, bankMask: []uint8{5}, access: accRead | accWrite | accV3},
	},
	2: { // A[3:2] == 10
		{reg: RegRESEND, bankMask: nil, access: accRead | accV1 | accV2 | accV3},
		{reg: RegSELECT, bankMask: nil, access: accWrite | accV1 | accV2 | accV3},
	},
	3: { // A[3:2] == 11
		{reg: RegRDBUFF, bankMask: nil, access: accRead | accV1 | accV2 | accV3},
		{reg: RegTARGETSEL, bankMask: nil, access: accWrite | accV1 | accV2 | accV3},
	},
}

// ResolveDP resolves a DP register per §4.7. a32 is A[3:2] (0..3), bank is
// SELECT[3:0] (DPBANKSEL), write reports the access direction.
func ResolveDP(a32 int, bank uint8, write bool, ver DPVersion) Register {
	candidates := dpRegisterTable[a32&3]
	wantAccess := accRead
	if write {
		wantAccess = accWrite
	}
	vbit := versionBit(ver)
	if ver == DPv0 {
		vbit = accV1 // DP v0 parts are treated like v1 tables for field purposes
	}

	order := candidates
	if ver == DPv3 && a32&3 == 0 {
		// V3 prefers the bank-0-restricted candidate first when one
		// exists at this address; ABORT has no bank restriction here
		// so this only affects a hypothetical bank-0 DPIDR variant.
		order = preferBankZero(candidates)
	}

	for _, c := range order {
		if c.access&wantAccess == 0 {
			continue
		}
		if c.access&vbit == 0 {
			continue
		}
		if !c.matchesBank(bank) {
			continue
		}
		return c.reg
	}
	return RegUndefined
}

func preferBankZero(candidates []dpCandidate) []dpCandidate {
	reordered := make([]dpCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.bankMask != nil && len(c.bankMask) == 1 && c.bankMask[0] == 0 {
			reordered = append([]dpCandidate{c}, reordered...)
		} else {
			reordered = append(reordered, c)
		}
	}
	return reordered
}

// ResolveAP resolves an AP register per §4.7. For DP versions below V3 the
// key is SELECT[7:4]|A[3:2] over a sparse 64-entry space; for V3 the key is
// SELECT[11:4]|A[3:2] over a 4KiB window that additionally exposes
// DAR0..DAR255 and the system register block at 0xD00..0xFFC.
func ResolveAP(a32 int, selectReg uint32, ver DPVersion) Register {
	if ver == DPv3 {
		return resolveAPv3(a32, selectReg)
	}
	bank := (selectReg >> 4) & 0xF
	key := int(bank)<<2 | (a32 & 3)
	if reg, ok := apTableLegacy[key]; ok {
		return reg
	}
	return RegRAZWI
}

var apTableLegacy = map[int]Register{
	0<<2 | 0: RegCSW,
	0<<2 | 1: RegTAR,
	0<<2 | 3: RegDRW,
	1<<2 | 0: regBDn(0),
	1<<2 | 1: regBDn(1),
	1<<2 | 2: regBDn(2),
	1<<2 | 3: regBDn(3),
	0xF<<2 | 0: RegCFG,
	0xF<<2 | 1: RegBASE,
	0xF<<2 | 3: RegIDR,
}

func resolveAPv3(a32 int, selectReg uint32) Register {
	window := int((selectReg>>4)&0xFF)<<4 | (a32 & 3 << 2)
	switch {
	case window >= 0x000 && window < 0x400:
		return regDARn(window / 4)
	case window == 0xD00:
		return RegCSW
	case window == 0xD04:
		return RegTAR
	case window == 0xD0C:
		return RegDRW
	case window == 0xDF0:
		return RegCFG
	case window == 0xDF4:
		return RegBASE
	case window == 0xDFC:
		return RegIDR
	default:
		return RegRAZWI
	}
}
