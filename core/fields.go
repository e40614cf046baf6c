package swd

import (
	"fmt"
	"strings"
)

// Field is one named, bit-ranged sub-value of a register, with the
// access/version applicability it is valid under (§4.7's field
// formatter). Bit ranges are half-open, LSB-first: [Lo, Hi).
type Field struct {
	Name    string
	Lo, Hi  int
	access  accessBit // 0 means "both read and write"
	version accessBit // 0 means "all versions"
	enum    map[uint32]string
}

func (f Field) appliesTo(want accessBit, vbit accessBit) bool {
	if f.access != 0 && f.access&want == 0 {
		return false
	}
	if f.version != 0 && f.version&vbit == 0 {
		return false
	}
	return true
}

func (f Field) extract(value uint32) uint32 {
	width := f.Hi - f.Lo
	mask := uint32(1)<<uint(width) - 1
	return (value >> uint(f.Lo)) & mask
}

// fieldTables supplements the distilled spec's mechanism (§4.7) with part
// of the register field catalogue from original_source/src/SWDTypes.cpp:
// DPIDR, CTRL/STAT, SELECT, DLCR, CSW and TAR. Registers without an entry
// get no field breakdown (FormatFields returns ""). Defined as an
// immutable package-level table per §9's "mutable module-level maps ->
// compile-time constants" redesign flag.
var fieldTables = map[Register][]Field{
	RegDPIDR: {
		{Name: "DESIGNER", Lo: 1, Hi: 12, access: accRead},
		{Name: "PARTNO", Lo: 20, Hi: 28, access: accRead},
		{Name: "REVISION", Lo: 28, Hi: 32, access: accRead},
		{Name: "MIN", Lo: 16, Hi: 17, access: accRead},
		{
			Name: "VERSION", Lo: 12, Hi: 16, access: accRead,
			enum: map[uint32]string{0: "DPv0", 1: "DPv1", 2: "DPv2", 3: "DPv3"},
		},
	},
	RegCTRLSTAT: {
		{Name: "ORUNDETECT", Lo: 0, Hi: 1},
		{Name: "STICKYORUN", Lo: 1, Hi: 2},
		{Name: "TRNMODE", Lo: 2, Hi: 4},
		{Name: "STICKYCMP", Lo: 4, Hi: 5},
		{Name: "STICKYERR", Lo: 5, Hi: 6},
		{Name: "READOK", Lo: 6, Hi: 7},
		{Name: "WDATAERR", Lo: 7, Hi: 8},
		{Name: "CDBGRSTREQ", Lo: 26, Hi: 27},
		{Name: "CDBGRSTACK", Lo: 27, Hi: 28},
		{Name: "CDBGPWRUPREQ", Lo: 28, Hi: 29},
		{Name: "CDBGPWRUPACK", Lo: 29, Hi: 30},
		{Name: "CSYSPWRUPREQ", Lo: 30, Hi: 31},
		{Name: "CSYSPWRUPACK", Lo: 31, Hi: 32},
	},
	RegSELECT: {
		{Name: "DPBANKSEL", Lo: 0, Hi: 4, version: accV1 | accV2 | accV3},
		{Name: "APBANKSEL", Lo: 4, Hi: 8, version: accV1 | accV2},
		{Name: "APSEL", Lo: 24, Hi: 32, version: accV1 | accV2},
	},
	RegDLCR: {
		{
			Name: "TURNROUND", Lo: 8, Hi: 10,
			enum: map[uint32]string{0: "1 cycle", 1: "2 cycles", 2: "3 cycles", 3: "4 cycles"},
		},
	},
	RegCSW: {
		{
			Name: "SIZE", Lo: 0, Hi: 3,
			enum: map[uint32]string{0: "byte", 1: "half", 2: "word", 3: "double", 4: "128-bit", 5: "256-bit"},
		},
		{
			Name: "ADDRINC", Lo: 4, Hi: 6,
			enum: map[uint32]string{0: "off", 1: "single", 2: "packed"},
		},
		{Name: "DEVICEEN", Lo: 6, Hi: 7},
		{Name: "PROT", Lo: 24, Hi: 27},
	},
	RegTAR: {
		{Name: "ADDR", Lo: 0, Hi: 32},
	},
}

// FormatFields renders a register value as the comma-separated
// name=value[ (description)] token list of §4.7, restricted to the fields
// whose access/version bitmasks match the current direction and DP
// version.
func FormatFields(reg Register, value uint32, ver DPVersion, write bool) string {
	fields, ok := fieldTables[reg]
	if !ok {
		return ""
	}
	want := accRead
	if write {
		want = accWrite
	}
	vbit := versionBit(ver)
	if vbit == 0 {
		vbit = accV1
	}

	var parts []string
	for _, f := range fields {
		if !f.appliesTo(want, vbit) {
			continue
		}
		raw := f.extract(value)
		tok := fmt.Sprintf("%s=0x%X", f.Name, raw)
		if desc, ok := f.enum[raw]; ok {
			tok += fmt.Sprintf(" (%s)", desc)
		}
		parts = append(parts, tok)
	}
	return strings.Join(parts, ", ")
}
