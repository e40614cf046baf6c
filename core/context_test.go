package swd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdiContext_ApplyLineReset(t *testing.T) {
	ctx := NewAdiContext()
	ctx.TurnaroundCycles = 4
	ctx.Select = 0xABCDEF12
	ctx.CurrentProtocol = ProtocolSWD

	ctx.ApplyLineReset()

	assert.Equal(t, ProtocolUnknown, ctx.CurrentProtocol)
	assert.Equal(t, 1, ctx.TurnaroundCycles)
	assert.Equal(t, uint32(0xABCDEF10), ctx.Select)
}

func TestAdiContext_DPBankAndAPBank(t *testing.T) {
	ctx := NewAdiContext()
	ctx.Select = 0x000000F3
	assert.Equal(t, uint8(3), ctx.DPBank())
	assert.Equal(t, uint32(0xF), ctx.APBank())

	ctx.DPVersion = DPv3
	ctx.Select = 0x0000FFF0
	assert.Equal(t, uint32(0xFF), ctx.APBank())
}

func TestAdiContext_ResolveRegisterDispatchesOnAPnDP(t *testing.T) {
	ctx := NewAdiContext()
	assert.Equal(t, RegDPIDR, ctx.ResolveRegister(false, false, 0))
	assert.Equal(t, RegCSW, ctx.ResolveRegister(true, false, 0))
}

func TestAdiContext_ClearAPReadPipeline(t *testing.T) {
	ctx := NewAdiContext()
	ctx.APReadCount = 3
	ctx.LastReadReg = RegCSW
	ctx.clearAPReadPipeline()
	assert.Equal(t, 0, ctx.APReadCount)
	assert.Equal(t, Register{}, ctx.LastReadReg)
}
