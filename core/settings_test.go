package swd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_SaveLoadRoundTrip(t *testing.T) {
	s := Settings{
		SWDIOChannel:         "2",
		SWCLKChannel:         "3",
		InitialProtocol:      ProtocolSWD,
		InitialLastFrame:     FrameJTAGToSWD,
		InitialDPVersion:     DPv2,
		InitialTurnaround:    2,
		InitialOverrunDetect: true,
		InitialSelect:        0xDEADBEEF,
	}

	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	got, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestSettings_DefaultRoundTrip(t *testing.T) {
	s := DefaultSettings()

	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	got, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestSettings_NewAdiContextSeedsFromSettings(t *testing.T) {
	s := Settings{
		InitialProtocol:      ProtocolJTAG,
		InitialLastFrame:     FrameLineReset,
		InitialDPVersion:     DPv3,
		InitialTurnaround:    4,
		InitialOverrunDetect: true,
		InitialSelect:        0x100,
	}

	ctx := s.NewAdiContext()
	assert.Equal(t, ProtocolJTAG, ctx.CurrentProtocol)
	assert.True(t, ctx.HasLastFrame)
	assert.Equal(t, FrameLineReset, ctx.LastFrameType)
	assert.Equal(t, DPv3, ctx.DPVersion)
	assert.Equal(t, 4, ctx.TurnaroundCycles)
	assert.True(t, ctx.OverrunDetect)
	assert.Equal(t, uint32(0x100), ctx.Select)
}

func TestLoad_TruncatedStreamErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLengthPrefixed(&buf, "0"))
	_, err := Load(&buf)
	assert.Error(t, err)
}
