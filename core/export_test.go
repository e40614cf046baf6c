package swd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRowFromFrameV2_RequestFrame(t *testing.T) {
	f := FrameV2{
		StartSample: 1_000_000,
		Type:        FrameRequest,
		Attrs: map[string]any{
			"type": "REQUEST", "RnW": true, "APnDP": false, "reg": RegDPIDR.String(),
		},
	}
	row := ExportRowFromFrameV2(f, 1_000_000)
	assert.Equal(t, 1.0, row.TimeSeconds)
	assert.Equal(t, "R", row.ReadWrite)
	assert.Equal(t, "DP", row.APorDP)
	assert.Equal(t, RegDPIDR.String(), row.Register)
}

func TestExportRowFromFrameV2_AckNamesKnownCodes(t *testing.T) {
	for code, name := range map[uint64]string{1: "OK", 2: "WAIT", 4: "FAULT"} {
		f := FrameV2{Type: FrameAck, Attrs: map[string]any{"ack": code}}
		row := ExportRowFromFrameV2(f, 1)
		assert.Equal(t, name, row.ACK)
	}
}

func TestExportRowFromFrameV2_AckFallsBackToHexForUnknownCode(t *testing.T) {
	f := FrameV2{Type: FrameAck, Attrs: map[string]any{"ack": uint64(7)}}
	row := ExportRowFromFrameV2(f, 1)
	assert.Equal(t, "0x7", row.ACK)
}

func TestExportRowFromFrameV2_DataDetailsComposesMemAddrAndParity(t *testing.T) {
	f := FrameV2{
		Type: FrameRData,
		Attrs: map[string]any{
			"data": uint64(0x2BA01477), "memaddr": uint32(0x20000000), "dataParityOk": true,
		},
	}
	row := ExportRowFromFrameV2(f, 1)
	assert.Equal(t, "0x2BA01477", row.Data)
	assert.Equal(t, "TAR=0x20000000, parityOK=true", row.DataDetails)
}

func TestExport_WritesTabSeparatedHeaderAndRows(t *testing.T) {
	rows := []ExportRow{
		{TimeSeconds: 0.5, Type: "LINE_RESET", Data: "0x0"},
	}
	var buf strings.Builder
	require.NoError(t, Export(&buf, rows))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Time [s]\tType\tR/W\tAP/DP\tRegister\tRequest byte\tACK\tData\tData details", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0.500000000\tLINE_RESET"))
}
