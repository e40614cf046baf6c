package swd

import (
	"bufio"
	"fmt"
	"io"
)

// exportHeader is the column header row emitted by Export, grounded on
// original_source/src/SWDAnalyzerResults.cpp's GenerateExportFile: a
// tab-separated dump with one row per frame, not a CSV.
var exportHeader = []string{
	"Time [s]", "Type", "R/W", "AP/DP", "Register", "Request byte", "ACK", "Data", "Data details",
}

// ExportRow is one committed frame reduced to the columns the export
// format exposes. Decoder callers that want an export file build these
// alongside (or instead of) using a ResultSink that records Frames.
type ExportRow struct {
	TimeSeconds float64
	Type        string
	ReadWrite   string
	APorDP      string
	Register    string
	RequestByte string
	ACK         string
	Data        string
	DataDetails string
}

// Export writes rows as a tab-separated table with a header, matching
// the original analyzer's "Export as text/csv" output shape (§6).
func Export(w io.Writer, rows []ExportRow) error {
	bw := bufio.NewWriter(w)
	for i, col := range exportHeader {
		if i > 0 {
			if _, err := bw.WriteString("\t"); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString(col); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}

	for _, r := range rows {
		line := fmt.Sprintf("%.9f\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.TimeSeconds, r.Type, r.ReadWrite, r.APorDP, r.Register, r.RequestByte, r.ACK, r.Data, r.DataDetails)
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ackNames maps the 3-bit ACK encodings to their mnemonic, the way
// §4.5 names them.
var ackNames = map[uint64]string{1: "OK", 2: "WAIT", 4: "FAULT"}

// ExportRowFromFrameV2 reduces a FrameV2 (already carrying resolved
// register/ack/data attributes from Commit, under the key names used
// throughout sequence.go and transaction.go) to the flat export row
// shape, given the sample rate needed to turn sample indices into
// seconds.
func ExportRowFromFrameV2(f FrameV2, sampleRateHz float64) ExportRow {
	row := ExportRow{
		TimeSeconds: float64(f.StartSample) / sampleRateHz,
		Type:        f.Type.String(),
	}
	if v, ok := f.Attrs["RnW"].(bool); ok {
		if v {
			row.ReadWrite = "R"
		} else {
			row.ReadWrite = "W"
		}
	}
	if v, ok := f.Attrs["APnDP"].(bool); ok {
		if v {
			row.APorDP = "AP"
		} else {
			row.APorDP = "DP"
		}
	}
	if v, ok := f.Attrs["reg"].(string); ok {
		row.Register = v
	}
	switch v := f.Attrs["ack"].(type) {
	case uint64:
		if name, ok := ackNames[v]; ok {
			row.ACK = name
		} else {
			row.ACK = fmt.Sprintf("0x%X", v)
		}
	}
	switch v := f.Attrs["data"].(type) {
	case uint64:
		row.Data = fmt.Sprintf("0x%X", v)
	case uint32:
		row.Data = fmt.Sprintf("0x%08X", v)
	}
	if memaddr, ok := f.Attrs["memaddr"].(uint32); ok {
		row.DataDetails = fmt.Sprintf("TAR=0x%08X", memaddr)
	}
	// fields is the §4.7 register field breakdown (FormatFields), the
	// original analyzer's GetReadRegisterValueDesc/GetWriteRegisterValueDesc
	// equivalent; present only for registers with a known field table.
	if fields, ok := f.Attrs["fields"].(string); ok && fields != "" {
		if row.DataDetails != "" {
			row.DataDetails += ", "
		}
		row.DataDetails += fields
	}
	if parityOK, ok := f.Attrs["dataParityOk"].(bool); ok {
		if row.DataDetails != "" {
			row.DataDetails += ", "
		}
		row.DataDetails += fmt.Sprintf("parityOK=%v", parityOK)
	}
	return row
}
