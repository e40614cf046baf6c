package swd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// Settings is the external settings surface of §6: channel assignments
// plus the initial ADI context the decoder starts from. cmd/swddecode
// loads this from a settings archive (--settings) or uses
// DefaultSettings; Save/Load persist it the way the
// original analyzer SDK does, as a length-prefixed stream of text fields
// in declaration order.
type Settings struct {
	SWDIOChannel string
	SWCLKChannel string

	InitialProtocol      Protocol
	InitialLastFrame     FrameType
	InitialDPVersion     DPVersion
	InitialTurnaround    int
	InitialOverrunDetect bool
	InitialSelect        uint32
}

// DefaultSettings matches the teacher's habit (config.go) of a single
// function building the all-defaults struct: line reset assumed as the
// last frame, one turnaround cycle, DP v1.
func DefaultSettings() Settings {
	return Settings{
		SWDIOChannel:         "0",
		SWCLKChannel:         "1",
		InitialProtocol:      ProtocolUnknown,
		InitialLastFrame:     FrameLineReset,
		InitialDPVersion:     DPv1,
		InitialTurnaround:    1,
		InitialOverrunDetect: false,
		InitialSelect:        0,
	}
}

// NewAdiContext builds the ADI context a decode run should start from,
// seeded from Settings rather than the hardwired defaults of
// swd.NewAdiContext.
func (s Settings) NewAdiContext() *AdiContext {
	return &AdiContext{
		CurrentProtocol:  s.InitialProtocol,
		LastFrameType:    s.InitialLastFrame,
		HasLastFrame:     true,
		DPVersion:        s.InitialDPVersion,
		TurnaroundCycles: s.InitialTurnaround,
		OverrunDetect:    s.InitialOverrunDetect,
		Select:           s.InitialSelect,
	}
}

// Save writes the settings as a length-prefixed text archive: each field,
// in declaration order, as a 4-byte big-endian length followed by its
// text: the channel strings as-is, the integer fields in decimal, the
// overrun flag as "true"/"false", and SELECT as eight hex digits. This is
// a bespoke wire shape the spec fixes
// exactly (§6); no general serialization library produces it, so it is
// hand-rolled on encoding/binary (see DESIGN.md).
func (s Settings) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fields := []string{
		s.SWDIOChannel,
		s.SWCLKChannel,
		strconv.Itoa(int(s.InitialProtocol)),
		strconv.Itoa(int(s.InitialLastFrame)),
		strconv.Itoa(int(s.InitialDPVersion)),
		strconv.Itoa(s.InitialTurnaround),
		strconv.FormatBool(s.InitialOverrunDetect),
		fmt.Sprintf("%08X", s.InitialSelect),
	}
	for _, f := range fields {
		if err := writeLengthPrefixed(bw, f); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Load reads back the archive Save wrote, in the same declared order.
func Load(r io.Reader) (Settings, error) {
	br := bufio.NewReader(r)
	var s Settings
	next := func() (string, error) { return readLengthPrefixed(br) }

	var err error
	if s.SWDIOChannel, err = next(); err != nil {
		return s, err
	}
	if s.SWCLKChannel, err = next(); err != nil {
		return s, err
	}

	proto, err := nextInt(next)
	if err != nil {
		return s, err
	}
	s.InitialProtocol = Protocol(proto)

	lastFrame, err := nextInt(next)
	if err != nil {
		return s, err
	}
	s.InitialLastFrame = FrameType(lastFrame)

	dpVer, err := nextInt(next)
	if err != nil {
		return s, err
	}
	s.InitialDPVersion = DPVersion(dpVer)

	if s.InitialTurnaround, err = nextInt(next); err != nil {
		return s, err
	}

	overrun, err := next()
	if err != nil {
		return s, err
	}
	s.InitialOverrunDetect, err = strconv.ParseBool(overrun)
	if err != nil {
		return s, fmt.Errorf("swd: decode overrunDetect: %w", err)
	}

	selHex, err := next()
	if err != nil {
		return s, err
	}
	sel, err := strconv.ParseUint(selHex, 16, 32)
	if err != nil {
		return s, fmt.Errorf("swd: decode select: %w", err)
	}
	s.InitialSelect = uint32(sel)

	return s, nil
}

func nextInt(next func() (string, error)) (int, error) {
	v, err := next()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("swd: decode integer field: %w", err)
	}
	return n, nil
}

func writeLengthPrefixed(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readLengthPrefixed(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
