// Command swddecode is a batch SWD decoder front end: it reads a
// settings archive, runs the decode loop over a bit stream synthesized
// from a YAML scenario (--scenario) or a built-in demo (--demo), and
// writes the tab-separated export format to stdout or a file. It has no
// input for previously-captured traces.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/swdtrace/swdcore/core"
	"github.com/swdtrace/swdcore/simulate"
)

func main() {
	var (
		settingsPath = pflag.StringP("settings", "s", "", "Path to a settings archive written by the analyzer UI. Defaults built in if omitted.")
		outputFile   = pflag.StringP("output-file", "o", "", "Write the tab-separated export here instead of stdout.")
		sampleRate   = pflag.Float64P("sample-rate", "r", 1_000_000, "Sample rate in Hz, used to compute export timestamps.")
		verbose      = pflag.BoolP("verbose", "v", false, "Log each committed frame.")
		scenarioPath = pflag.StringP("scenario", "c", "", "Path to a YAML scenario manifest (see simulate.Scenario) to synthesize a stream from.")
		demo         = pflag.BoolP("demo", "d", false, "Decode a built-in simulated stream instead of requiring real input. Useful for a smoke test.")
		help         = pflag.BoolP("help", "h", false, "Display help text.")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: swddecode [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	settings := core.DefaultSettings()
	if *settingsPath != "" {
		f, err := os.Open(*settingsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "swddecode: open settings: %v\n", err)
			os.Exit(1)
		}
		loaded, err := core.Load(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "swddecode: load settings: %v\n", err)
			os.Exit(1)
		}
		settings = loaded
	}

	var stream *simulate.BitStream
	switch {
	case *scenarioPath != "":
		f, err := os.Open(*scenarioPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "swddecode: open scenario: %v\n", err)
			os.Exit(1)
		}
		sc, err := simulate.LoadScenario(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "swddecode: %v\n", err)
			os.Exit(1)
		}
		stream, err = sc.Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "swddecode: %v\n", err)
			os.Exit(1)
		}
	case *demo:
		stream = demoStream()
	default:
		fmt.Fprintln(os.Stderr, "swddecode: no capture source wired up yet; pass --demo or --scenario")
		os.Exit(1)
	}

	clk, data := stream.Build()
	adiCtx := settings.NewAdiContext()

	var log core.Logger
	if *verbose {
		log = core.NewLogger("swddecode")
	}

	sink := &recordingSink{}
	sampler := core.NewSampler(clk, data, log)
	decoder := core.NewDecoder(sampler, adiCtx, sink, log)

	if err := decoder.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "swddecode: decode: %v\n", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "swddecode: create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	rows := make([]core.ExportRow, 0, len(sink.framesV2))
	for _, f := range sink.framesV2 {
		rows = append(rows, core.ExportRowFromFrameV2(f, *sampleRate))
	}
	if err := core.Export(out, rows); err != nil {
		fmt.Fprintf(os.Stderr, "swddecode: export: %v\n", err)
		os.Exit(1)
	}
}

// demoStream builds a small self-contained capture: a line reset
// followed by a single DPIDR read, enough to exercise the export path
// without a real capture file.
func demoStream() *simulate.BitStream {
	s := simulate.LineReset(56)
	txn := simulate.Transaction(false, true, 0, 1, 1, 1, 0x2BA01477)
	return s.Append(txn)
}

// recordingSink is a minimal core.ResultSink that only keeps what
// swddecode needs for the export step.
type recordingSink struct {
	framesV2 []core.FrameV2
}

func (r *recordingSink) AddFrame(core.Frame)       {}
func (r *recordingSink) AddFrameV2(f core.FrameV2) { r.framesV2 = append(r.framesV2, f) }
func (r *recordingSink) AddMarker(core.Marker)     {}
