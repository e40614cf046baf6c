// Command swdtap is an interactive frame viewer: it runs the decode loop
// over a built-in simulated stream in a background goroutine and renders
// a scrollback of the committed frames as they arrive, in bubbletea's
// Elm-architecture style. The ADI context is not displayed.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/swdtrace/swdcore/core"
	"github.com/swdtrace/swdcore/simulate"
)

const maxHistory = 200

// stepMsg carries one newly committed frame from the decode goroutine
// to the bubbletea Update loop.
type stepMsg struct {
	row  core.ExportRow
	done bool
	err  error
}

type model struct {
	decoder *core.Decoder
	ctx     *core.AdiContext
	steps   <-chan stepMsg

	history []core.ExportRow
	cursor  int
	err     error
	done    bool
}

func (m model) Init() tea.Cmd {
	return waitForStep(m.steps)
}

func waitForStep(steps <-chan stepMsg) tea.Cmd {
	return func() tea.Msg { return <-steps }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "j", "down":
			if m.cursor < len(m.history)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		}
		return m, nil

	case stepMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		if msg.done {
			m.done = true
			return m, nil
		}
		m.history = append(m.history, msg.row)
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
		m.cursor = len(m.history) - 1
		return m, waitForStep(m.steps)
	}
	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	selected    = lipgloss.NewStyle().Reverse(true)
)

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("swdtap — %d frames captured", len(m.history))))
	b.WriteString("\n\n")
	for i, row := range m.history {
		line := fmt.Sprintf("%-16s %-2s %-2s %-10s %-6s %-10s", row.Type, row.ReadWrite, row.APorDP, row.Register, row.ACK, row.Data)
		if i == m.cursor {
			line = selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.done {
		b.WriteString("\n(stream exhausted — press q to quit)\n")
	}
	if m.err != nil {
		b.WriteString(fmt.Sprintf("\nerror: %v\n", m.err))
	}
	return b.String()
}

func main() {
	ctx := core.DefaultSettings().NewAdiContext()

	clk, data := demoStream().Build()
	sampler := core.NewSampler(clk, data, nil)

	sink := &channelSink{out: make(chan stepMsg, 64)}
	decoder := core.NewDecoder(sampler, ctx, sink, nil)

	go func() {
		err := decoder.Run(context.Background())
		sink.out <- stepMsg{done: true, err: err}
		close(sink.out)
	}()

	p := tea.NewProgram(model{decoder: decoder, ctx: ctx, steps: sink.out})
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "swdtap: %v\n", err)
		os.Exit(1)
	}
}

func demoStream() *simulate.BitStream {
	s := simulate.JTAGToSWD()
	s = s.Append(simulate.LineReset(56))
	s = s.Append(simulate.Transaction(false, true, 0, 1, 1, 1, 0x2BA01477))
	s = s.Append(simulate.Transaction(false, false, 2, 1, 1, 1, 0x00000001))
	return s
}

// channelSink adapts core.ResultSink onto a channel of stepMsg, keeping
// bubbletea's Update loop the only place that touches the UI model.
type channelSink struct {
	out chan stepMsg
}

func (c *channelSink) AddFrame(core.Frame) {}

func (c *channelSink) AddFrameV2(f core.FrameV2) {
	c.out <- stepMsg{row: core.ExportRowFromFrameV2(f, 1_000_000)}
}

func (c *channelSink) AddMarker(core.Marker) {}
