package simulate

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/swdtrace/swdcore/core"
)

// Scenario is a human-editable manifest describing a sequence of SWD
// wire events to synthesize, the YAML counterpart of the teacher's
// device-identification tables (deviceid.go) repurposed here for
// reproducible test fixtures instead of static lookup data.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one tagged entry in a scenario manifest. Only the fields
// relevant to Kind are read; the rest default to zero.
type Step struct {
	Kind string `yaml:"kind"`

	Cycles int `yaml:"cycles,omitempty"` // line_reset, idle, jtag_tlr, ds_sel_alert_preamble

	APnDP bool   `yaml:"apndp,omitempty"`
	RnW   bool   `yaml:"rnw,omitempty"`
	A32   int    `yaml:"a32,omitempty"`
	Turn1 int    `yaml:"turn1,omitempty"`
	Turn2 int    `yaml:"turn2,omitempty"`
	Ack   uint64 `yaml:"ack,omitempty"`
	Data  uint32 `yaml:"data,omitempty"`
}

// LoadScenario parses a YAML scenario manifest.
func LoadScenario(r io.Reader) (Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&sc); err != nil {
		return sc, fmt.Errorf("simulate: decode scenario: %w", err)
	}
	return sc, nil
}

// Build lowers a Scenario to a BitStream by appending each step's wire
// shape in order.
func (sc Scenario) Build() (*BitStream, error) {
	s := NewBitStream()
	for i, step := range sc.Steps {
		switch step.Kind {
		case "line_reset":
			s.Append(LineReset(step.Cycles))
		case "jtag_to_swd":
			s.Append(JTAGToSWD())
		case "swd_to_jtag":
			s.Append(SWDToJTAG())
		case "idle":
			s.Append(IdleCycles(step.Cycles))
		case "jtag_tlr":
			s.Append(NewBitStream().AppendRun(core.High, step.Cycles))
		case "ds_sel_alert_preamble":
			s.Append(DSSelAlertPreamble(step.Cycles))
		case "ds_sel_alert":
			s.Append(DSSelAlert())
		case "ds_act_code_preamble":
			s.Append(DSActCodePreamble())
		case "ds_act_code_swd":
			s.Append(DSActCodeSWD())
		case "ds_act_code_jtag":
			s.Append(DSActCodeJTAG())
		case "transaction":
			s.Append(Transaction(step.APnDP, step.RnW, step.A32, step.Turn1, step.Turn2, step.Ack, step.Data))
		default:
			return nil, fmt.Errorf("simulate: scenario %q step %d: unknown kind %q", sc.Name, i, step.Kind)
		}
	}
	return s, nil
}
