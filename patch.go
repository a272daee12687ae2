package fmtrack

import (
	"errors"
	"fmt"
)

type (
	// Operator holds the parameters of a single FM operator. The core never
	// interprets these beyond handing them to a Device; the opl driver packs
	// them into register bytes.
	Operator struct {
		Attack       int  `yaml:"attack"`   // 0-15
		Decay        int  `yaml:"decay"`    // 0-15
		SustainLevel int  `yaml:"sustain"`  // 0-15, attenuation of the sustain plateau
		Release      int  `yaml:"release"`  // 0-15
		Multiplier   int  `yaml:"mult"`     // 0-15, frequency multiple of the channel frequency
		TotalLevel   int  `yaml:"level"`    // 0-63, output attenuation
		KeyScale     int  `yaml:"keyscale"` // 0-3
		Waveform     int  `yaml:"wave"`     // 0-7
		Tremolo      bool `yaml:"tremolo,omitempty"`
		Vibrato      bool `yaml:"vibrato,omitempty"`
		Sustaining   bool `yaml:"sustaining,omitempty"`
		EnvScale     bool `yaml:"envscale,omitempty"`
	}

	// OperatorPair is one two-operator voice: a modulator feeding a carrier,
	// with channel feedback and the additive/FM connection choice.
	OperatorPair struct {
		Modulator Operator
		Carrier   Operator
		Feedback  int  `yaml:"feedback"`           // 0-7
		Additive  bool `yaml:"additive,omitempty"` // operators in parallel instead of FM
	}

	// Patch is the instrument definition for one track. A dual-voice patch
	// layers two operator pairs for a richer timbre, costing two hardware
	// channels per sounding note.
	Patch struct {
		Name      string
		DualVoice bool           `yaml:",omitempty"`
		Voices    []OperatorPair `yaml:",omitempty"`
	}
)

// Copy makes a deep copy of a Patch.
func (p *Patch) Copy() Patch {
	voices := make([]OperatorPair, len(p.Voices))
	copy(voices, p.Voices)
	return Patch{Name: p.Name, DualVoice: p.DualVoice, Voices: voices}
}

// Voice returns the operator pair for the given voice index, clamped to the
// voices the patch actually has. A dual-voice patch with only one pair
// defined simply layers it twice.
func (p *Patch) Voice(index int) OperatorPair {
	if len(p.Voices) == 0 {
		return DefaultPatch().Voices[0]
	}
	if index < 0 {
		index = 0
	}
	if index >= len(p.Voices) {
		index = len(p.Voices) - 1
	}
	return p.Voices[index]
}

// NumVoices returns how many hardware channels one note of this patch wants:
// 2 for a dual-voice patch, 1 otherwise.
func (p *Patch) NumVoices() int {
	if p.DualVoice {
		return 2
	}
	return 1
}

// Validate eagerly rejects parameter values that cannot be packed into
// registers, so a bad patch file fails before any rendering starts.
func (p *Patch) Validate() error {
	if p.DualVoice && len(p.Voices) < 1 {
		return errors.New("dual-voice patch defines no voices")
	}
	for i, v := range p.Voices {
		for _, op := range []struct {
			name string
			op   Operator
		}{{"modulator", v.Modulator}, {"carrier", v.Carrier}} {
			if err := op.op.validate(); err != nil {
				return fmt.Errorf("voice %d %s: %w", i, op.name, err)
			}
		}
		if v.Feedback < 0 || v.Feedback > 7 {
			return fmt.Errorf("voice %d: feedback %d out of range 0-7", i, v.Feedback)
		}
	}
	return nil
}

func (o *Operator) validate() error {
	check := func(name string, value, max int) error {
		if value < 0 || value > max {
			return fmt.Errorf("%s %d out of range 0-%d", name, value, max)
		}
		return nil
	}
	for _, c := range []error{
		check("attack", o.Attack, 15),
		check("decay", o.Decay, 15),
		check("sustain", o.SustainLevel, 15),
		check("release", o.Release, 15),
		check("mult", o.Multiplier, 15),
		check("level", o.TotalLevel, 63),
		check("keyscale", o.KeyScale, 3),
		check("wave", o.Waveform, 7),
	} {
		if c != nil {
			return c
		}
	}
	return nil
}

// DefaultPatch returns a plain sustained two-operator tone, used for tracks
// that have no patch assigned.
func DefaultPatch() Patch {
	return Patch{
		Name: "default",
		Voices: []OperatorPair{{
			Modulator: Operator{Attack: 15, Decay: 4, SustainLevel: 4, Release: 7, Multiplier: 1, TotalLevel: 24, Sustaining: true},
			Carrier:   Operator{Attack: 15, Decay: 3, SustainLevel: 2, Release: 7, Multiplier: 1, TotalLevel: 0, Sustaining: true},
			Feedback:  3,
		}},
	}
}
