package weights

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/section"
)

// Policy holds the tunable constants of the frequency to weight transform.
type Policy struct {
	// Base is the weight of any section that survives the threshold.
	Base float64 `yaml:"base"`
	// Gain scales the linear frequency term.
	Gain float64 `yaml:"gain"`
	// CommonBonus applies at CommonFrequency, CoreBonus replaces it at CoreFrequency.
	CommonBonus     float64 `yaml:"common_bonus"`
	CommonFrequency float64 `yaml:"common_frequency"`
	CoreBonus       float64 `yaml:"core_bonus"`
	CoreFrequency   float64 `yaml:"core_frequency"`

	// Density rewards sections that are typically rich, capped at DensityCap.
	EntryDensity float64 `yaml:"entry_density"`
	CodedDensity float64 `yaml:"coded_density"`
	WordDensity  float64 `yaml:"word_density"`
	DensityCap   float64 `yaml:"density_cap"`

	// KindMultipliers map section kind names to domain importance; missing kinds use 1.
	KindMultipliers map[string]float64 `yaml:"kind_multipliers"`
	// TemplateMultipliers override the kind multiplier for specific section ids.
	TemplateMultipliers map[string]float64 `yaml:"template_multipliers"`
}

// DefaultPolicy returns the calibrated default transform.
func DefaultPolicy() Policy {
	return Policy{
		Base:            0.3,
		Gain:            0.2,
		CommonBonus:     0.1,
		CommonFrequency: 0.75,
		CoreBonus:       0.2,
		CoreFrequency:   0.95,
		EntryDensity:    0.1,
		CodedDensity:    0.05,
		WordDensity:     0.005,
		DensityCap:      0.3,
		KindMultipliers: map[string]float64{
			section.KindNarrative:      1.5,
			section.KindClinical:       1.2,
			section.KindVitals:         1.0,
			section.KindAdministrative: 0.5,
			section.KindOther:          1.0,
		},
		TemplateMultipliers: map[string]float64{
			"2.16.840.1.113883.10.20.22.2.3.1":  1.4,  // Results
			"2.16.840.1.113883.10.20.22.2.5.1":  1.4,  // Problems
			"2.16.840.1.113883.10.20.22.2.1.1":  1.4,  // Medications
			"2.16.840.1.113883.10.20.22.2.6":    1.4,  // Allergies
			"2.16.840.1.113883.10.20.22.2.6.1":  1.4,  // Allergies
			"2.16.840.1.113883.10.20.22.2.4.1":  1.15, // Vital Signs
			"2.16.840.1.113883.10.20.22.2.22.1": 1.3,  // Encounters
			"2.16.840.1.113883.10.20.22.2.7.1":  1.3,  // Procedures
		},
	}
}

// Multiplier resolves the domain importance of a section.
func (p Policy) Multiplier(sectionID, kind string) float64 {
	if m, ok := p.TemplateMultipliers[sectionID]; ok {
		return m
	}
	if m, ok := p.KindMultipliers[kind]; ok {
		return m
	}
	return 1
}

// Tier returns the step bonus for a frequency.
func (p Policy) Tier(frequency float64) float64 {
	switch {
	case p.CoreFrequency > 0 && frequency >= p.CoreFrequency:
		return p.CoreBonus
	case p.CommonFrequency > 0 && frequency >= p.CommonFrequency:
		return p.CommonBonus
	default:
		return 0
	}
}

// Validate rejects policies that would break non-negativity or monotonicity in frequency.
func (p Policy) Validate() error {
	for name, v := range map[string]float64{
		"base": p.Base, "gain": p.Gain, "common_bonus": p.CommonBonus, "core_bonus": p.CoreBonus,
		"entry_density": p.EntryDensity, "coded_density": p.CodedDensity, "word_density": p.WordDensity,
		"density_cap": p.DensityCap,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return domain.NewConfigError("weights."+name, fmt.Sprintf("must be a non-negative number, got %v", v))
		}
	}
	if err := checkFraction("weights.common_frequency", p.CommonFrequency); err != nil {
		return err
	}
	if err := checkFraction("weights.core_frequency", p.CoreFrequency); err != nil {
		return err
	}
	if p.CoreFrequency < p.CommonFrequency {
		return domain.NewConfigError("weights.core_frequency", "must not be below common_frequency")
	}
	if p.CoreBonus < p.CommonBonus {
		return domain.NewConfigError("weights.core_bonus", "must not be below common_bonus")
	}
	for kind, m := range p.KindMultipliers {
		if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
			return domain.NewConfigError("weights.kind_multipliers."+kind, fmt.Sprintf("invalid multiplier %v", m))
		}
	}
	for id, m := range p.TemplateMultipliers {
		if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
			return domain.NewConfigError("weights.template_multipliers."+id, fmt.Sprintf("invalid multiplier %v", m))
		}
	}
	return nil
}

func checkFraction(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return domain.NewConfigError(field, fmt.Sprintf("must be within [0,1], got %v", v))
	}
	return nil
}
