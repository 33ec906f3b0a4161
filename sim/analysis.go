package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// SampleResult holds one spatial sample and its tables.
type SampleResult struct {
	Position Coord
	Sites    []Coord
	True     *FrequencyTable
	Observed *ObservedTable
}

// Report is the full set of frequency tables derived from a lattice.
type Report struct {
	Generation    int
	WholeTumour   *FrequencyTable
	WholeObserved *ObservedTable
	Samples       []SampleResult
}

// Analyse builds the whole-tumour table and one sample per configured
// position (one random occupied position when none is configured), then
// applies sequencing noise to each. Sampling is skipped when
// sampling_fraction is 0. The simulator is only read; the sampling and noise
// streams are advanced.
func Analyse(s *Simulator) (*Report, error) {
	lattice, lineage := s.Lattice(), s.Lineage()
	noise := NoiseConfig{ReadDepth: s.Params.ReadDepth, DepthModel: s.Params.DepthModel()}
	noiseRNG := s.rng.ForSubsystem(SubsystemNoise)

	report := &Report{Generation: s.Generation(), WholeTumour: WholeTumour(lattice, lineage)}
	observed, err := ApplySequencingNoise(report.WholeTumour, noise, noiseRNG)
	if err != nil {
		return nil, fmt.Errorf("whole tumour noise: %w", err)
	}
	report.WholeObserved = observed

	if s.Params.SamplingFraction == 0 {
		logrus.Debugf("sampling_fraction is 0; no spatial samples taken")
		return report, nil
	}

	positions := s.Params.Positions()
	if len(positions) == 0 {
		pos, ok := RandomPosition(lattice, s.rng.ForSubsystem(SubsystemSampling))
		if !ok {
			logrus.Warnf("Lattice is empty; no sampling position available")
			return report, nil
		}
		positions = []Coord{pos}
	}

	for _, pos := range positions {
		sites, err := Sample(lattice, pos, s.Params.SamplingFraction)
		if err != nil {
			return nil, fmt.Errorf("sampling at %v: %w", pos, err)
		}
		if len(sites) == 0 {
			logrus.Warnf("Sample at %v is empty (%d occupied cells)", pos, lattice.Occupied())
		}
		table := Aggregate(sites, lattice, lineage)
		obs, err := ApplySequencingNoise(table, noise, noiseRNG)
		if err != nil {
			return nil, fmt.Errorf("sample %v noise: %w", pos, err)
		}
		report.Samples = append(report.Samples, SampleResult{Position: pos, Sites: sites, True: table, Observed: obs})
		logrus.Infof("Sampled %d cells around %v: %d mutations", len(sites), pos, len(table.Rows))
	}
	return report, nil
}
