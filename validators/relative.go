package validators

import (
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"gonum.org/v1/gonum/stat"
)

// NeutralRelativeRisk is reported when there is nothing to compare against.
const NeutralRelativeRisk = 0.5

// Distribution summarizes average risk of the validators in a population.
type Distribution struct {
	Validators int     `json:"validators"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"stdDev"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	P25        float64 `json:"p25"`
	P50        float64 `json:"p50"`
	P75        float64 `json:"p75"`
}

// RelativeRiskEngine ranks validators against their peers using the shared history.
type RelativeRiskEngine struct {
	history *HistoryStore
}

func NewRelativeRiskEngine(history *HistoryStore) *RelativeRiskEngine {
	return &RelativeRiskEngine{history: history}
}

/*
CalculateRelativeRisk returns the validator's position among its peers
in range [0, 1] based on the mean of the observed risk: 0 means every peer
is riskier, 1 means every peer is safer and peers with equal mean count as
half. Validator itself and duplicates are excluded from the population, peers without
history are ignored. When validator has no history or there are no peers
to compare with NeutralRelativeRisk is returned.
*/
func (e *RelativeRiskEngine) CalculateRelativeRisk(validator common.Address, population []common.Address) float64 {
	own, ok := e.history.Mean(validator)
	if !ok {
		return NeutralRelativeRisk
	}

	var lower, ties, peers float64
	seen := make(map[common.Address]struct{}, len(population))
	for _, v := range population {
		if _, dup := seen[v]; dup || v == validator {
			continue
		}
		seen[v] = struct{}{}
		m, ok := e.history.Mean(v)
		if !ok {
			continue
		}
		peers++
		switch {
		case m < own:
			lower++
		case m == own:
			ties++
		}
	}
	if peers == 0 {
		return NeutralRelativeRisk
	}
	return (lower + ties/2) / peers
}

/*
CalculateNetworkRiskDistribution returns statistics of the mean risk of the
validators in the population. Validators without history don't contribute.
Empty population yields degenerate distribution centered on NeutralRelativeRisk.
*/
func (e *RelativeRiskEngine) CalculateNetworkRiskDistribution(population []common.Address) Distribution {
	means := make([]float64, 0, len(population))
	seen := make(map[common.Address]struct{}, len(population))
	for _, v := range population {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if m, ok := e.history.Mean(v); ok {
			means = append(means, m)
		}
	}

	if len(means) == 0 {
		return Distribution{
			Mean: NeutralRelativeRisk,
			Min:  NeutralRelativeRisk,
			Max:  NeutralRelativeRisk,
			P25:  NeutralRelativeRisk,
			P50:  NeutralRelativeRisk,
			P75:  NeutralRelativeRisk,
		}
	}

	slices.Sort(means)
	mean, std := stat.PopMeanStdDev(means, nil)
	return Distribution{
		Validators: len(means),
		Mean:       mean,
		StdDev:     std,
		Min:        means[0],
		Max:        means[len(means)-1],
		P25:        stat.Quantile(0.25, stat.Empirical, means, nil),
		P50:        stat.Quantile(0.5, stat.Empirical, means, nil),
		P75:        stat.Quantile(0.75, stat.Empirical, means, nil),
	}
}
