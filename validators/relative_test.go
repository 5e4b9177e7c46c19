package validators

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestRelativeRiskEngine_CalculateRelativeRisk(t *testing.T) {
	hs := NewHistoryStore()
	rre := NewRelativeRiskEngine(hs)
	v := addr(1)

	t.Run("neutral prior", func(t *testing.T) {
		// no history
		require.Equal(t, NeutralRelativeRisk, rre.CalculateRelativeRisk(v, []common.Address{addr(2)}))
		track(t, hs, v, 30)
		// empty population
		require.Equal(t, NeutralRelativeRisk, rre.CalculateRelativeRisk(v, nil))
		// population consisting of the validator itself and peers without history
		require.Equal(t, NeutralRelativeRisk, rre.CalculateRelativeRisk(v, []common.Address{v, addr(2), addr(3)}))
	})

	track(t, hs, addr(2), 10, 20) // mean 15
	track(t, hs, addr(3), 30)     // mean 30
	track(t, hs, addr(4), 60, 80) // mean 70
	track(t, hs, addr(5), 5)      // mean 5

	t.Run("rank", func(t *testing.T) {
		population := []common.Address{v, addr(2), addr(3), addr(4), addr(5), addr(6)}
		// two peers lower, one tie, one higher
		require.InDelta(t, 2.5/4, rre.CalculateRelativeRisk(v, population), 1e-12)
		require.Zero(t, rre.CalculateRelativeRisk(addr(5), population))
		require.Equal(t, 1.0, rre.CalculateRelativeRisk(addr(4), population))
	})

	t.Run("duplicates count once", func(t *testing.T) {
		population := []common.Address{addr(2), addr(2), addr(2), addr(4)}
		// one peer lower, one higher
		require.InDelta(t, 0.5, rre.CalculateRelativeRisk(v, population), 1e-12)
		require.InDelta(t, 1.0, rre.CalculateRelativeRisk(addr(4), append(population, addr(5), addr(5))), 1e-12)
	})

	t.Run("in range", func(t *testing.T) {
		population := hs.Validators()
		for _, id := range population {
			r := rre.CalculateRelativeRisk(id, population)
			require.GreaterOrEqual(t, r, 0.0)
			require.LessOrEqual(t, r, 1.0)
		}
	})
}

func TestRelativeRiskEngine_CalculateNetworkRiskDistribution(t *testing.T) {
	hs := NewHistoryStore()
	rre := NewRelativeRiskEngine(hs)

	t.Run("empty population", func(t *testing.T) {
		d := rre.CalculateNetworkRiskDistribution(nil)
		require.Equal(t, Distribution{Mean: 0.5, Min: 0.5, Max: 0.5, P25: 0.5, P50: 0.5, P75: 0.5}, d)
		// validators without history don't count
		require.Equal(t, d, rre.CalculateNetworkRiskDistribution([]common.Address{addr(1)}))
	})

	track(t, hs, addr(1), 50)
	track(t, hs, addr(2), 5, 15)
	track(t, hs, addr(3), 40)
	track(t, hs, addr(4), 30)
	track(t, hs, addr(5), 20)

	t.Run("statistics", func(t *testing.T) {
		population := []common.Address{addr(1), addr(2), addr(3), addr(4), addr(5), addr(5), addr(9)}
		d := rre.CalculateNetworkRiskDistribution(population)
		require.Equal(t, 5, d.Validators)
		require.InDelta(t, 30, d.Mean, 1e-9)
		require.InDelta(t, math.Sqrt(200), d.StdDev, 1e-9)
		require.EqualValues(t, 10, d.Min)
		require.EqualValues(t, 50, d.Max)
		require.EqualValues(t, 20, d.P25)
		require.EqualValues(t, 30, d.P50)
		require.EqualValues(t, 40, d.P75)
	})

	t.Run("single validator", func(t *testing.T) {
		d := rre.CalculateNetworkRiskDistribution([]common.Address{addr(3)})
		require.Equal(t, Distribution{Validators: 1, Mean: 40, Min: 40, Max: 40, P25: 40, P50: 40, P75: 40}, d)
	})
}
