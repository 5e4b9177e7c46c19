package validators

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// series returns n values of a saw tooth like pattern in range [0, 100]
func series(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64((i*37)%90) + 5
	}
	return out
}

func negated(s []float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = 100 - v
	}
	return out
}

func TestCorrelationDetector_DetectCorrelation(t *testing.T) {
	detectedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	newDetector := func() (*CorrelationDetector, *HistoryStore) {
		hs := NewHistoryStore()
		return NewCorrelationDetector(hs, WithClock(func() time.Time { return detectedAt })), hs
	}
	a, b := addr(1), addr(2)

	t.Run("insufficient data", func(t *testing.T) {
		cd, hs := newDetector()
		_, err := cd.DetectCorrelation(a, b)
		require.ErrorIs(t, err, ErrInsufficientData)

		track(t, hs, a, series(20)...)
		track(t, hs, b, series(MinObservations-1)...)
		c, err := cd.DetectCorrelation(a, b)
		require.ErrorIs(t, err, ErrInsufficientData)
		require.Nil(t, c)
		require.Empty(t, cd.Correlations(a))

		// lookups of unknown pairs leave nothing behind in the cache
		for i := 0; i < 1000; i++ {
			x := common.Address{17: 1, 18: byte(i >> 8), 19: byte(i)}
			y := common.Address{17: 2, 18: byte(i >> 8), 19: byte(i)}
			_, err := cd.DetectCorrelation(x, y)
			require.ErrorIs(t, err, ErrInsufficientData)
		}
		require.Len(t, cd.cache, 0)

		require.NoError(t, cd.TrackValidatorRisk(b, 50))
		_, err = cd.DetectCorrelation(a, b)
		require.NoError(t, err)
	})

	t.Run("same validator", func(t *testing.T) {
		cd, hs := newDetector()
		track(t, hs, a, series(20)...)
		_, err := cd.DetectCorrelation(a, a)
		require.ErrorIs(t, err, ErrSameValidator)
	})

	t.Run("identical series", func(t *testing.T) {
		cd, hs := newDetector()
		track(t, hs, a, series(30)...)
		track(t, hs, b, series(30)...)
		c, err := cd.DetectCorrelation(a, b)
		require.NoError(t, err)
		require.InDelta(t, 1.0, c.Score, 1e-9)
		require.Equal(t, CorrelationPositive, c.Type)
		require.Equal(t, SeverityCritical, c.Severity)
		require.Equal(t, 30, c.Samples)
		require.Equal(t, detectedAt, c.DetectedAt)
		require.Equal(t, a, c.ValidatorA)
		require.Equal(t, b, c.ValidatorB)
	})

	t.Run("negated series", func(t *testing.T) {
		cd, hs := newDetector()
		track(t, hs, a, series(30)...)
		track(t, hs, b, negated(series(30))...)
		c, err := cd.DetectCorrelation(a, b)
		require.NoError(t, err)
		require.InDelta(t, -1.0, c.Score, 1e-9)
		require.Equal(t, CorrelationNegative, c.Type)
		require.Equal(t, SeverityCritical, c.Severity)
	})

	t.Run("zero variance", func(t *testing.T) {
		cd, hs := newDetector()
		for i := 0; i < 15; i++ {
			track(t, hs, a, 42)
		}
		track(t, hs, b, series(15)...)
		c, err := cd.DetectCorrelation(a, b)
		require.NoError(t, err)
		require.Zero(t, c.Score)
		require.Equal(t, CorrelationNone, c.Type)
		require.Equal(t, SeverityLow, c.Severity)
	})

	t.Run("different length histories use most recent observations", func(t *testing.T) {
		cd, hs := newDetector()
		// "a" has unrelated prefix, its most recent 12 observations equal to "b"
		track(t, hs, a, 90, 1, 90, 1, 90)
		track(t, hs, a, series(12)...)
		track(t, hs, b, series(12)...)
		c, err := cd.DetectCorrelation(a, b)
		require.NoError(t, err)
		require.Equal(t, 12, c.Samples)
		require.InDelta(t, 1.0, c.Score, 1e-9)
	})

	t.Run("cache is symmetric and overwritten", func(t *testing.T) {
		cd, hs := newDetector()
		track(t, hs, a, series(20)...)
		track(t, hs, b, series(20)...)
		_, err := cd.DetectCorrelation(a, b)
		require.NoError(t, err)
		_, err = cd.DetectCorrelation(b, a)
		require.NoError(t, err)
		cached := cd.Correlations(a)
		require.Len(t, cached, 1)
		// the latest call determines the order of the validators
		require.Equal(t, b, cached[0].ValidatorA)
		require.Len(t, cd.Correlations(common.Address{}), 1)
		require.Empty(t, cd.Correlations(addr(3)))
	})
}

func Test_classification(t *testing.T) {
	var tests = []struct {
		r        float64
		typ      CorrelationType
		severity Severity
	}{
		{r: 0, typ: CorrelationNone, severity: SeverityLow},
		{r: 0.7, typ: CorrelationNone, severity: SeverityLow},
		{r: 0.71, typ: CorrelationPositive, severity: SeverityMedium},
		{r: -0.71, typ: CorrelationNegative, severity: SeverityMedium},
		{r: 0.8, typ: CorrelationPositive, severity: SeverityMedium},
		{r: 0.85, typ: CorrelationPositive, severity: SeverityHigh},
		{r: -0.9, typ: CorrelationNegative, severity: SeverityHigh},
		{r: -0.95, typ: CorrelationNegative, severity: SeverityCritical},
		{r: 1, typ: CorrelationPositive, severity: SeverityCritical},
	}
	for _, tc := range tests {
		require.Equal(t, tc.typ, classify(tc.r), "r = %v", tc.r)
		require.Equal(t, tc.severity, severity(tc.r), "r = %v", tc.r)
	}
}

func TestCorrelationDetector_HasHighCorrelation(t *testing.T) {
	hs := NewHistoryStore()
	cd := NewCorrelationDetector(hs)
	a, b, c := addr(1), addr(2), addr(3)
	track(t, hs, a, series(20)...)
	track(t, hs, b, negated(series(20))...)
	for i := 0; i < 20; i++ {
		track(t, hs, c, float64(i%2)*10+40)
	}

	// nothing has been computed yet
	require.False(t, cd.HasHighCorrelation(a, DefaultHighCorrelationThreshold))

	flagged, err := cd.ScanValidator(a, []common.Address{a, b, c, addr(4)})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	require.Equal(t, b, flagged[0].ValidatorB)

	require.True(t, cd.HasHighCorrelation(a, DefaultHighCorrelationThreshold))
	require.True(t, cd.HasHighCorrelation(b, DefaultHighCorrelationThreshold))
	require.False(t, cd.HasHighCorrelation(c, DefaultHighCorrelationThreshold))
	// pair (a, c) was computed too
	require.Len(t, cd.Correlations(c), 1)
}

func TestCorrelationDetector_Concurrency(t *testing.T) {
	hs := NewHistoryStore()
	cd := NewCorrelationDetector(hs)
	a, b := addr(1), addr(2)
	track(t, hs, a, series(MinObservations)...)
	track(t, hs, b, series(MinObservations)...)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = cd.TrackValidatorRisk(a, float64(j%100))
				_ = cd.TrackValidatorRisk(b, float64(j%100))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if _, err := cd.DetectCorrelation(a, b); err != nil {
					panic(err)
				}
				cd.HasHighCorrelation(a, DefaultHighCorrelationThreshold)
			}
		}()
	}
	wg.Wait()

	c, err := cd.DetectCorrelation(a, b)
	require.NoError(t, err)
	require.Equal(t, HistoryCapacity, c.Samples)
	require.GreaterOrEqual(t, c.Score, -1.0)
	require.LessOrEqual(t, c.Score, 1.0)
}
