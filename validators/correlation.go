package validators

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gonum.org/v1/gonum/stat"

	"github.com/alphabill-org/econsec/types"
)

const (
	// MinObservations is the number of observations both validators must have
	// before their correlation is computed.
	MinObservations = 10

	// DefaultHighCorrelationThreshold is the |r| above which validators are considered to act in concert.
	DefaultHighCorrelationThreshold = 0.8

	correlatedAbove = 0.7
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrSameValidator    = errors.New("correlation of validator with itself")
)

type CorrelationType string

const (
	CorrelationPositive CorrelationType = "positive"
	CorrelationNegative CorrelationType = "negative"
	CorrelationNone     CorrelationType = "none"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Correlation is the Pearson correlation of two validators' risk histories.
type Correlation struct {
	ValidatorA common.Address  `json:"validatorA"`
	ValidatorB common.Address  `json:"validatorB"`
	Score      float64         `json:"correlationScore"`
	Type       CorrelationType `json:"correlationType"`
	Severity   Severity        `json:"severity"`
	// Samples is the number of (most recent) observations of each validator used.
	Samples    int       `json:"samples"`
	DetectedAt time.Time `json:"detectedAt"`
}

// Involves returns true when "v" is one of the validators of the pair.
func (c *Correlation) Involves(v common.Address) bool {
	return c.ValidatorA == v || c.ValidatorB == v
}

type (
	/*
		CorrelationDetector computes pairwise correlation of validator risk
		histories as collusion signal. Results are cached by validator pair,
		newer result overwrites the older one, entries never expire.
	*/
	CorrelationDetector struct {
		history *HistoryStore
		now     func() time.Time

		mu    sync.Mutex
		cache map[pairKey]*pairEntry
	}

	// pair key is symmetric, ie (a, b) and (b, a) map to the same key
	pairKey struct {
		lo, hi common.Address
	}

	pairEntry struct {
		mu   sync.Mutex
		corr *Correlation
	}

	Option func(*CorrelationDetector)
)

func WithClock(now func() time.Time) Option {
	return func(cd *CorrelationDetector) {
		cd.now = now
	}
}

func NewCorrelationDetector(history *HistoryStore, opts ...Option) *CorrelationDetector {
	cd := &CorrelationDetector{
		history: history,
		now:     time.Now,
		cache:   make(map[pairKey]*pairEntry),
	}
	for _, o := range opts {
		o(cd)
	}
	return cd
}

func newPairKey(a, b common.Address) pairKey {
	lo, hi := types.OrderedPair(a, b)
	return pairKey{lo: lo, hi: hi}
}

// TrackValidatorRisk appends risk observation to the validator's history.
func (cd *CorrelationDetector) TrackValidatorRisk(validator common.Address, score float64) error {
	return cd.history.Track(validator, score)
}

/*
DetectCorrelation computes correlation of the most recent risk observations
of validators "a" and "b" and caches the result. When either validator has
less than MinObservations error wrapping ErrInsufficientData is returned.
*/
func (cd *CorrelationDetector) DetectCorrelation(a, b common.Address) (*Correlation, error) {
	if a == b {
		return nil, fmt.Errorf("%w: %s", ErrSameValidator, a)
	}

	// cache entry is only created for pairs which have enough data
	if err := insufficientData(a, b, cd.history.Len(a), cd.history.Len(b)); err != nil {
		return nil, err
	}

	entry := cd.entry(newPairKey(a, b))
	entry.mu.Lock()
	defer entry.mu.Unlock()

	obsA := cd.history.Observations(a)
	obsB := cd.history.Observations(b)
	if err := insufficientData(a, b, len(obsA), len(obsB)); err != nil {
		return nil, err
	}

	n := min(len(obsA), len(obsB))
	r := pearson(obsA[len(obsA)-n:], obsB[len(obsB)-n:])
	corr := &Correlation{
		ValidatorA: a,
		ValidatorB: b,
		Score:      r,
		Type:       classify(r),
		Severity:   severity(r),
		Samples:    n,
		DetectedAt: cd.now(),
	}
	entry.corr = corr
	c := *corr
	return &c, nil
}

func insufficientData(a, b common.Address, lenA, lenB int) error {
	if lenA < MinObservations || lenB < MinObservations {
		return fmt.Errorf("%w: validator %s has %d and validator %s has %d observations, need %d",
			ErrInsufficientData, a, lenA, b, lenB, MinObservations)
	}
	return nil
}

func (cd *CorrelationDetector) entry(key pairKey) *pairEntry {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	e, ok := cd.cache[key]
	if !ok {
		e = &pairEntry{}
		cd.cache[key] = e
	}
	return e
}

/*
Correlations returns copies of the cached correlations involving the
validator. Zero address returns all the cached correlations.
*/
func (cd *CorrelationDetector) Correlations(validator common.Address) []Correlation {
	cd.mu.Lock()
	entries := make([]*pairEntry, 0, len(cd.cache))
	for key, e := range cd.cache {
		if validator == (common.Address{}) || key.lo == validator || key.hi == validator {
			entries = append(entries, e)
		}
	}
	cd.mu.Unlock()

	var out []Correlation
	for _, e := range entries {
		e.mu.Lock()
		if e.corr != nil {
			out = append(out, *e.corr)
		}
		e.mu.Unlock()
	}
	return out
}

/*
HasHighCorrelation returns true when any cached correlation involving the
validator has absolute value above the threshold.
*/
func (cd *CorrelationDetector) HasHighCorrelation(validator common.Address, threshold float64) bool {
	for _, c := range cd.Correlations(validator) {
		if c.Involves(validator) && math.Abs(c.Score) > threshold {
			return true
		}
	}
	return false
}

/*
ScanValidator detects correlation of the validator with every member of
the population and returns those which are classified as correlated.
Peers without enough history are skipped.
*/
func (cd *CorrelationDetector) ScanValidator(validator common.Address, population []common.Address) ([]Correlation, error) {
	var flagged []Correlation
	for _, peer := range population {
		if peer == validator {
			continue
		}
		c, err := cd.DetectCorrelation(validator, peer)
		if err != nil {
			if errors.Is(err, ErrInsufficientData) {
				continue
			}
			return nil, err
		}
		if c.Type != CorrelationNone {
			flagged = append(flagged, *c)
		}
	}
	return flagged, nil
}

/*
pearson returns correlation coefficient of equal length series. Series with
zero variance have no defined correlation, zero is returned for those.
*/
func pearson(x, y []float64) float64 {
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return max(-1, min(1, r))
}

func classify(r float64) CorrelationType {
	switch {
	case r > correlatedAbove:
		return CorrelationPositive
	case r < -correlatedAbove:
		return CorrelationNegative
	default:
		return CorrelationNone
	}
}

func severity(r float64) Severity {
	switch abs := math.Abs(r); {
	case abs > 0.9:
		return SeverityCritical
	case abs > 0.8:
		return SeverityHigh
	case abs > correlatedAbove:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
