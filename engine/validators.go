package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/econsec/logger"
	"github.com/alphabill-org/econsec/observability"
	"github.com/alphabill-org/econsec/validators"
)

var historyKey = []byte("validators/history")

// TrackValidatorRisk records risk observation of the validator.
func (e *Engine) TrackValidatorRisk(ctx context.Context, validator common.Address, score float64) error {
	if err := e.detector.TrackValidatorRisk(validator, score); err != nil {
		return err
	}
	e.log.DebugContext(ctx, fmt.Sprintf("risk observation %v tracked", score), logger.Validator(validator))
	return nil
}

/*
DetectCorrelation computes correlation of the validators, error wraps
validators.ErrInsufficientData when either of them lacks history.
*/
func (e *Engine) DetectCorrelation(ctx context.Context, a, b common.Address) (*validators.Correlation, error) {
	c, err := e.detector.DetectCorrelation(a, b)
	if err != nil {
		return nil, err
	}
	e.correlationDetected(ctx, c)
	return c, nil
}

/*
ScanValidator correlates the validator with every other tracked validator
and returns correlated pairs.
*/
func (e *Engine) ScanValidator(ctx context.Context, validator common.Address) ([]validators.Correlation, error) {
	flagged, err := e.detector.ScanValidator(validator, e.history.Validators())
	if err != nil {
		return nil, err
	}
	for i := range flagged {
		e.correlationDetected(ctx, &flagged[i])
	}
	return flagged, nil
}

/*
HasHighCorrelation checks cached correlations of the validator against the
threshold, zero threshold means the configured default.
*/
func (e *Engine) HasHighCorrelation(validator common.Address, threshold float64) bool {
	if threshold <= 0 {
		threshold = e.conf.highCorrelationThreshold
	}
	return e.detector.HasHighCorrelation(validator, threshold)
}

func (e *Engine) Correlations(validator common.Address) []validators.Correlation {
	return e.detector.Correlations(validator)
}

// RelativeRisk ranks the validator against all the other tracked validators.
func (e *Engine) RelativeRisk(validator common.Address) float64 {
	return e.relative.CalculateRelativeRisk(validator, e.history.Validators())
}

// Distribution returns statistics of mean risk of all tracked validators.
func (e *Engine) Distribution() validators.Distribution {
	return e.relative.CalculateNetworkRiskDistribution(e.history.Validators())
}

func (e *Engine) correlationDetected(ctx context.Context, c *validators.Correlation) {
	if c.Type == validators.CorrelationNone {
		return
	}
	e.correlationCnt.Add(ctx, 1, observability.Attrs(observability.Severity(string(c.Severity))))
	if c.Severity == validators.SeverityHigh || c.Severity == validators.SeverityCritical {
		e.log.WarnContext(ctx, fmt.Sprintf("%s %s correlation %.3f with %s", c.Severity, c.Type, c.Score, c.ValidatorB), logger.Validator(c.ValidatorA))
	}
}

/*
SaveHistory persists snapshot of the validator risk histories into the db.
*/
func (e *Engine) SaveHistory() error {
	data, err := e.history.Snapshot()
	if err != nil {
		return fmt.Errorf("creating validator history snapshot: %w", err)
	}
	if err := e.db.Write(historyKey, data); err != nil {
		return fmt.Errorf("writing validator history snapshot: %w", err)
	}
	return nil
}

/*
LoadHistory restores validator risk histories from the snapshot saved by
SaveHistory. Missing snapshot is not an error, histories stay empty.
*/
func (e *Engine) LoadHistory() error {
	var data []byte
	found, err := e.db.Read(historyKey, &data)
	if err != nil {
		return fmt.Errorf("reading validator history snapshot: %w", err)
	}
	if !found {
		return nil
	}
	if err := e.history.Restore(data); err != nil {
		return fmt.Errorf("restoring validator history snapshot: %w", err)
	}
	e.log.Info(fmt.Sprintf("restored risk history of %d validators", len(e.history.Validators())))
	return nil
}
