package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/econsec/keyvaluedb"
	"github.com/alphabill-org/econsec/keyvaluedb/memorydb"
	"github.com/alphabill-org/econsec/risk"
	"github.com/alphabill-org/econsec/types"
	"github.com/alphabill-org/econsec/validators"
)

type (
	configuration struct {
		db                       keyvaluedb.KeyValueDB
		baseCreationFee          types.Amount
		penaltyConfigFee         types.Amount
		sinks                    common.Address
		highCorrelationThreshold float64
		now                      func() time.Time
	}

	Option func(c *configuration)
)

/*
WithDB sets the storage for network records and validator history
snapshots. In-memory db is used by default.
*/
func WithDB(db keyvaluedb.KeyValueDB) Option {
	return func(c *configuration) {
		c.db = db
	}
}

func WithBaseCreationFee(fee types.Amount) Option {
	return func(c *configuration) {
		c.baseCreationFee = fee
	}
}

func WithPenaltyConfigFee(fee types.Amount) Option {
	return func(c *configuration) {
		c.penaltyConfigFee = fee
	}
}

// WithSinksAddress sets the receiver of the purpose bound sinks share of creation fees.
func WithSinksAddress(addr common.Address) Option {
	return func(c *configuration) {
		c.sinks = addr
	}
}

func WithHighCorrelationThreshold(threshold float64) Option {
	return func(c *configuration) {
		c.highCorrelationThreshold = threshold
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *configuration) {
		c.now = now
	}
}

func loadConfiguration(opts ...Option) (*configuration, error) {
	c := &configuration{
		baseCreationFee:          risk.DefaultBaseCreationFee,
		penaltyConfigFee:         risk.DefaultPenaltyConfigFee,
		highCorrelationThreshold: validators.DefaultHighCorrelationThreshold,
		now:                      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.db == nil {
		c.db = memorydb.New()
	}
	if c.now == nil {
		return nil, errors.New("clock is nil")
	}
	if c.highCorrelationThreshold <= 0 || c.highCorrelationThreshold > 1 {
		return nil, fmt.Errorf("high correlation threshold must be in range (0, 1], got %v", c.highCorrelationThreshold)
	}
	return c, nil
}
