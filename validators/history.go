package validators

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"gonum.org/v1/gonum/stat"
)

// HistoryCapacity is the number of most recent risk observations kept per validator.
const HistoryCapacity = 100

const snapshotVersion = 1

var ErrInvalidObservation = errors.New("invalid risk observation")

type (
	/*
		HistoryStore holds bounded risk observation history of validators.
		It is shared by the CorrelationDetector and RelativeRiskEngine and is
		safe for concurrent use: appending to a history and reading it are
		mutually exclusive so reader never sees partially updated buffer.
	*/
	HistoryStore struct {
		mu        sync.RWMutex
		histories map[common.Address]*history
		capacity  int
	}

	history struct {
		mu  sync.RWMutex
		obs *ring[float64]
	}
)

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		histories: make(map[common.Address]*history),
		capacity:  HistoryCapacity,
	}
}

/*
Track appends risk observation to the validator's history, evicting the
oldest observation when the history is full.
*/
func (s *HistoryStore) Track(validator common.Address, score float64) error {
	if !(score >= 0 && score <= 100) {
		return fmt.Errorf("%w: score %v of validator %s is not in range [0, 100]", ErrInvalidObservation, score, validator)
	}
	h := s.getOrCreate(validator)
	h.mu.Lock()
	h.obs.Push(score)
	h.mu.Unlock()
	return nil
}

func (s *HistoryStore) getOrCreate(validator common.Address) *history {
	s.mu.RLock()
	h, ok := s.histories[validator]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok = s.histories[validator]; !ok {
		h = &history{obs: newRing[float64](s.capacity)}
		s.histories[validator] = h
	}
	return h
}

func (s *HistoryStore) get(validator common.Address) *history {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.histories[validator]
}

// Observations returns copy of the validator's history, oldest first. Nil when validator is unknown.
func (s *HistoryStore) Observations(validator common.Address) []float64 {
	h := s.get(validator)
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.obs.Values()
}

// Len returns number of observations recorded for the validator.
func (s *HistoryStore) Len(validator common.Address) int {
	h := s.get(validator)
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.obs.Len()
}

// Mean returns mean of the validator's observations, false when there is no history.
func (s *HistoryStore) Mean(validator common.Address) (float64, bool) {
	obs := s.Observations(validator)
	if len(obs) == 0 {
		return 0, false
	}
	return stat.Mean(obs, nil), true
}

// Validators returns addresses of all validators with history, sorted.
func (s *HistoryStore) Validators() []common.Address {
	s.mu.RLock()
	ids := make([]common.Address, 0, len(s.histories))
	for id := range s.histories {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	slices.SortFunc(ids, func(a, b common.Address) int { return bytes.Compare(a[:], b[:]) })
	return ids
}

// Forget drops the validator's history.
func (s *HistoryStore) Forget(validator common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, validator)
}

type (
	historySnapshot struct {
		_          struct{} `cbor:",toarray"`
		Version    uint32
		Validators []validatorHistory
	}

	validatorHistory struct {
		_            struct{} `cbor:",toarray"`
		Validator    []byte
		Observations []float64
	}
)

/*
Snapshot serializes all the histories as CBOR. The store itself doesn't
persist anything, callers owning persistence may save the snapshot and load
it later using Restore.
*/
func (s *HistoryStore) Snapshot() ([]byte, error) {
	snap := historySnapshot{Version: snapshotVersion}
	for _, id := range s.Validators() {
		obs := s.Observations(id)
		if len(obs) == 0 {
			continue
		}
		snap.Validators = append(snap.Validators, validatorHistory{Validator: id.Bytes(), Observations: obs})
	}
	data, err := cbor.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding history snapshot: %w", err)
	}
	return data, nil
}

/*
Restore replaces content of the store with histories from snapshot. When
snapshot contains more observations than fits into history only the most
recent ones are kept.
*/
func (s *HistoryStore) Restore(data []byte) error {
	var snap historySnapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decoding history snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported history snapshot version %d", snap.Version)
	}

	histories := make(map[common.Address]*history, len(snap.Validators))
	for i, vh := range snap.Validators {
		if len(vh.Validator) != common.AddressLength {
			return fmt.Errorf("invalid validator address length %d in snapshot record %d", len(vh.Validator), i)
		}
		h := &history{obs: newRing[float64](s.capacity)}
		for _, score := range vh.Observations {
			if !(score >= 0 && score <= 100) {
				return fmt.Errorf("%w: score %v in snapshot record %d", ErrInvalidObservation, score, i)
			}
			h.obs.Push(score)
		}
		histories[common.BytesToAddress(vh.Validator)] = h
	}

	s.mu.Lock()
	s.histories = histories
	s.mu.Unlock()
	return nil
}
