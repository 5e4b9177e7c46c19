/*
Package record persists network records. A record captures the risk
evaluation, costs and money flow configuration of a network at creation
time, it is written once and never modified afterwards.
*/
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/econsec/keyvaluedb"
	"github.com/alphabill-org/econsec/moneyflow"
	"github.com/alphabill-org/econsec/risk"
)

const keyPrefix = "network/"

var (
	ErrRecordExists = errors.New("network record already exists")
	ErrNotFound     = errors.New("network record not found")
	ErrInvalidID    = errors.New("invalid network id")
)

type NetworkRecord struct {
	ID                 string                        `json:"id"`
	Creator            common.Address                `json:"creator"`
	Parameters         risk.Parameters               `json:"parameters"`
	Score              risk.Score                    `json:"score"`
	Costs              risk.RequiredCosts            `json:"costs"`
	MoneyFlow          moneyflow.Config              `json:"moneyFlow"`
	CreationFeeRouting *moneyflow.CreationFeeRouting `json:"creationFeeRouting"`
	CreatedAt          time.Time                     `json:"createdAt"`
}

/*
Store keeps NetworkRecords in key-value db. Records are serialized as JSON
so they survive any value encoding the db is configured with.
*/
type Store struct {
	db keyvaluedb.KeyValueDB
}

func NewStore(db keyvaluedb.KeyValueDB) (*Store, error) {
	if db == nil {
		return nil, errors.New("key-value db is nil")
	}
	return &Store{db: db}, nil
}

func key(id string) []byte {
	return []byte(keyPrefix + id)
}

func CheckID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidID)
	case len(id) > 128:
		return fmt.Errorf("%w: longer than 128 characters", ErrInvalidID)
	case strings.ContainsAny(id, "/ \t\r\n"):
		return fmt.Errorf("%w: %q contains slash or whitespace", ErrInvalidID, id)
	}
	return nil
}

/*
Create persists new record. Error wrapping ErrRecordExists is returned when
record with the same ID already exists, existing record is never
overwritten.
*/
func (s *Store) Create(rec *NetworkRecord) (rErr error) {
	if rec == nil {
		return errors.New("network record is nil")
	}
	if err := CheckID(rec.ID); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding network record: %w", err)
	}

	tx, err := s.db.StartTx()
	if err != nil {
		return fmt.Errorf("starting db transaction: %w", err)
	}
	defer func() {
		if rErr != nil {
			rErr = errors.Join(rErr, tx.Rollback())
		}
	}()

	var existing json.RawMessage
	found, err := tx.Read(key(rec.ID), &existing)
	if err != nil {
		return fmt.Errorf("reading network record %q: %w", rec.ID, err)
	}
	if found {
		return fmt.Errorf("%w: %s", ErrRecordExists, rec.ID)
	}
	if err := tx.Write(key(rec.ID), json.RawMessage(data)); err != nil {
		return fmt.Errorf("writing network record %q: %w", rec.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing network record %q: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record, error wrapping ErrNotFound when it doesn't exist.
func (s *Store) Get(id string) (*NetworkRecord, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	var data json.RawMessage
	found, err := s.db.Read(key(id), &data)
	if err != nil {
		return nil, fmt.Errorf("reading network record %q: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return decode(data)
}

// List returns all the records ordered by ID.
func (s *Store) List() (_ []*NetworkRecord, rErr error) {
	it := s.db.Find([]byte(keyPrefix))
	defer func() { rErr = errors.Join(rErr, it.Close()) }()

	var records []*NetworkRecord
	for ; it.Valid() && strings.HasPrefix(string(it.Key()), keyPrefix); it.Next() {
		var data json.RawMessage
		if err := it.Value(&data); err != nil {
			return nil, fmt.Errorf("reading network record %q: %w", it.Key(), err)
		}
		rec, err := decode(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func decode(data []byte) (*NetworkRecord, error) {
	rec := &NetworkRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decoding network record: %w", err)
	}
	return rec, nil
}
