package memorydb

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/alphabill-org/econsec/keyvaluedb"
)

type (
	EncodeFn func(v any) ([]byte, error)
	DecodeFn func(data []byte, v any) error

	/*
		MemoryDB is a map backed key value db, used by tests and by the
		service when no database file is configured.
	*/
	MemoryDB struct {
		db      map[string][]byte
		encoder EncodeFn
		decoder DecodeFn
		limit   int
		lock    sync.RWMutex
		// only one read-write transaction at a time
		txLock sync.Mutex
	}
)

func New() *MemoryDB {
	return &MemoryDB{
		db:      make(map[string][]byte),
		encoder: json.Marshal,
		decoder: json.Unmarshal,
	}
}

// NewWithLimiter can be used to test disk full scenarios
func NewWithLimiter(limit int) *MemoryDB {
	db := New()
	db.limit = limit
	return db
}

// Empty returns true if no values are stored in db
func (db *MemoryDB) Empty() bool {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return len(db.db) == 0
}

// Read retrieves the given key if it's present in the key-value store.
func (db *MemoryDB) Read(key []byte, value any) (bool, error) {
	if err := keyvaluedb.CheckKeyAndValue(key, value); err != nil {
		return false, err
	}
	db.lock.RLock()
	defer db.lock.RUnlock()
	if data, ok := db.db[string(key)]; ok {
		return true, db.decoder(data, value)
	}
	return false, nil
}

// Write inserts the given value into the key-value store.
func (db *MemoryDB) Write(key []byte, value any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, value); err != nil {
		return err
	}
	b, err := db.encoder(value)
	if err != nil {
		return err
	}
	db.lock.Lock()
	defer db.lock.Unlock()
	if err := db.checkLimit(db.db, key); err != nil {
		return err
	}
	db.db[string(key)] = b
	return nil
}

func (db *MemoryDB) checkLimit(m map[string][]byte, key []byte) error {
	if _, ok := m[string(key)]; ok {
		return nil
	}
	if db.limit > 0 && len(m) >= db.limit {
		return fmt.Errorf("write failed, disk is full")
	}
	return nil
}

// Delete removes the key from the key-value store.
func (db *MemoryDB) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	db.lock.Lock()
	defer db.lock.Unlock()
	delete(db.db, string(key))
	return nil
}

// First returns forward iterator to the first element in DB
func (db *MemoryDB) First() keyvaluedb.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()
	it := NewIterator(db.db, db.decoder)
	it.first()
	return it
}

// Last returns reverse iterator from the last element in DB
func (db *MemoryDB) Last() keyvaluedb.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()
	it := NewIterator(db.db, db.decoder)
	it.last()
	return it
}

// Find returns the closest binary search match
func (db *MemoryDB) Find(key []byte) keyvaluedb.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()
	it := NewIterator(db.db, db.decoder)
	it.seek(key)
	return it
}

/*
StartTx blocks until previous transaction has been committed or rolled
back.
*/
func (db *MemoryDB) StartTx() (keyvaluedb.DBTransaction, error) {
	db.txLock.Lock()
	tx, err := NewMapTx(db)
	if err != nil {
		db.txLock.Unlock()
		return nil, fmt.Errorf("failed to start memory db tx, %w", err)
	}
	return tx, nil
}

func (db *MemoryDB) Close() error { return nil }
