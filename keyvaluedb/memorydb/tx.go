package memorydb

import (
	"fmt"
	"maps"

	"github.com/alphabill-org/econsec/keyvaluedb"
)

/*
Tx works on a copy of the db content and records the keys it changes. On
Commit only the changed keys are applied to the db so writes done outside
of the transaction while it was open are preserved.
*/
type Tx struct {
	mem *MemoryDB
	db  map[string][]byte
	// changed keys, false means the key was deleted
	changes map[string]bool
}

func NewMapTx(m *MemoryDB) (*Tx, error) {
	if m == nil {
		return nil, fmt.Errorf("memory db is nil")
	}
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Tx{
		mem:     m,
		db:      maps.Clone(m.db),
		changes: make(map[string]bool),
	}, nil
}

func (t *Tx) Read(key []byte, v any) (bool, error) {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return false, err
	}
	if t.db == nil {
		return false, fmt.Errorf("memdb tx read failed, tx closed")
	}
	if data, ok := t.db[string(key)]; ok {
		return true, t.mem.decoder(data, v)
	}
	return false, nil
}

func (t *Tx) Write(key []byte, value any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, value); err != nil {
		return err
	}
	if t.db == nil {
		return fmt.Errorf("memdb tx write failed, tx closed")
	}
	b, err := t.mem.encoder(value)
	if err != nil {
		return err
	}
	if err := t.mem.checkLimit(t.db, key); err != nil {
		return err
	}
	t.db[string(key)] = b
	t.changes[string(key)] = true
	return nil
}

func (t *Tx) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	if t.db == nil {
		return fmt.Errorf("memdb tx delete failed, tx closed")
	}
	delete(t.db, string(key))
	t.changes[string(key)] = false
	return nil
}

func (t *Tx) Rollback() error {
	if t.db == nil {
		return nil
	}
	t.close()
	return nil
}

func (t *Tx) Commit() error {
	if t.db == nil {
		return fmt.Errorf("memdb tx commit failed, tx closed")
	}
	defer t.close()
	t.mem.lock.Lock()
	defer t.mem.lock.Unlock()

	if t.mem.limit > 0 {
		size := len(t.mem.db)
		for k, written := range t.changes {
			_, exists := t.mem.db[k]
			switch {
			case written && !exists:
				size++
			case !written && exists:
				size--
			}
		}
		if size > t.mem.limit {
			return fmt.Errorf("memdb tx commit failed, disk is full")
		}
	}
	for k, written := range t.changes {
		if written {
			t.mem.db[k] = t.db[k]
		} else {
			delete(t.mem.db, k)
		}
	}
	return nil
}

func (t *Tx) close() {
	t.db = nil
	t.changes = nil
	t.mem.txLock.Unlock()
}
