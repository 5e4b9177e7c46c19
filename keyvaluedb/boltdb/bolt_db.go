package boltdb

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/alphabill-org/econsec/keyvaluedb"
)

/*
DefaultBucket holds the network records and validator risk histories. All
the data of the service lives in single bucket, key prefixes separate the
record kinds.
*/
const DefaultBucket = "econsec"

const defaultOpenTimeout = 3 * time.Second

type (
	EncodeFn func(v any) ([]byte, error)
	DecodeFn func(data []byte, v any) error

	// BoltDB is a keyvaluedb.KeyValueDB backed by single bucket of a Bolt DB file.
	BoltDB struct {
		db      *bolt.DB
		bucket  []byte
		encoder EncodeFn
		decoder DecodeFn
	}

	Option func(*options)

	options struct {
		bucket      string
		openTimeout time.Duration
		encoder     EncodeFn
		decoder     DecodeFn
	}
)

// WithEncoding replaces the default CBOR encoding of the values.
func WithEncoding(enc EncodeFn, dec DecodeFn) Option {
	return func(o *options) {
		o.encoder = enc
		o.decoder = dec
	}
}

// WithBucket sets the name of the bucket used instead of DefaultBucket.
func WithBucket(name string) Option {
	return func(o *options) {
		o.bucket = name
	}
}

/*
WithOpenTimeout sets how long New waits for the file lock when the file
is already opened by another process.
*/
func WithOpenTimeout(d time.Duration) Option {
	return func(o *options) {
		o.openTimeout = d
	}
}

// New opens (creating when it doesn't exist) Bolt DB file.
func New(dbFile string, opts ...Option) (*BoltDB, error) {
	o := &options{
		bucket:      DefaultBucket,
		openTimeout: defaultOpenTimeout,
		encoder:     cbor.Marshal,
		decoder:     cbor.Unmarshal,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.bucket == "" {
		return nil, errors.New("bucket name must not be empty")
	}

	db, err := bolt.Open(dbFile, 0600, &bolt.Options{Timeout: o.openTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db %q: %w", dbFile, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(o.bucket))
		return err
	}); err != nil {
		return nil, errors.Join(fmt.Errorf("creating bucket %q: %w", o.bucket, err), db.Close())
	}
	return &BoltDB{
		db:      db,
		bucket:  []byte(o.bucket),
		encoder: o.encoder,
		decoder: o.decoder,
	}, nil
}

func (db *BoltDB) Path() string {
	return db.db.Path()
}

func (db *BoltDB) Read(key []byte, v any) (found bool, _ error) {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return false, err
	}
	err := db.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(db.bucket).Get(key)
		if found = data != nil; !found {
			return nil
		}
		// data is only valid while the tx is open
		return db.decoder(data, v)
	})
	if err != nil {
		return found, fmt.Errorf("bolt db read failed, %w", err)
	}
	return found, nil
}

func (db *BoltDB) Write(key []byte, v any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return err
	}
	b, err := db.encoder(v)
	if err != nil {
		return fmt.Errorf("encoding value of %q: %w", key, err)
	}
	return db.update("write", func(bkt *bolt.Bucket) error { return bkt.Put(key, b) })
}

func (db *BoltDB) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	return db.update("delete", func(b *bolt.Bucket) error { return b.Delete(key) })
}

func (db *BoltDB) update(op string, fn func(*bolt.Bucket) error) error {
	if err := db.db.Update(func(tx *bolt.Tx) error { return fn(tx.Bucket(db.bucket)) }); err != nil {
		return fmt.Errorf("bolt db %s failed, %w", op, err)
	}
	return nil
}

func (db *BoltDB) First() keyvaluedb.Iterator {
	it := NewIterator(db.db, db.bucket, db.decoder)
	it.first()
	return it
}

func (db *BoltDB) Last() keyvaluedb.Iterator {
	it := NewIterator(db.db, db.bucket, db.decoder)
	it.last()
	return it
}

func (db *BoltDB) Find(key []byte) keyvaluedb.Iterator {
	it := NewIterator(db.db, db.bucket, db.decoder)
	it.seek(key)
	return it
}

/*
StartTx starts read-write transaction, used by the record store to make the
existence check and write of a record atomic.
*/
func (db *BoltDB) StartTx() (keyvaluedb.DBTransaction, error) {
	tx, err := NewBoltTx(db.db, db.bucket, db.encoder, db.decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to start Bolt tx, %w", err)
	}
	return tx, nil
}

func (db *BoltDB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}
