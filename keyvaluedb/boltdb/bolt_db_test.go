package boltdb

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/econsec/keyvaluedb"
)

type testRecord struct {
	Name  string
	Value uint64
}

func initBoltDB(t *testing.T, opts ...Option) *BoltDB {
	t.Helper()
	return initBoltDBAt(t, filepath.Join(t.TempDir(), "test.db"), opts...)
}

func initBoltDBAt(t *testing.T, dbFile string, opts ...Option) *BoltDB {
	t.Helper()
	db, err := New(dbFile, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

func isEmpty(t *testing.T, db *BoltDB) bool {
	t.Helper()
	empty, err := keyvaluedb.IsEmpty(db)
	require.NoError(t, err)
	return empty
}

func TestBoltDB_New(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	require.ErrorContains(t, err, "opening bolt db")

	db := initBoltDB(t)
	require.FileExists(t, db.Path())
	require.True(t, isEmpty(t, db))
}

func TestBoltDB_Options(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "test.db")

	_, err := New(dbFile, WithBucket(""))
	require.EqualError(t, err, "bucket name must not be empty")

	db, err := New(dbFile, WithBucket("records"))
	require.NoError(t, err)
	require.NoError(t, db.Write([]byte("a"), "records"))

	// file is locked while open
	_, err = New(dbFile, WithOpenTimeout(50*time.Millisecond))
	require.ErrorContains(t, err, "opening bolt db")
	require.NoError(t, db.Close())

	// buckets don't see each other's data
	db, err = New(dbFile)
	require.NoError(t, err)
	var s string
	found, err := db.Read([]byte("a"), &s)
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, db.Close())

	db = initBoltDBAt(t, dbFile, WithBucket("records"))
	found, err = db.Read([]byte("a"), &s)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "records", s)
}

func TestBoltDB_ReadWriteDelete(t *testing.T) {
	for name, opts := range map[string][]Option{
		"cbor": nil,
		"json": {WithEncoding(json.Marshal, json.Unmarshal)},
	} {
		t.Run(name, func(t *testing.T) {
			db := initBoltDB(t, opts...)
			var rec testRecord
			found, err := db.Read([]byte("a"), &rec)
			require.NoError(t, err)
			require.False(t, found)

			require.NoError(t, db.Write([]byte("a"), &testRecord{Name: "first", Value: 1}))
			found, err = db.Read([]byte("a"), &rec)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, testRecord{Name: "first", Value: 1}, rec)

			require.NoError(t, db.Delete([]byte("a")))
			found, err = db.Read([]byte("a"), &rec)
			require.NoError(t, err)
			require.False(t, found)
			// deleting missing key is not an error
			require.NoError(t, db.Delete([]byte("a")))
		})
	}
}

func TestBoltDB_InvalidInput(t *testing.T) {
	db := initBoltDB(t)
	var rec *testRecord
	_, err := db.Read(nil, &testRecord{})
	require.ErrorIs(t, err, keyvaluedb.ErrInvalidKey)
	_, err = db.Read([]byte("a"), rec)
	require.ErrorIs(t, err, keyvaluedb.ErrValueIsNil)
	require.ErrorIs(t, db.Write([]byte{}, "v"), keyvaluedb.ErrInvalidKey)
	require.ErrorIs(t, db.Write([]byte("a"), nil), keyvaluedb.ErrValueIsNil)
	require.ErrorIs(t, db.Delete(nil), keyvaluedb.ErrInvalidKey)

	// value of wrong type
	require.NoError(t, db.Write([]byte("a"), "string"))
	found, err := db.Read([]byte("a"), &testRecord{})
	require.True(t, found)
	require.ErrorContains(t, err, "bolt db read failed")
}

func TestBoltDB_Iterators(t *testing.T) {
	db := initBoltDB(t)
	for _, k := range []string{"b", "d", "a", "c"} {
		require.NoError(t, db.Write([]byte(k), k+k))
	}

	next := func(it keyvaluedb.Iterator) { it.Next() }
	prev := func(it keyvaluedb.Iterator) { it.Prev() }
	collect := func(it keyvaluedb.Iterator, step func(keyvaluedb.Iterator)) (keys []string) {
		defer func() { require.NoError(t, it.Close()) }()
		for ; it.Valid(); step(it) {
			var v string
			require.NoError(t, it.Value(&v))
			require.Equal(t, string(it.Key())+string(it.Key()), v)
			keys = append(keys, string(it.Key()))
		}
		return keys
	}

	require.Equal(t, []string{"a", "b", "c", "d"}, collect(db.First(), next))
	require.Equal(t, []string{"d", "c", "b", "a"}, collect(db.Last(), prev))
	require.Equal(t, []string{"c", "d"}, collect(db.Find([]byte("bb")), next))
	require.Empty(t, collect(db.Find([]byte("e")), next))

	it := db.First()
	require.NoError(t, it.Close())
	require.False(t, it.Valid())
	require.Nil(t, it.Key())
	require.EqualError(t, it.Value(new(string)), "iterator invalid")
	// closing twice is fine
	require.NoError(t, it.Close())
}
